package notification

import "go.uber.org/fx"

var Module = fx.Module("notification.module",
	fx.Provide(NewService),
)

var Server = fx.Module("notification.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("notification.worker",
	Module,
	fx.Invoke(RegisterTaskHandlers),
)
