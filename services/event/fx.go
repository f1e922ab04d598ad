package event

import "go.uber.org/fx"

var Module = fx.Module("event.module",
	fx.Provide(NewService),
)

var Server = fx.Module("event.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("event.worker",
	Module,
	fx.Invoke(RegisterTaskHandlers),
)
