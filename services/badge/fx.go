package badge

import "go.uber.org/fx"

var Module = fx.Module("badge.module",
	fx.Provide(NewService),
)

var Server = fx.Module("badge.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("badge.worker",
	Module,
	fx.Invoke(RegisterTaskHandlers),
)
