package attendance

import "go.uber.org/fx"

var Module = fx.Module("attendance.module",
	fx.Provide(NewService),
)

var Server = fx.Module("attendance.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("attendance.worker",
	Module,
	fx.Invoke(RegisterTaskHandlers),
)
