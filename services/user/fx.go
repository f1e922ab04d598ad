package user

import "go.uber.org/fx"

var Module = fx.Module("user.module",
	fx.Provide(NewService),
)

var Server = fx.Module("user.server",
	Module,
	fx.Invoke(RegisterRoutes),
)
