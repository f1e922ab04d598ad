package escrow

import "go.uber.org/fx"

var Module = fx.Module("escrow.module",
	fx.Provide(NewService),
)

var Server = fx.Module("escrow.server",
	Module,
	fx.Invoke(RegisterRoutes),
)
