package dispute

import "go.uber.org/fx"

var Module = fx.Module("dispute.module",
	fx.Provide(NewService),
)

var Server = fx.Module("dispute.server",
	Module,
	fx.Invoke(RegisterRoutes),
)
