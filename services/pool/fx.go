package pool

import (
	"go.uber.org/fx"

	"gigbridge-platform/services/event"
)

var Module = fx.Module("pool.module",
	fx.Provide(NewService),
	fx.Invoke(func(e *event.Service, s *Service) {
		e.SetArchiver(s)
	}),
)

var Server = fx.Module("pool.server",
	Module,
	fx.Invoke(RegisterRoutes),
)
