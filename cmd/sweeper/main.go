package main

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/chain"
	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/db"
	"gigbridge-platform/pkg/featureflags"
	"gigbridge-platform/pkg/logger"
	"gigbridge-platform/pkg/payment"
	"gigbridge-platform/pkg/redis"
	"gigbridge-platform/pkg/sequence"
	"gigbridge-platform/pkg/task"
	"gigbridge-platform/pkg/taskname"
	"gigbridge-platform/pkg/token"
	"gigbridge-platform/services/attendance"
	"gigbridge-platform/services/badge"
	"gigbridge-platform/services/escrow"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/notification"
	"gigbridge-platform/services/pool"
	"gigbridge-platform/services/user"
	"gigbridge-platform/services/wallet"
)

// The sweeper is the background half of the platform: it runs the asynq
// worker pool and periodically enqueues the reconcile and auto-close sweeps
// so event and attendance state converge even when nobody is reading them.
func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		sequence.Module,
		featureflags.Module,
		payment.Module,
		chain.Module,

		fx.Provide(
			provideSnowflakeNode,
			token.NewManager,
		),

		pool.Module,
		wallet.Module,
		escrow.Module,
		user.Module,

		event.Worker,
		attendance.Worker,
		notification.Worker,
		badge.Worker,

		fx.Invoke(registerScheduler),

		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(2)
}

const defaultSweepInterval = time.Minute

// registerScheduler ticks the periodic sweeps onto the queue. The handlers
// themselves are idempotent, so an overlapping or duplicated tick is harmless.
func registerScheduler(lc fx.Lifecycle, cfg *config.Config, enqueuer task.Enqueuer) {
	interval := cfg.Sweep.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						enqueueSweeps(enqueuer)
					}
				}
			}()
			zap.L().Info("[Sweeper] scheduler started", zap.Duration("interval", interval))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})
}

func enqueueSweeps(enqueuer task.Enqueuer) {
	for _, name := range []string{taskname.EventReconcileAll, taskname.AttendanceAutoClose} {
		if _, err := enqueuer.Enqueue(asynq.NewTask(name, nil)); err != nil {
			zap.L().Warn("[Sweeper] failed to enqueue sweep", zap.String("task", name), zap.Error(err))
		}
	}
}
