package main

import (
	"context"
	"log"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/chain"
	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/db"
	"gigbridge-platform/pkg/featureflags"
	"gigbridge-platform/pkg/health"
	"gigbridge-platform/pkg/logger"
	"gigbridge-platform/pkg/middleware"
	"gigbridge-platform/pkg/otelcol"
	"gigbridge-platform/pkg/otelcol/exporters"
	"gigbridge-platform/pkg/payment"
	"gigbridge-platform/pkg/profiling"
	"gigbridge-platform/pkg/redis"
	"gigbridge-platform/pkg/sequence"
	"gigbridge-platform/pkg/server"
	"gigbridge-platform/pkg/servicediscover"
	"gigbridge-platform/pkg/storage"
	"gigbridge-platform/pkg/task"
	"gigbridge-platform/pkg/token"
	"gigbridge-platform/services/attendance"
	"gigbridge-platform/services/badge"
	"gigbridge-platform/services/dispute"
	"gigbridge-platform/services/escrow"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/notification"
	"gigbridge-platform/services/pool"
	"gigbridge-platform/services/user"
	"gigbridge-platform/services/wallet"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		storage.Module,
		featureflags.Module,
		payment.Module,
		chain.Module,
		middleware.RBACModule,
		profiling.Module,
		servicediscover.Module,

		fx.Provide(
			provideSnowflakeNode,
			token.NewManager,
		),
		fx.Invoke(
			registerTracing,
			registerDBTelemetry,
			autoMigrate,
		),

		server.ProvideHTTPServer,
		health.Module,

		user.Server,
		event.Server,
		pool.Server,
		wallet.Server,
		escrow.Server,
		attendance.Server,
		notification.Server,
		badge.Server,
		dispute.Server,

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
	return snowflake.NewNode(1)
}

func registerTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Otel.Addr == "" {
		return nil
	}

	exporter, err := exporters.ProvideGrpc(cfg)
	if err != nil {
		return err
	}

	tp := otelcol.ProvideTrace(exporter)
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return nil
}

func registerDBTelemetry(gdb *gorm.DB, cfg *config.Config) {
	// telemetry plugins are best-effort; failures are logged, never fatal
	_ = db.Otel(gdb)
	if cfg.Database.Type != "sqlite" {
		_ = db.Metric(gdb)
	}
}

func autoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&user.User{}, &user.Review{},
		&event.Event{},
		&pool.Pool{}, &pool.Member{}, &pool.Application{},
		&wallet.Wallet{}, &wallet.Entry{}, &wallet.TopupOrder{},
		&escrow.Contract{}, &escrow.Payment{},
		&attendance.Attendance{},
		&badge.Badge{}, &badge.UserBadge{},
		&dispute.Dispute{},
		&notification.Notification{},
	)
}
