package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"resource-ledger/pkg/authz"
	"resource-ledger/pkg/config"
	"resource-ledger/pkg/db"
	"resource-ledger/pkg/gen"
	"resource-ledger/pkg/health"
	"resource-ledger/pkg/httpapi"
	"resource-ledger/pkg/logger"
	"resource-ledger/pkg/otelcol"
	"resource-ledger/pkg/profiling"
	"resource-ledger/pkg/redis"
	"resource-ledger/pkg/server"
	"resource-ledger/services/leaderboard"
	"resource-ledger/services/ledger"
	"resource-ledger/services/mutation"
	"resource-ledger/services/points"
	"resource-ledger/services/resource"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		authz.Module,
		health.Module,
		fx.Invoke(migrate),
		httpapi.Module,
		ledger.Module,
		resource.Module,
		points.Module,
		mutation.Module,
		leaderboard.Module,
		server.ProvideGRPCServer,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})

func migrate(cfg *config.Config, conn *gorm.DB) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	return db.Migrate(conn, &resource.Resource{}, &ledger.Entry{}, &points.Entry{})
}
