package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"readingbot/pkg/config"
	"readingbot/pkg/db"
	"readingbot/pkg/featureflags"
	"readingbot/pkg/gen"
	"readingbot/pkg/health"
	"readingbot/pkg/logger"
	"readingbot/pkg/otelcol"
	"readingbot/pkg/profiling"
	"readingbot/pkg/redis"
	"readingbot/pkg/sequence"
	"readingbot/pkg/server"
	"readingbot/pkg/task"
	"readingbot/pkg/telegram"
	"readingbot/services/api"
	"readingbot/services/balance"
	"readingbot/services/bot"
	"readingbot/services/catalog"
	"readingbot/services/content"
	"readingbot/services/payment"
	"readingbot/services/reading"
	"readingbot/services/user"
	"readingbot/services/webhook"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		gen.Module,
		redis.Module,
		sequence.Module,
		featureflags.Module,
		task.Client,
		telegram.Module,
		health.Module,
		server.Module,

		content.Module,
		catalog.Module,
		balance.Module,
		payment.Module,
		payment.GatewayModule,
		webhook.Module,
		user.Module,
		reading.Module,
		reading.DispatchModule,
		bot.SenderModule,
		bot.Module,
		api.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, log *zap.Logger) fxevent.Logger {
	if cfg.LogLevel == "debug" {
		return &fxevent.ZapLogger{Logger: log}
	}
	return fxevent.NopLogger
})
