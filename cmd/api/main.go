// @title       Elk Messaging API
// @version     1.0
// @description Outbox service that sends SMS and MMS through the 46elks gateway.
// @BasePath    /
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/elk-messaging/internal/cache/redis"
	"github.com/oggyb/elk-messaging/internal/config"
	"github.com/oggyb/elk-messaging/internal/db/gormdb"
	"github.com/oggyb/elk-messaging/internal/elk"
	"github.com/oggyb/elk-messaging/internal/handler"
	"github.com/oggyb/elk-messaging/internal/logger"
	"github.com/oggyb/elk-messaging/internal/metrics"
	mesgRepo "github.com/oggyb/elk-messaging/internal/repository/gorm/message"
	routes "github.com/oggyb/elk-messaging/internal/router"
	"github.com/oggyb/elk-messaging/internal/scheduler"
	"github.com/oggyb/elk-messaging/internal/server"
	"github.com/oggyb/elk-messaging/internal/service"
	"github.com/oggyb/elk-messaging/internal/sms"
)

func main() {
	// Base context for the whole application lifetime.
	rootCtx := context.Background()

	// Load configuration from environment/.env.
	cfg := config.New()

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout).
		With().Str("app", cfg.App.Name).Str("env", cfg.App.Env).Logger()
	mainLog := logger.Component(log, "main")

	if err := cfg.Validate(); err != nil {
		mainLog.Fatal().Err(err).Msg("invalid configuration")
	}

	// Init cache.
	cache := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := cache.Ping(rootCtx); err != nil {
		mainLog.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
	}
	defer cache.Close()

	// Init DB and make sure the outbox table exists.
	db, err := gormdb.New(cfg.PostgresDSN(), logger.Component(log, "db"))
	if err != nil {
		mainLog.Fatal().Err(err).Msg("failed to connect db")
	}
	if err := db.Migrate(&mesgRepo.MessageModel{}); err != nil {
		mainLog.Fatal().Err(err).Msg("failed to migrate db")
	}

	// Init 46elks gateway client.
	elkClient := elk.NewClient(elk.Config{
		Username:   cfg.Elk.Username,
		Password:   cfg.Elk.Password,
		BaseDomain: cfg.Elk.BaseDomain,
		Timeout:    cfg.Elk.Timeout,
	}, elk.WithLogger(logger.Component(log, "elk")))

	smsClient := sms.NewGatewayClient(elkClient, cfg.SMS.WhenDelivered, logger.Component(log, "sms"))
	if err := smsClient.Health(rootCtx); err != nil {
		// The outbox keeps accepting messages; sends fail until the gateway answers.
		mainLog.Warn().Err(err).Msg("46elks gateway health check failed")
	}

	appMetrics := metrics.New()

	// Message
	msgRepository := mesgRepo.NewRepository(db)
	msgSvc := service.NewMessageService(
		msgRepository,
		smsClient,
		smsClient,
		cache,
		service.Options{
			BatchSize:         cfg.Worker.BatchSize,
			MaxWorkers:        cfg.Worker.MaxWorkers,
			PerMessageTimeout: cfg.Worker.PerMessageTimeout,
			StaleAfter:        cfg.Worker.StaleAfter,
			DefaultSender:     cfg.SMS.Sender,
			Metrics:           appMetrics,
		},
		logger.Component(log, "service"),
	)

	// Cron
	cron := scheduler.NewSchedulerService(
		msgSvc,
		cfg.Scheduler.Interval,
		cfg.Scheduler.BatchTimeout,
		logger.Component(log, "scheduler"),
	)

	// Handlers
	deps := routes.AppDeps{
		Home: handler.NewHomeHandler(cfg.App.Name, map[string]handler.Check{
			"cache":   cache.Ping,
			"gateway": smsClient.Health,
		}),
		Message: handler.NewMessageHandler(msgSvc, cron, logger.Component(log, "handler")),
		Metrics: appMetrics,
	}

	srv := server.New(cfg.Addr(), deps, logger.Component(log, "http"))

	// Cancelled on SIGINT/SIGTERM (Ctrl+C, docker stop etc.).
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.AutoStart {
		if err := cron.Start(); err != nil {
			mainLog.Fatal().Err(err).Msg("scheduler could not start")
		}
	} else {
		mainLog.Info().Msg("scheduler idle; start it with POST /scheduler")
	}

	if err := srv.Run(ctx, 10*time.Second); err != nil {
		mainLog.Error().Err(err).Msg("HTTP server stopped")
	}

	// Waits for an in-flight batch to finish or time out.
	if err := cron.Stop(); err != nil {
		mainLog.Error().Err(err).Msg("scheduler could not be stopped")
	}

	mainLog.Info().Msg("shutdown complete")
}
