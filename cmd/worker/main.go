package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mediflow/scheduling-api/internal/config"
	"github.com/mediflow/scheduling-api/internal/email"
	"github.com/mediflow/scheduling-api/internal/repository/postgres"
	internalworker "github.com/mediflow/scheduling-api/internal/worker"
	"github.com/mediflow/scheduling-api/pkg/logger"
	redisbroker "github.com/mediflow/scheduling-api/pkg/messaging/redis"
	"github.com/mediflow/scheduling-api/pkg/metrics"
	"github.com/mediflow/scheduling-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	l := logger.NewLogger(nil)
	m := metrics.NewMetrics("scheduling", "worker")

	outboxRepo := postgres.NewOutboxRepository(db)
	userRepo := postgres.NewUserRepository(db)

	processorCfg := worker.DefaultOutboxProcessorConfig()
	if cfg.Worker.BatchSize > 0 {
		processorCfg.BatchSize = cfg.Worker.BatchSize
	}
	if cfg.Worker.PollIntervalSeconds > 0 {
		processorCfg.PollInterval = time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second
	}
	processor := worker.NewOutboxProcessor(outboxRepo, broker, processorCfg, l, m)

	notifier := internalworker.NewNotifier(broker, userRepo, email.NewService(cfg.SMTP), l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := notifier.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start notifier")
	}
	go processor.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")
	cancel()
}
