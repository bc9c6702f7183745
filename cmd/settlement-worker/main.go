package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/guard"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/attaboy/walletcenter/internal/repository"
	"github.com/attaboy/walletcenter/internal/transfer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("settlement worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("settlement-worker connected to postgres")

	store, err := repository.NewWalletStore(cfg.WalletStoreStrategy, pool, cfg.WalletStoreTimeout, logger)
	if err != nil {
		return fmt.Errorf("wallet store: %w", err)
	}

	retrier := transfer.NewRetrier(
		pool,
		repository.NewReconciliationRepository(),
		repository.NewOutboxRepository(),
		store,
		guard.NewCircuitBreaker(cfg.RetryFailures, cfg.RetryBreakerReset, time.Now),
		cfg.RetryInterval,
		cfg.RetryBatchSize,
		logger,
	)

	consumer := infra.NewKafkaConsumer(cfg.Kafka(), string(domain.EventReconciliationRecorded), infra.GroupSettlementWorker, logger)
	defer consumer.Close()
	if consumer.Enabled() {
		go func() {
			if err := transfer.WakeOnDeferred(ctx, consumer, retrier, logger); err != nil {
				logger.Error("wake consumer stopped", "error", err)
			}
		}()
	}

	retrier.Run(ctx)
	logger.Info("settlement-worker shutting down")
	return nil
}
