package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attaboy/walletcenter/internal/app"
	"github.com/attaboy/walletcenter/internal/auth"
	"github.com/attaboy/walletcenter/internal/currency"
	"github.com/attaboy/walletcenter/internal/guard"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/attaboy/walletcenter/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
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
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if cfg.AutoMigrate {
		if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	store, err := repository.NewWalletStore(cfg.WalletStoreStrategy, pool, cfg.WalletStoreTimeout, logger)
	if err != nil {
		return fmt.Errorf("wallet store: %w", err)
	}

	var orders *guard.IdempotencyGuard
	if cfg.IdempotencyGuard {
		orders = guard.NewIdempotencyGuard(cfg.IdempotencyRetain, time.Now)
		go sweepOrders(ctx, orders, cfg.IdempotencyRetain, logger)
	}

	r := app.NewRouter(app.RouterDeps{
		Pool:   pool,
		Store:  store,
		Config: cfg,
		JWTMgr: auth.NewJWTManager(cfg.JWTSecret, cfg.JWTOperatorExpiry),
		Tokens: auth.NewTokenSigner(cfg.TokenSecret, cfg.TokenTTL, time.Now),
		Rates:  currency.Default(),
		Orders: orders,
		Logger: logger,
	})

	// Outbox relay
	kafkaSettings := cfg.Kafka()
	// The outbox keeps events until the broker is reachable.
	if err := infra.EnsureTopics(ctx, kafkaSettings, logger); err != nil {
		logger.Warn("kafka topics not ensured", "error", err)
	}
	producer := infra.NewKafkaProducer(kafkaSettings, logger)
	defer producer.Close()
	source := repository.NewOutboxSource(repository.NewOutboxRepository(), pool)
	poller := infra.NewOutboxPoller(source, producer, cfg.OutboxInterval, cfg.OutboxBatchSize, logger)
	poller.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("wallet center starting", "addr", addr, "store", cfg.WalletStoreStrategy)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func sweepOrders(ctx context.Context, orders *guard.IdempotencyGuard, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := orders.Sweep(); n > 0 {
				logger.Debug("swept idempotency keys", "count", n)
			}
		}
	}
}
