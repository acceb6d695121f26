// Package main is the entry point for the overdue sweeper.
// It periodically transitions sent invoices past their due date to overdue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"facturio/internal/domain/invoice"
	"facturio/internal/infrastructure/storage/postgres"
	"facturio/internal/infrastructure/storage/postgres/client_repo"
	"facturio/internal/infrastructure/storage/postgres/invoice_repo"
	"facturio/internal/infrastructure/storage/postgres/order_repo"
	"facturio/internal/infrastructure/storage/postgres/sequence_repo"
	"facturio/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting facturio sweeper")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	service := invoice.NewService(
		invoice_repo.NewRepo(txManager),
		order_repo.NewRepo(txManager),
		client_repo.NewRepo(txManager),
		sequence_repo.NewAllocator(txManager),
		txManager,
		auditService,
		invoice.DefaultServiceConfig(),
	)

	interval := getEnvDuration("SWEEP_INTERVAL", 10*time.Minute)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run(ctx, service, interval, log)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down sweeper...")
	cancel()

	wg.Wait()
	log.Info("sweeper stopped")
}

func run(ctx context.Context, service *invoice.Service, interval time.Duration, log *logger.Logger) {
	log.Infow("sweeper running", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// One pass at startup, then on every tick.
	sweep(ctx, service, log)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, service, log)
		}
	}
}

func sweep(ctx context.Context, service *invoice.Service, log *logger.Logger) {
	count, err := service.SweepOverdue(ctx)
	if err != nil {
		log.Errorw("overdue sweep failed", "error", err)
		return
	}
	log.Infow("overdue sweep finished", "transitioned", count)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
