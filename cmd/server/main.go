// Package main is the entry point for the Facturio API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"facturio/internal/domain/invoice"
	v1 "facturio/internal/infrastructure/http/v1"
	"facturio/internal/infrastructure/http/v1/middleware"
	"facturio/internal/infrastructure/mailer"
	"facturio/internal/infrastructure/pdf"
	"facturio/internal/infrastructure/storage/postgres"
	"facturio/internal/infrastructure/storage/postgres/client_repo"
	"facturio/internal/infrastructure/storage/postgres/invoice_repo"
	"facturio/internal/infrastructure/storage/postgres/order_repo"
	"facturio/internal/infrastructure/storage/postgres/sequence_repo"
	"facturio/pkg/logger"
)

func main() {
	// Local development convenience; absent .env is fine.
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting facturio server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// Periodic pool visibility in the logs.
	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go func() {
		ticker := time.NewTicker(getEnvDuration("POOL_STATS_INTERVAL", time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-statsCtx.Done():
				return
			case <-ticker.C:
				postgres.LogPoolStats(statsCtx, pool)
			}
		}
	}()

	// --- Repositories ---
	invoiceRepo := invoice_repo.NewRepo(txManager)
	orderRepo := order_repo.NewRepo(txManager)
	clientRepo := client_repo.NewRepo(txManager)

	// --- Sequence allocator ---
	allocator := sequence_repo.NewAllocator(txManager)
	if err := allocator.Init(ctx, getEnv("INVOICE_PREFIX", "FAC-"), getEnv("INVOICE_SUFFIX", "")); err != nil {
		log.Fatalw("failed to initialize invoice counter", "error", err)
	}
	next, prefix, suffix, err := allocator.Current(ctx)
	if err != nil {
		log.Fatalw("failed to read invoice counter", "error", err)
	}
	log.Infow("invoice counter ready", "next_number", next, "prefix", prefix, "suffix", suffix)

	// --- Audit ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	// --- Invoice service ---
	serviceCfg := invoice.DefaultServiceConfig()
	if dueIn := getEnvDuration("INVOICE_DUE_IN", 0); dueIn > 0 {
		serviceCfg.DueIn = dueIn
	}
	invoiceService := invoice.NewService(
		invoiceRepo,
		orderRepo,
		clientRepo,
		allocator,
		txManager,
		auditService,
		serviceCfg,
	)

	// --- PDF renderer ---
	renderer := pdf.NewRenderer(pdf.Company{
		Name:    getEnv("COMPANY_NAME", "Facturio"),
		TaxID:   getEnv("COMPANY_TAX_ID", ""),
		Address: getEnv("COMPANY_ADDRESS", ""),
		Email:   getEnv("COMPANY_EMAIL", ""),
	})

	// --- Mailer (optional) ---
	var mail *mailer.Mailer
	if smtpHost := getEnv("SMTP_HOST", ""); smtpHost != "" {
		mail = mailer.New(mailer.Config{
			Host:     smtpHost,
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "billing@localhost"),
		})
		log.Info("smtp mailer configured")
	} else {
		log.Warn("SMTP_HOST not set, invoice sending disabled")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		TokenValidator: middleware.NewJWTValidator(mustEnv("JWT_SECRET")),
		InvoiceService: invoiceService,
		Clients:        clientRepo,
		Renderer:       renderer,
		Mailer:         mail,
		Audit:          auditService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
