// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"facturio/internal/domain/client"
	"facturio/internal/domain/invoice"
	"facturio/internal/infrastructure/http/v1/handlers"
	"facturio/internal/infrastructure/http/v1/middleware"
	"facturio/internal/infrastructure/mailer"
	"facturio/internal/infrastructure/pdf"
	"facturio/internal/infrastructure/storage/postgres"
	"facturio/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// TokenValidator for bearer token validation
	TokenValidator middleware.TokenValidator

	// InvoiceService is the invoice engine
	InvoiceService *invoice.Service

	// Clients resolves billing profiles for mail delivery
	Clients client.Repository

	// Renderer produces invoice PDFs
	Renderer *pdf.Renderer

	// Mailer delivers invoice documents; nil disables the send endpoint
	Mailer *mailer.Mailer

	// Audit exposes the lifecycle event trail; nil disables the audit endpoint
	Audit *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.Auth(cfg.TokenValidator))
	{
		baseHandler := handlers.NewBaseHandler()
		invoiceHandler := handlers.NewInvoiceHandler(
			baseHandler,
			cfg.InvoiceService,
			cfg.Clients,
			cfg.Renderer,
			cfg.Mailer,
			cfg.Audit,
		)
		invoiceHandler.RegisterRoutes(apiV1.Group("/invoices"))
	}

	return router
}
