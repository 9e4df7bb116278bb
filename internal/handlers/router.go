// Package handlers contains the HTTP handlers and routing.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qaura/qaura-payments/internal/platform/logger"
)

// RouterOptions configures SetupRouter.
type RouterOptions struct {
	GinMode    string
	CORSOrigin string
	Logger     *logger.Logger

	// WebhookPath is where notifications are received. Defaults to /api/webhook.
	WebhookPath string

	// Gatherer backs /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(handler *PaymentHandler, opts RouterOptions) *gin.Engine {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware(log))
	router.Use(LoggingMiddleware(log))
	router.Use(CORSMiddleware(opts.CORSOrigin))

	router.GET("/health", handler.Health)
	router.GET("/status", handler.Health)
	router.GET("/ready", handler.Ready)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		api.POST("/create-preference", handler.CreatePreference)
		api.GET("/payment/:id", handler.GetPayment)
	}

	// Webhook endpoint (public, validates x-signature when a secret is configured)
	webhookPath := opts.WebhookPath
	if webhookPath == "" {
		webhookPath = "/api/webhook"
	}
	router.POST(webhookPath, handler.HandleWebhook)

	return router
}
