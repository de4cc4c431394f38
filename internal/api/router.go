package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/weatherbot/internal/app"
	"github.com/charlesng35/weatherbot/internal/handlers"
	"github.com/charlesng35/weatherbot/internal/middleware"
	"github.com/charlesng35/weatherbot/internal/monitoring"
	"github.com/charlesng35/weatherbot/internal/ratelimit"
	"github.com/charlesng35/weatherbot/internal/services"
	"github.com/charlesng35/weatherbot/internal/twilio"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
// The health manager may be nil when health reporting is disabled.
func NewRouter(
	cfg *app.Config,
	lookup *services.LookupService,
	records *services.RecordService,
	limiter *ratelimit.Limiter,
	health *monitoring.HealthManager,
) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if lookup == nil {
		return nil, fmt.Errorf("lookup service must be provided")
	}
	if records == nil {
		return nil, fmt.Errorf("record service must be provided")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	// Index and health (public)
	r.GET("/", handlers.Root())
	registerHealthRoutes(r, cfg, health)

	// Messaging webhook
	validator := twilio.NewRequestValidator(cfg.Webhook.Token())
	webhookHandler := handlers.NewWebhookHandler(lookup, limiter, validator, cfg.Webhook.Callback())
	r.POST("/webhook/whatsapp", webhookHandler.Receive)

	// JSON API
	weatherHandler := handlers.NewWeatherHandler(lookup, records, limiter)
	api := r.Group("/api")
	{
		api.POST("/weather", weatherHandler.Lookup)
		api.GET("/weather/recent", weatherHandler.Recent)
		api.GET("/weather/records/:id", weatherHandler.Record)
	}

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
