package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weatherbot/internal/app"
	"github.com/charlesng35/weatherbot/internal/handlers"
	"github.com/charlesng35/weatherbot/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, manager *monitoring.HealthManager) {
	if !cfg.Monitoring.Health.Enabled || manager == nil {
		r.GET("/health", disabledHealthHandler)
		return
	}

	r.GET("/health", handlers.NewHealthHandler(manager, cfg.Weather.Configured(), cfg.Webhook.Secured()).Health)
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
