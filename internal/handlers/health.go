package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weatherbot/internal/monitoring"
	"github.com/charlesng35/weatherbot/internal/monitoring/checks"
	"github.com/charlesng35/weatherbot/pkg/response"
)

// HealthHandler reports dependency health for operators and probes. The
// check set is assembled at bootstrap; capability probes expose booleans
// and labels only, never the credentials themselves.
type HealthHandler struct {
	manager            *monitoring.HealthManager
	providerConfigured bool
	webhookSecured     bool
}

// NewHealthHandler constructs the health surface around a prepared check
// set. The two flags mirror the capability decisions made at startup so
// the report states them even while every probe is passing.
func NewHealthHandler(manager *monitoring.HealthManager, providerConfigured, webhookSecured bool) *HealthHandler {
	if manager == nil {
		manager = monitoring.NewHealthManager()
	}
	return &HealthHandler{
		manager:            manager,
		providerConfigured: providerConfigured,
		webhookSecured:     webhookSecured,
	}
}

// Health runs every registered probe. Only a down report flips the HTTP
// status; degraded states keep 200 because the request path still works.
func (h *HealthHandler) Health(c *gin.Context) {
	report := h.manager.Evaluate(requestContext(c))

	status := http.StatusOK
	if report.Status == monitoring.StatusDown {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"success":             report.Success,
		"status":              report.Status,
		"provider_configured": h.providerConfigured,
		"webhook_secured":     h.webhookSecured,
		"database_connected":  databaseConnected(report),
		"checks":              report.Checks,
		"checked_at":          time.Now().UTC(),
	})
}

func databaseConnected(report monitoring.HealthReport) bool {
	for _, check := range report.Checks {
		if check.Component == checks.ComponentDatabase {
			return check.Status == monitoring.StatusUp
		}
	}
	return false
}

// Root identifies the service for humans poking at the base URL.
func Root() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{
			"message": "WhatsApp Weather Bot",
			"status":  "running",
		})
	}
}
