package checks

import (
	"context"

	"github.com/charlesng35/weatherbot/internal/monitoring"
)

// Provider reports which upstream variant serves lookups. Running without a
// credential is a supported configuration, so the probe never degrades.
func Provider(configured bool) monitoring.Check {
	return monitoring.NewCheck("weather_provider", func(context.Context) monitoring.ProbeResult {
		if configured {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "api key configured"}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "offline mode"}
	})
}
