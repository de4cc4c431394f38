package checks

import (
	"context"
	"time"

	"github.com/charlesng35/weatherbot/internal/monitoring"
	"github.com/charlesng35/weatherbot/internal/services"
)

// ComponentDatabase names the persistence probe in health reports.
const ComponentDatabase = "database"

// Database returns a probe that pings the store through the record service.
// The service bounds the ping itself, so no extra timeout is applied here.
func Database(records *services.RecordService) monitoring.Check {
	return monitoring.NewCheck(ComponentDatabase, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if records == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "database not configured",
				Duration: time.Since(start),
			}
		}
		return monitoring.ResultFromError(ComponentDatabase, records.Healthcheck(ctx), time.Since(start))
	})
}
