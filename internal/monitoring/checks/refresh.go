package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/weatherbot/internal/monitoring"
)

const defaultRefreshMaxAge = time.Hour

// Refresh verifies that the named scheduled job keeps completing within the
// expected interval. Failing or stale runs degrade the probe rather than
// taking it down, since the request path keeps working without the job.
// When maxAge is zero a default window (1h) is used.
func Refresh(job string, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultRefreshMaxAge
	}

	return monitoring.NewCheck(job, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		summary, ok := monitoring.JobSnapshot(job)
		if !ok || summary.TotalRuns == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "pending first run",
				Duration: time.Since(start),
			}
		}

		status := monitoring.StatusUp
		var failures []string

		if summary.ConsecutiveFailures > 0 {
			status = monitoring.StatusDegraded
			failures = append(failures, fmt.Sprintf("%d consecutive failures: %s", summary.ConsecutiveFailures, summary.LastError))
		}

		if !summary.LastRunAt.IsZero() && time.Since(summary.LastRunAt) > maxAge {
			status = monitoring.StatusDegraded
			failures = append(failures, "stale run "+summary.LastRunAt.UTC().Format(time.RFC3339))
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(failures, "; "),
			Duration: time.Since(start),
		}
	})
}
