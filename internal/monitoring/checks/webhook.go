package checks

import (
	"context"

	"github.com/charlesng35/weatherbot/internal/monitoring"
)

// Webhook reports whether inbound signature verification is active. An open
// webhook still serves traffic, so the probe stays up either way.
func Webhook(secured bool) monitoring.Check {
	return monitoring.NewCheck("webhook", func(context.Context) monitoring.ProbeResult {
		if secured {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "signature verification enabled"}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "signature verification disabled"}
	})
}
