package app

import (
	"strings"

	"github.com/charlesng35/weatherbot/internal/weather"
)

// ClientConfig converts the application weather configuration into the weather package representation.
func (c WeatherConfig) ClientConfig() weather.Config {
	return weather.Config{
		APIKey:  strings.TrimSpace(c.APIKey),
		BaseURL: strings.TrimSpace(c.BaseURL),
		Timeout: c.Timeout,
		Retry: weather.RetryConfig{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   c.Retry.BaseDelay,
			MaxDelay:    c.Retry.MaxDelay,
		},
	}
}

// Configured reports whether an upstream API key is present. Without one the
// service serves deterministic offline observations.
func (c WeatherConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}
