package weather

import (
	"context"
	"time"
)

// Fixed placeholder conditions served when no provider credential exists.
const (
	offlineTemperature = 22.5
	offlineFeelsLike   = 24.0
	offlineHumidity    = 65
	offlineDescription = "partly cloudy"
)

type offlineClient struct{}

// NewOfflineClient returns the credential-free placeholder variant. Every
// lookup succeeds with the same deterministic conditions.
func NewOfflineClient() Client {
	return offlineClient{}
}

func (offlineClient) Current(_ context.Context, city string) (Observation, error) {
	return Observation{
		City:        city,
		Temperature: offlineTemperature,
		FeelsLike:   offlineFeelsLike,
		Humidity:    offlineHumidity,
		Description: offlineDescription,
		Source:      SourceOffline,
		ObservedAt:  time.Now().UTC(),
	}, nil
}
