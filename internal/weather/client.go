package weather

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Source identifies which variant produced an Observation.
type Source string

const (
	// SourceLive marks observations fetched from the upstream provider.
	SourceLive Source = "live"
	// SourceOffline marks deterministic placeholder observations returned
	// when no provider credential is configured.
	SourceOffline Source = "offline"
)

// Sentinel errors surfaced by the live client.
var (
	ErrInvalidKey  = errors.New("invalid API key")
	ErrNotFound    = errors.New("location not found")
	ErrRateLimited = errors.New("rate limited by provider")
	ErrUnavailable = errors.New("upstream unavailable")
)

// Observation is the provider-shaped result of one fetch.
type Observation struct {
	City        string
	Temperature float64
	FeelsLike   float64
	Humidity    int
	Description string
	Source      Source
	ObservedAt  time.Time
}

// Client resolves current conditions for a place. Implementations retry
// transient failures internally; callers see only the final outcome.
type Client interface {
	Current(ctx context.Context, city string) (Observation, error)
}

// RetryConfig controls the live client's backoff behaviour.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Config bundles upstream provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Retry   RetryConfig
}

// NewClient selects the live or offline variant from credential presence.
// The offline placeholder keeps the pipeline functional without an upstream
// dependency; it is a result variant, not an error path.
func NewClient(cfg Config) Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewOfflineClient()
	}
	return newOpenWeatherClient(cfg)
}
