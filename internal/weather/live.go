package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/charlesng35/weatherbot/pkg/logger"
	"github.com/charlesng35/weatherbot/pkg/metrics"
)

// Defaults applied when Config leaves the corresponding field unset.
const (
	DefaultBaseURL        = "https://api.openweathermap.org/data/2.5"
	DefaultTimeout        = 5 * time.Second
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 5 * time.Second
)

type openWeatherClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration

	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func newOpenWeatherClient(cfg Config) *openWeatherClient {
	c := &openWeatherClient{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		timeout:        cfg.Timeout,
		retryAttempts:  cfg.Retry.MaxAttempts,
		retryBaseDelay: cfg.Retry.BaseDelay,
		retryMaxDelay:  cfg.Retry.MaxDelay,
		client:         &http.Client{},
		log:            logger.WithModule("weather"),
	}

	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.retryAttempts <= 0 {
		c.retryAttempts = DefaultRetryAttempts
	}
	if c.retryBaseDelay <= 0 {
		c.retryBaseDelay = DefaultRetryBaseDelay
	}
	if c.retryMaxDelay <= 0 {
		c.retryMaxDelay = DefaultRetryMaxDelay
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	return c
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// Current fetches conditions for a city, retrying transient failures with
// exponential backoff and jitter. Client errors from the provider fail
// immediately; an open circuit breaker short-circuits the remaining attempts.
func (c *openWeatherClient) Current(ctx context.Context, city string) (Observation, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			metrics.UpstreamRetries.Inc()
			delay := c.backoff(attempt)
			c.log.Warn("retrying upstream fetch",
				zap.String("city", city),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return Observation{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		obs, err := c.fetch(ctx, city)
		if err == nil {
			return obs, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Observation{}, fmt.Errorf("%w: circuit open: %v", ErrUnavailable, err)
		}
		if !isRetryable(err) {
			return Observation{}, err
		}
	}

	return Observation{}, fmt.Errorf("%w: exhausted %d attempts: %v", ErrUnavailable, c.retryAttempts, lastErr)
}

func (c *openWeatherClient) fetch(ctx context.Context, city string) (Observation, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(attemptCtx, city)
	if err != nil {
		return Observation{}, err
	}

	// Transport failures, 429s and 5xx count against the breaker; client
	// errors such as an unknown city pass through without tripping it.
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			return nil, ErrRateLimited
		case resp.StatusCode >= http.StatusInternalServerError:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
		}

		return resp, nil
	})
	if err != nil {
		return Observation{}, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return Observation{}, fmt.Errorf("%w: unexpected breaker result", ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Observation{}, fmt.Errorf("%w: HTTP 401", ErrInvalidKey)
	case resp.StatusCode == http.StatusNotFound:
		return Observation{}, fmt.Errorf("%w: %s", ErrNotFound, city)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Observation{}, fmt.Errorf("upstream rejected request: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var payload openWeatherResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Observation{}, fmt.Errorf("%w: parse response: %v", ErrUnavailable, err)
	}

	return mapResponse(payload, city), nil
}

func (c *openWeatherClient) buildRequest(ctx context.Context, city string) (*http.Request, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	base = base.JoinPath("weather")

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// backoff doubles the base delay per attempt, caps it, and adds up to 10%
// jitter so simultaneous retries spread out.
func (c *openWeatherClient) backoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func isRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrUnavailable):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func mapResponse(payload openWeatherResponse, requested string) Observation {
	description := ""
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Main
		if payload.Weather[0].Description != "" {
			description = payload.Weather[0].Description
		}
	}

	city := payload.Name
	if city == "" {
		city = requested
	}

	observedAt := time.Now().UTC()
	if payload.Dt > 0 {
		observedAt = time.Unix(payload.Dt, 0).UTC()
	}

	return Observation{
		City:        city,
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		Description: description,
		Source:      SourceLive,
		ObservedAt:  observedAt,
	}
}
