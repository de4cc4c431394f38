package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const observationPayload = `{
	"name": "London",
	"dt": 1700000000,
	"main": {"temp": 12.3, "feels_like": 11.1, "humidity": 72},
	"weather": [{"main": "Clouds", "description": "scattered clouds"}]
}`

func newTestClient(baseURL string) *openWeatherClient {
	return newOpenWeatherClient(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		},
	})
}

func TestCurrentRetriesTransientFailuresThenSucceeds(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, observationPayload)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	obs, err := client.Current(context.Background(), "London")

	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, "London", obs.City)
	assert.Equal(t, 12.3, obs.Temperature)
	assert.Equal(t, 11.1, obs.FeelsLike)
	assert.Equal(t, 72, obs.Humidity)
	assert.Equal(t, "scattered clouds", obs.Description)
	assert.Equal(t, SourceLive, obs.Source)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), obs.ObservedAt)
}

func TestCurrentRetriesProviderRateLimit(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, observationPayload)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	obs, err := client.Current(context.Background(), "London")

	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, SourceLive, obs.Source)
}

func TestCurrentDoesNotRetryNotFound(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Current(context.Background(), "Atlantis")

	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), requests.Load(), "client errors must not be retried")
	assert.Contains(t, err.Error(), "Atlantis")
}

func TestCurrentDoesNotRetryUnauthorized(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Current(context.Background(), "London")

	require.ErrorIs(t, err, ErrInvalidKey)
	assert.Equal(t, int32(1), requests.Load())
}

func TestCurrentExhaustsAttempts(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Current(context.Background(), "London")

	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), requests.Load())
}

func TestCurrentShortCircuitsWhenBreakerOpens(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	// Two exhausted calls push the breaker past its failure threshold.
	_, err := client.Current(context.Background(), "London")
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = client.Current(context.Background(), "London")
	require.ErrorIs(t, err, ErrUnavailable)

	reached := requests.Load()
	_, err = client.Current(context.Background(), "London")

	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, reached, requests.Load(), "an open breaker must not reach the upstream")
}

func TestCurrentStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Current(ctx, "London")

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), requests.Load())
}

func TestCurrentSendsExpectedQuery(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		fmt.Fprint(w, observationPayload)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Current(context.Background(), "New York")

	require.NoError(t, err)
	assert.Equal(t, "/weather", gotPath)
	assert.Equal(t, "New York", gotQuery.Get("q"))
	assert.Equal(t, "test-key", gotQuery.Get("appid"))
	assert.Equal(t, "metric", gotQuery.Get("units"))
}

func TestBackoffGrowsAndStaysBounded(t *testing.T) {
	client := newOpenWeatherClient(Config{
		APIKey: "test-key",
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    400 * time.Millisecond,
		},
	})

	tests := []struct {
		attempt int
		floor   time.Duration
	}{
		{attempt: 1, floor: 100 * time.Millisecond},
		{attempt: 2, floor: 200 * time.Millisecond},
		{attempt: 3, floor: 400 * time.Millisecond},
		{attempt: 4, floor: 400 * time.Millisecond}, // capped
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			delay := client.backoff(tt.attempt)
			ceiling := tt.floor + tt.floor/10
			assert.GreaterOrEqual(t, delay, tt.floor)
			assert.LessOrEqual(t, delay, ceiling)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled context", err: context.Canceled, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "provider rate limit", err: ErrRateLimited, want: true},
		{name: "upstream unavailable", err: fmt.Errorf("%w: HTTP 503", ErrUnavailable), want: true},
		{name: "transport failure", err: &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, want: true},
		{name: "invalid key", err: ErrInvalidKey, want: false},
		{name: "unknown city", err: ErrNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func decodePayload(t *testing.T, raw string) openWeatherResponse {
	t.Helper()

	var payload openWeatherResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestMapResponse(t *testing.T) {
	t.Run("prefers detailed description", func(t *testing.T) {
		payload := decodePayload(t, `{"name":"Paris","weather":[{"main":"Rain","description":"light rain"}]}`)

		obs := mapResponse(payload, "Paris")
		assert.Equal(t, "light rain", obs.Description)
	})

	t.Run("falls back to condition group", func(t *testing.T) {
		payload := decodePayload(t, `{"name":"Paris","weather":[{"main":"Rain"}]}`)

		obs := mapResponse(payload, "Paris")
		assert.Equal(t, "Rain", obs.Description)
	})

	t.Run("falls back to requested city name", func(t *testing.T) {
		obs := mapResponse(openWeatherResponse{}, "Osaka")
		assert.Equal(t, "Osaka", obs.City)
	})

	t.Run("stamps observation time when missing", func(t *testing.T) {
		obs := mapResponse(openWeatherResponse{}, "Osaka")
		assert.WithinDuration(t, time.Now().UTC(), obs.ObservedAt, time.Minute)
	})
}

func TestOfflineClientIsDeterministic(t *testing.T) {
	client := NewOfflineClient()

	first, err := client.Current(context.Background(), "London")
	require.NoError(t, err)
	second, err := client.Current(context.Background(), "London")
	require.NoError(t, err)

	assert.Equal(t, SourceOffline, first.Source)
	assert.Equal(t, "London", first.City)
	assert.Equal(t, 22.5, first.Temperature)
	assert.Equal(t, 24.0, first.FeelsLike)
	assert.Equal(t, 65, first.Humidity)
	assert.Equal(t, "partly cloudy", first.Description)

	assert.Equal(t, first.Temperature, second.Temperature)
	assert.Equal(t, first.Description, second.Description)
}

func TestNewClientSelectsVariant(t *testing.T) {
	t.Run("no credential", func(t *testing.T) {
		client := NewClient(Config{APIKey: "   "})
		_, ok := client.(offlineClient)
		assert.True(t, ok)
	})

	t.Run("credential configured", func(t *testing.T) {
		client := NewClient(Config{APIKey: "abc123"})
		_, ok := client.(*openWeatherClient)
		assert.True(t, ok)
	})
}
