package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WeatherLookups records completed lookups by city and result (success|error).
	WeatherLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherbot_weather_requests_total",
			Help: "Total number of weather lookups",
		},
		[]string{"city", "status"},
	)

	// WebhookMessages counts inbound webhook messages by dispatched kind
	// (greeting|help|ping|weather|error).
	WebhookMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherbot_webhook_messages_total",
			Help: "Total number of webhook messages processed",
		},
		[]string{"message_type"},
	)

	// RateLimited counts admission rejections per sender key (the webhook
	// sender identity or, on the direct API, the client address).
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherbot_rate_limited_total",
			Help: "Total number of rate-limited requests",
		},
		[]string{"sender"},
	)

	// UpstreamRetries counts retry attempts against the weather provider.
	UpstreamRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherbot_upstream_retries_total",
			Help: "Total number of upstream fetch retries",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherbot_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// DatabaseOperationDuration measures persistence gateway calls by operation.
	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherbot_database_operation_seconds",
			Help:    "Database operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// BackgroundJobRuns counts scheduled job completions by job and result.
	BackgroundJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherbot_background_job_runs_total",
			Help: "Total number of background job runs",
		},
		[]string{"job", "result"},
	)

	// BackgroundJobDuration measures how long each background job run takes.
	BackgroundJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherbot_background_job_duration_seconds",
			Help:    "Background job run duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)
