package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/weatherbot/internal/monitoring"
	"github.com/charlesng35/weatherbot/internal/services"
	"github.com/charlesng35/weatherbot/pkg/logger"
)

// JobName identifies refresh runs in job history and metrics.
const JobName = "refresh"

const defaultSchedule = "@every 15m"

// Refresher periodically fetches weather for a fixed set of cities so their
// stored history keeps growing even when nobody asks. Each run persists one
// record per city through the ordinary lookup pipeline.
type Refresher struct {
	lookup   *services.LookupService
	cities   []string
	cron     *cron.Cron
	schedule string
	log      *zap.Logger
	enabled  bool
}

// Option customises the Refresher.
type Option func(*Refresher)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Refresher) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithSchedule overrides the cron expression for refresh runs.
func WithSchedule(spec string) Option {
	return func(r *Refresher) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// NewRefresher constructs a Refresher. With no lookup service or an empty
// city list the refresher stays dormant and Start becomes a no-op.
func NewRefresher(lookup *services.LookupService, cities []string, opts ...Option) *Refresher {
	refresher := &Refresher{
		lookup:   lookup,
		cities:   cities,
		schedule: defaultSchedule,
		log:      logger.WithModule("refresh"),
	}

	for _, opt := range opts {
		opt(refresher)
	}

	if refresher.cron == nil {
		refresher.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	refresher.enabled = refresher.lookup != nil && len(refresher.cities) > 0

	return refresher
}

// Start registers the refresh job with the cron scheduler and launches it.
func (r *Refresher) Start() error {
	if !r.enabled {
		return nil
	}

	if _, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			r.log.Warn("scheduled refresh finished with failures", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running job to complete.
func (r *Refresher) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce refreshes every configured city sequentially and records the run
// in job history. Failures are aggregated so one unreachable city does not
// starve the rest.
func (r *Refresher) RunOnce(ctx context.Context) error {
	if !r.enabled {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	var errs error
	for _, city := range r.cities {
		if _, err := r.lookup.Lookup(ctx, city); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refresh %s: %w", city, err))
		}
	}

	monitoring.RecordJobRun(JobName, errs, time.Since(start))
	return errs
}
