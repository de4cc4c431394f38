package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/weatherbot/internal/models"
	"github.com/charlesng35/weatherbot/internal/validation"
	"github.com/charlesng35/weatherbot/internal/weather"
	apperrors "github.com/charlesng35/weatherbot/pkg/errors"
	"github.com/charlesng35/weatherbot/pkg/logger"
	"github.com/charlesng35/weatherbot/pkg/metrics"
)

// LookupService runs the pipeline shared by every entry point: normalise the
// city, fetch current conditions, persist the outcome. Each successful fetch
// produces exactly one stored record.
type LookupService struct {
	client  weather.Client
	records *RecordService
	log     *zap.Logger
}

// NewLookupService wires the upstream client to the persistence gateway.
func NewLookupService(client weather.Client, records *RecordService) (*LookupService, error) {
	if client == nil {
		return nil, errors.New("lookup service: weather client is required")
	}
	if records == nil {
		return nil, errors.New("lookup service: record service is required")
	}
	return &LookupService{
		client:  client,
		records: records,
		log:     logger.WithModule("lookup"),
	}, nil
}

// LookupResult pairs the persisted record with response-only metadata. The
// source variant is reported to callers but never stored.
type LookupResult struct {
	Record     *models.WeatherRecord
	Source     weather.Source
	ObservedAt time.Time
}

// Lookup validates the requested city, fetches conditions and stores them.
// Failures map onto the application error taxonomy; a lookup whose write
// fails is reported as failed even though the fetch succeeded.
func (s *LookupService) Lookup(ctx context.Context, rawCity string) (*LookupResult, error) {
	if s == nil {
		return nil, errors.New("lookup service: service not initialised")
	}
	// Once admitted, the pipeline runs to completion: a caller that
	// disconnects mid-request must not abort the fetch or the write.
	// Per-attempt timeouts inside the client still bound the fetch.
	ctx = context.WithoutCancel(ensuredContext(ctx))

	city, err := validation.NormalizeCity(rawCity)
	if err != nil {
		metrics.WeatherLookups.WithLabelValues("invalid", "invalid_city").Inc()
		return nil, apperrors.NewInvalidCity(invalidCityMessage(err)).WithInternal(err)
	}

	obs, err := s.client.Current(ctx, city)
	if err != nil {
		return nil, s.fetchError(city, err)
	}

	record := &models.WeatherRecord{
		City:        obs.City,
		Temperature: obs.Temperature,
		FeelsLike:   obs.FeelsLike,
		Humidity:    obs.Humidity,
		Description: obs.Description,
	}

	if err := s.records.Save(ctx, record); err != nil {
		metrics.WeatherLookups.WithLabelValues(city, "persistence_failed").Inc()
		s.log.Error("persist lookup",
			zap.String("city", city),
			zap.Error(err))
		return nil, apperrors.ErrPersistenceFailed.WithInternal(err)
	}

	metrics.WeatherLookups.WithLabelValues(city, "success").Inc()
	return &LookupResult{
		Record:     record,
		Source:     obs.Source,
		ObservedAt: obs.ObservedAt,
	}, nil
}

func (s *LookupService) fetchError(city string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		// Caller went away before anything was fetched; not a pipeline failure.
		return err
	case errors.Is(err, weather.ErrNotFound):
		metrics.WeatherLookups.WithLabelValues(city, "not_found").Inc()
		return apperrors.ErrCityNotFound.WithInternal(err)
	case errors.Is(err, weather.ErrInvalidKey):
		metrics.WeatherLookups.WithLabelValues(city, "upstream_error").Inc()
		s.log.Error("provider rejected credentials", zap.Error(err))
		return apperrors.ErrUpstreamUnavailable.WithInternal(err)
	default:
		metrics.WeatherLookups.WithLabelValues(city, "upstream_error").Inc()
		s.log.Warn("upstream fetch failed",
			zap.String("city", city),
			zap.Error(err))
		return apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}
}

func invalidCityMessage(err error) string {
	switch {
	case errors.Is(err, validation.ErrCityEmpty):
		return "Please provide a city name"
	case errors.Is(err, validation.ErrCityNumeric):
		return "A city name cannot be only numbers"
	case errors.Is(err, validation.ErrCityTooLong):
		return "That city name is too long"
	default:
		return apperrors.ErrInvalidCity.Message
	}
}
