package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/weatherbot/internal/models"
	"github.com/charlesng35/weatherbot/pkg/metrics"
)

var (
	// ErrRecordNotFound indicates the requested weather record does not exist.
	ErrRecordNotFound = errors.New("record service: record not found")
)

const (
	// DefaultRecentLimit applies when a caller does not choose a page size.
	DefaultRecentLimit = 20
	// MaxRecentLimit caps the page size regardless of what the caller asks for.
	MaxRecentLimit = 100

	healthcheckTimeout = 2 * time.Second
)

// RecordService persists weather lookups and reads them back for the API.
type RecordService struct {
	db *gorm.DB

	// SQLite permits a single writer at a time, so inserts are serialised
	// for that driver. Networked databases handle concurrency themselves.
	writeMu   sync.Mutex
	serialise bool
}

// NewRecordService constructs a record service once a database handle is supplied.
func NewRecordService(db *gorm.DB) (*RecordService, error) {
	if db == nil {
		return nil, errors.New("record service: db is required")
	}
	return &RecordService{
		db:        db,
		serialise: db.Dialector.Name() == "sqlite",
	}, nil
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Save inserts a completed lookup. The record's ID and CreatedAt are
// populated on return.
func (s *RecordService) Save(ctx context.Context, record *models.WeatherRecord) error {
	if s == nil {
		return errors.New("record service: service not initialised")
	}
	if record == nil {
		return errors.New("record service: record is required")
	}
	if strings.TrimSpace(record.City) == "" {
		return errors.New("record service: city is required")
	}
	ctx = ensuredContext(ctx)

	if s.serialise {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Create(record).Error
	metrics.DatabaseOperationDuration.WithLabelValues("insert").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("record service: save record: %w", err)
	}
	return nil
}

// GetByID fetches a single record.
func (s *RecordService) GetByID(ctx context.Context, id uint) (*models.WeatherRecord, error) {
	if s == nil {
		return nil, errors.New("record service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	var record models.WeatherRecord
	err := s.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record service: load record %d: %w", id, err)
	}
	return &record, nil
}

// ListRecent returns the newest records first, bounded by limit.
func (s *RecordService) ListRecent(ctx context.Context, limit int) ([]models.WeatherRecord, error) {
	if s == nil {
		return nil, errors.New("record service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	var records []models.WeatherRecord
	start := time.Now()
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	metrics.DatabaseOperationDuration.WithLabelValues("select").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("record service: list records: %w", err)
	}
	return records, nil
}

// CountByCity reports how many lookups have been stored for a city.
func (s *RecordService) CountByCity(ctx context.Context, city string) (int64, error) {
	if s == nil {
		return 0, errors.New("record service: service not initialised")
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return 0, errors.New("record service: city is required")
	}
	ctx = ensuredContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.WeatherRecord{}).
		Where("city = ?", city).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("record service: count records: %w", err)
	}
	return count, nil
}

// Healthcheck verifies connectivity with a single bounded ping, no retries.
func (s *RecordService) Healthcheck(ctx context.Context) error {
	if s == nil {
		return errors.New("record service: service not initialised")
	}

	ctx, cancel := context.WithTimeout(ensuredContext(ctx), healthcheckTimeout)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("record service: acquire connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("record service: ping database: %w", err)
	}
	return nil
}
