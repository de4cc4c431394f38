package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weatherbot/internal/models"
	"github.com/charlesng35/weatherbot/internal/ratelimit"
	"github.com/charlesng35/weatherbot/internal/services"
	apperrors "github.com/charlesng35/weatherbot/pkg/errors"
	"github.com/charlesng35/weatherbot/pkg/metrics"
	"github.com/charlesng35/weatherbot/pkg/response"
)

// WeatherHandler serves the direct lookup channel. It shares the lookup
// pipeline with the webhook but speaks JSON and keys rate limiting by
// client address instead of sender identity.
type WeatherHandler struct {
	lookup  *services.LookupService
	records *services.RecordService
	limiter *ratelimit.Limiter
}

// NewWeatherHandler constructs the direct API handler.
func NewWeatherHandler(
	lookup *services.LookupService,
	records *services.RecordService,
	limiter *ratelimit.Limiter,
) *WeatherHandler {
	return &WeatherHandler{
		lookup:  lookup,
		records: records,
		limiter: limiter,
	}
}

type weatherRequest struct {
	City string `json:"city" validate:"required,max=100"`
}

type weatherRecordDTO struct {
	ID          uint    `json:"id"`
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
}

type lookupDTO struct {
	ID          uint    `json:"id"`
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Source      string  `json:"source"`
	ObservedAt  string  `json:"observed_at"`
	CreatedAt   string  `json:"created_at"`
}

func mapRecord(record *models.WeatherRecord) weatherRecordDTO {
	return weatherRecordDTO{
		ID:          record.ID,
		City:        record.City,
		Temperature: record.Temperature,
		FeelsLike:   record.FeelsLike,
		Humidity:    record.Humidity,
		Description: record.Description,
		CreatedAt:   record.CreatedAt.Format(time.RFC3339),
	}
}

func mapLookup(result *services.LookupResult) lookupDTO {
	record := result.Record
	return lookupDTO{
		ID:          record.ID,
		City:        record.City,
		Temperature: record.Temperature,
		FeelsLike:   record.FeelsLike,
		Humidity:    record.Humidity,
		Description: record.Description,
		Source:      string(result.Source),
		ObservedAt:  result.ObservedAt.Format(time.RFC3339),
		CreatedAt:   record.CreatedAt.Format(time.RFC3339),
	}
}

// Lookup resolves current weather for the requested city and stores it.
func (h *WeatherHandler) Lookup(c *gin.Context) {
	sender := c.ClientIP()
	if !h.limiter.Allow(sender) {
		metrics.RateLimited.WithLabelValues(sender).Inc()
		response.Error(c, apperrors.ErrRateLimit)
		return
	}

	var req weatherRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.lookup.Lookup(requestContext(c), req.City)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, mapLookup(result))
}

// Recent lists the newest stored lookups.
func (h *WeatherHandler) Recent(c *gin.Context) {
	limit := parseIntQuery(c, "limit", services.DefaultRecentLimit)
	if limit <= 0 {
		limit = services.DefaultRecentLimit
	}
	if limit > services.MaxRecentLimit {
		limit = services.MaxRecentLimit
	}

	records, err := h.records.ListRecent(requestContext(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]weatherRecordDTO, 0, len(records))
	for i := range records {
		items = append(items, mapRecord(&records[i]))
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Count: len(items),
		Limit: limit,
	})
}

// Record fetches one stored lookup by identity.
func (h *WeatherHandler) Record(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		response.Error(c, apperrors.NewBadRequest("record id must be a positive integer"))
		return
	}

	record, err := h.records.GetByID(requestContext(c), id)
	if errors.Is(err, services.ErrRecordNotFound) {
		response.Error(c, apperrors.ErrNotFound)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, mapRecord(record))
}
