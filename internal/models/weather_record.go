package models

import (
	"time"

	"gorm.io/gorm"
)

// WeatherRecord is one completed lookup. Records are append-only: the core
// inserts them and never updates or deletes.
type WeatherRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	City        string    `gorm:"size:100;not null;index" json:"city"`
	Temperature float64   `gorm:"not null" json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    int       `json:"humidity"`
	Description string    `gorm:"size:200" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate stamps the record with a UTC creation time.
func (r *WeatherRecord) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	} else {
		r.CreatedAt = r.CreatedAt.UTC()
	}
	return nil
}
