package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/weatherbot/internal/models"
)

// AutoMigrate creates the schema when absent. It runs at every startup and
// is idempotent; there is no migrations framework behind it.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.WeatherRecord{},
	)
}
