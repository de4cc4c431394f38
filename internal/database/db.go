package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Networked connection pool tuning. The embedded backend keeps gorm's
// default single connection; write serialization there is the caller's job.
const (
	maxOpenConns    = 15
	maxIdleConns    = 5
	connMaxLifetime = time.Hour
)

// Config contains database connection options.
type Config struct {
	Driver   string            // sqlite, postgres or mysql; empty means auto-resolve
	Path     string            // SQLite database path
	DSN      string            // full DSN override; its scheme participates in resolution
	Host     string
	Port     int
	User     string
	Password string
	Name     string            // database name for networked stores
	Options  map[string]string // extra driver parameters (sslmode, tls, ...)
}

// ResolveDriver decides which backend a Config targets. An explicit driver
// wins; otherwise a DSN scheme or the presence of networked connection
// parameters selects the networked store, and everything else falls back to
// the embedded SQLite file. Resolution happens once per Open; the backend is
// never hot-swapped mid-process.
func ResolveDriver(cfg Config) string {
	if driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver != "" {
		if driver == "postgresql" {
			return DriverPostgres
		}
		return driver
	}

	dsn := strings.ToLower(strings.TrimSpace(cfg.DSN))
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(dsn, "mysql://"):
		return DriverMySQL
	}

	if cfg.Name != "" && (cfg.Host != "" || cfg.User != "") {
		return DriverPostgres
	}

	return DriverSQLite
}

// Open initialises a gorm.DB using the provided configuration.
func Open(cfg Config) (*gorm.DB, error) {
	switch driver := ResolveDriver(cfg); driver {
	case DriverSQLite:
		return openSQLite(cfg)
	case DriverPostgres:
		db, err := openPostgres(cfg)
		if err != nil {
			return nil, err
		}
		return db, configurePool(db)
	case DriverMySQL:
		db, err := openMySQL(cfg)
		if err != nil {
			return nil, err
		}
		return db, configurePool(db)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return nil
}
