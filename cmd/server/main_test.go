package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weatherbot/internal/app"
	"github.com/charlesng35/weatherbot/internal/database"
)

func TestConvertDatabaseConfigDefaultsToSQLite(t *testing.T) {
	cfg := &app.Config{}
	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, database.DriverSQLite, dbCfg.Driver)
}

func TestConvertDatabaseConfigPostgres(t *testing.T) {
	cfg := &app.Config{
		Database: app.DatabaseConfig{
			Driver: " PostgreSQL ",
			Postgres: app.DBAuthConfig{
				Host:     " db.example.com ",
				Port:     5433,
				Database: "weatherbot",
				Username: "bot",
				Password: "secret",
			},
		},
	}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, database.DriverPostgres, dbCfg.Driver)
	require.Equal(t, "db.example.com", dbCfg.Host)
	require.Equal(t, 5433, dbCfg.Port)
	require.Equal(t, "weatherbot", dbCfg.Name)
	require.Equal(t, "bot", dbCfg.User)
	require.Equal(t, "secret", dbCfg.Password)
}

func TestConvertDatabaseConfigMySQL(t *testing.T) {
	cfg := &app.Config{
		Database: app.DatabaseConfig{
			Driver: "mysql",
			MySQL: app.DBAuthConfig{
				Host:     "mysql.example.com",
				Port:     3307,
				Database: "weatherbot",
				Username: "bot",
				Password: "secret",
			},
		},
	}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, database.DriverMySQL, dbCfg.Driver)
	require.Equal(t, "mysql.example.com", dbCfg.Host)
	require.Equal(t, 3307, dbCfg.Port)
}

func TestConvertDatabaseConfigUnknownDriverPassesThrough(t *testing.T) {
	cfg := &app.Config{Database: app.DatabaseConfig{Driver: "oracle"}}
	require.Equal(t, "oracle", convertDatabaseConfig(cfg).Driver)
}

func TestLoadApplicationConfigResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server:\n  port: 7070\n"), 0o600))

	cfg, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)

	cfg, err = loadApplicationConfig(configFile)
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)

	_, err = loadApplicationConfig(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestBuildHealthManagerRegistersRefreshProbe(t *testing.T) {
	cfg := &app.Config{}
	report := buildHealthManager(cfg, nil).Evaluate(context.Background())
	require.Len(t, report.Checks, 3)

	cfg.Refresh.Enabled = true
	report = buildHealthManager(cfg, nil).Evaluate(context.Background())
	require.Len(t, report.Checks, 4)
}
