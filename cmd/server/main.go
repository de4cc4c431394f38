package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/weatherbot/internal/api"
	"github.com/charlesng35/weatherbot/internal/app"
	"github.com/charlesng35/weatherbot/internal/app/refresh"
	"github.com/charlesng35/weatherbot/internal/database"
	"github.com/charlesng35/weatherbot/internal/monitoring"
	"github.com/charlesng35/weatherbot/internal/monitoring/checks"
	"github.com/charlesng35/weatherbot/internal/ratelimit"
	"github.com/charlesng35/weatherbot/internal/services"
	"github.com/charlesng35/weatherbot/internal/weather"
	"github.com/charlesng35/weatherbot/pkg/logger"
)

const defaultShutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	// Local development reads environment overrides from a .env file when present.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("weatherbot-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	records, err := services.NewRecordService(db)
	if err != nil {
		return fmt.Errorf("initialise record service: %w", err)
	}

	client := weather.NewClient(cfg.Weather.ClientConfig())
	if cfg.Weather.Configured() {
		log.Info("weather provider configured", zap.String("base_url", cfg.Weather.ClientConfig().BaseURL))
	} else {
		log.Warn("no weather api key configured; serving offline placeholder conditions")
	}

	lookup, err := services.NewLookupService(client, records)
	if err != nil {
		return fmt.Errorf("initialise lookup service: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	defer limiter.Stop()

	if !cfg.Webhook.Secured() {
		log.Warn("webhook signature verification disabled; set webhook.auth_token to enable it")
	}

	if cfg.Refresh.Enabled {
		refresher := refresh.NewRefresher(lookup, cfg.Refresh.CityList(),
			refresh.WithSchedule(cfg.Refresh.Schedule),
		)
		if err := refresher.Start(); err != nil {
			return fmt.Errorf("start background refresh: %w", err)
		}
		defer func() {
			<-refresher.Stop().Done()
		}()

		if cities := cfg.Refresh.CityList(); len(cities) > 0 {
			log.Info("background refresh enabled",
				zap.String("schedule", cfg.Refresh.Schedule),
				zap.Int("cities", len(cities)))
		} else {
			log.Warn("background refresh enabled with no cities configured")
		}
	}

	router, err := api.NewRouter(cfg, lookup, records, limiter, buildHealthManager(cfg, records))
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func buildHealthManager(cfg *app.Config, records *services.RecordService) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager()
	manager.Register(checks.Database(records))
	manager.Register(checks.Provider(cfg.Weather.Configured()))
	manager.Register(checks.Webhook(cfg.Webhook.Secured()))
	if cfg.Refresh.Enabled {
		manager.Register(checks.Refresh(refresh.JobName, 0))
	}
	return manager
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
