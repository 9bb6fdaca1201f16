// README: Config loader with env defaults for HTTP, platform gateway, DB, Redis, auth and monitor settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fleetops/internal/types"
)

type PlatformConfig struct {
	BaseURL        string
	Token          string
	UserAgent      string
	Timeout        time.Duration
	PageDelay      time.Duration
	RidesPerPage   int
	DriversPerPage int
	RoutesPerPage  int
	Workers        int
	Timezone       string
}

// Location resolves Timezone; callers get an error only for an unknown zone name.
func (p PlatformConfig) Location() (*time.Location, error) {
	return time.LoadLocation(p.Timezone)
}

type MonitorConfig struct {
	DriverIDs   []types.ID
	LeadMinutes int
	Interval    time.Duration
}

type Config struct {
	HTTP struct {
		Addr string
	}
	Platform PlatformConfig
	DB       struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	// APIToken is a shared secret accepted instead of Firebase ID tokens.
	APIToken string
	Notify   struct {
		// Topic is the FCM topic monitor actions are pushed to; empty disables pushes.
		Topic string
	}
	Monitor MonitorConfig
	Log     struct {
		Level string
	}
}

var ErrMissingToken = errors.New("FLEETOPS_PLATFORM_TOKEN is required")

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("FLEETOPS_HTTP_ADDR", ":8080")

	cfg.Platform = PlatformConfig{
		BaseURL:        strings.TrimRight(envOrDefault("FLEETOPS_PLATFORM_BASE_URL", "http://api-admin.myle.tech/api/v1"), "/"),
		Token:          strings.TrimSpace(os.Getenv("FLEETOPS_PLATFORM_TOKEN")),
		UserAgent:      envOrDefault("FLEETOPS_USER_AGENT", "fleetops/1.0"),
		Timeout:        envOrDefaultDuration("FLEETOPS_PLATFORM_TIMEOUT", 30*time.Second),
		PageDelay:      envOrDefaultDuration("FLEETOPS_PAGE_DELAY", 200*time.Millisecond),
		RidesPerPage:   envOrDefaultInt("FLEETOPS_RIDES_PER_PAGE", 500),
		DriversPerPage: envOrDefaultInt("FLEETOPS_DRIVERS_PER_PAGE", 100),
		RoutesPerPage:  envOrDefaultInt("FLEETOPS_ROUTES_PER_PAGE", 100),
		Workers:        envOrDefaultInt("FLEETOPS_WORKERS", 15),
		Timezone:       envOrDefault("FLEETOPS_TIMEZONE", "America/New_York"),
	}
	if cfg.Platform.Token == "" {
		return cfg, ErrMissingToken
	}
	if _, err := cfg.Platform.Location(); err != nil {
		return cfg, fmt.Errorf("FLEETOPS_TIMEZONE: %w", err)
	}

	cfg.DB.DSN = os.Getenv("FLEETOPS_DB_DSN")
	cfg.Redis.Addr = os.Getenv("FLEETOPS_REDIS_ADDR")
	cfg.Firebase.ProjectID = os.Getenv("FLEETOPS_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("FLEETOPS_FIREBASE_CREDENTIALS_FILE")
	cfg.APIToken = os.Getenv("FLEETOPS_API_TOKEN")
	cfg.Notify.Topic = os.Getenv("FLEETOPS_NOTIFY_TOPIC")

	ids, err := types.ParseIDs(os.Getenv("FLEETOPS_MONITOR_DRIVERS"))
	if err != nil {
		return cfg, fmt.Errorf("FLEETOPS_MONITOR_DRIVERS: %w", err)
	}
	cfg.Monitor = MonitorConfig{
		DriverIDs:   ids,
		LeadMinutes: envOrDefaultInt("FLEETOPS_MONITOR_LEAD_MINUTES", 60),
		Interval:    envOrDefaultDuration("FLEETOPS_MONITOR_INTERVAL", 30*time.Second),
	}

	cfg.Log.Level = envOrDefault("FLEETOPS_LOG_LEVEL", "info")
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// envOrDefaultDuration accepts Go durations ("200ms") and treats a bare number as seconds.
func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
