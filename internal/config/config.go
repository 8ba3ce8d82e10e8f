// Package config defines the top-level configuration for the skin inventory
// sync service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SKINSYNC_* environment variables.
type Config struct {
	Steam    SteamConfig    `toml:"steam"`
	Backend  BackendConfig  `toml:"backend"`
	Sync     SyncConfig     `toml:"sync"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// SteamConfig holds the Steam community endpoint and session credentials.
type SteamConfig struct {
	BaseURL     string   `toml:"base_url"`
	SteamID     string   `toml:"steam_id"`
	SessionID   string   `toml:"session_id"`
	LoginSecure string   `toml:"login_secure"`
	PageSize    int      `toml:"page_size"`
	PageDelay   duration `toml:"page_delay"`
}

// BackendConfig holds the backend-of-record API endpoint and credentials.
type BackendConfig struct {
	BaseURL              string `toml:"base_url"`
	APIToken             string `toml:"api_token"`
	PortfolioHistoryDays int    `toml:"portfolio_history_days"`
}

// SyncConfig holds the refresh pipeline parameters.
type SyncConfig struct {
	ItemDelay        duration `toml:"item_delay"`
	MaxPages         int      `toml:"max_pages"`
	LockTTL          duration `toml:"lock_ttl"`
	WatchInterval    duration `toml:"watch_interval"`
	ArchiveInventory bool     `toml:"archive_inventory"`
}

// PostgresConfig holds PostgreSQL connection parameters for the sync journal.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the view cache and the
// distributed sync lock.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for inventory
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "2s", "30m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Steam: SteamConfig{
			BaseURL:   "https://steamcommunity.com",
			PageSize:  2000,
			PageDelay: duration{2 * time.Second},
		},
		Backend: BackendConfig{
			PortfolioHistoryDays: 30,
		},
		Sync: SyncConfig{
			ItemDelay:        duration{1 * time.Second},
			MaxPages:         64,
			LockTTL:          duration{30 * time.Minute},
			WatchInterval:    duration{6 * time.Hour},
			ArchiveInventory: false,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "skinsync",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "skinsync-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"sync_completed", "sync_failed"},
		},
		Mode:     "sync",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"sync":    true,
	"refresh": true,
	"watch":   true,
	"server":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: sync, refresh, watch, server)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Steam — session credentials are required for every mode that talks to
	// Steam. The refresh mode only calls the backend.
	if c.Steam.BaseURL == "" {
		errs = append(errs, "steam: base_url must not be empty")
	}
	needsSession := c.Mode == "sync" || c.Mode == "watch" || c.Mode == "server"
	if needsSession {
		if c.Steam.SessionID == "" || c.Steam.LoginSecure == "" {
			errs = append(errs, "steam: session_id and login_secure are required for mode "+c.Mode)
		}
	}
	if c.Steam.SteamID == "" && c.Mode != "server" {
		errs = append(errs, "steam: steam_id is required for mode "+c.Mode)
	}
	if c.Steam.PageSize < 1 || c.Steam.PageSize > 5000 {
		errs = append(errs, fmt.Sprintf("steam: page_size must be 1-5000, got %d", c.Steam.PageSize))
	}
	if c.Steam.PageDelay.Duration < 0 {
		errs = append(errs, "steam: page_delay must not be negative")
	}

	// Backend
	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend: base_url must not be empty")
	}
	if c.Backend.PortfolioHistoryDays < 1 {
		errs = append(errs, "backend: portfolio_history_days must be >= 1")
	}

	// Sync
	if c.Sync.ItemDelay.Duration < 0 {
		errs = append(errs, "sync: item_delay must not be negative")
	}
	if c.Sync.MaxPages < 1 {
		errs = append(errs, "sync: max_pages must be >= 1")
	}
	if c.Sync.LockTTL.Duration <= 0 {
		errs = append(errs, "sync: lock_ttl must be positive")
	}
	if c.Mode == "watch" && c.Sync.WatchInterval.Duration <= 0 {
		errs = append(errs, "sync: watch_interval must be positive for watch mode")
	}
	if c.Sync.ArchiveInventory && !c.S3.Enabled {
		errs = append(errs, "sync: archive_inventory requires s3.enabled")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
