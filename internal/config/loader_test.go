package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "watch"

[steam]
steam_id = "76561198000000000"
session_id = "sess"
login_secure = "secure"
page_delay = "3s"

[backend]
base_url = "https://api.example.com/api/v1"
api_token = "jwt"

[sync]
watch_interval = "1h"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "watch" {
		t.Errorf("mode: got %q", cfg.Mode)
	}
	if cfg.Steam.PageDelay.Duration != 3*time.Second {
		t.Errorf("page_delay: got %v", cfg.Steam.PageDelay.Duration)
	}
	if cfg.Sync.WatchInterval.Duration != time.Hour {
		t.Errorf("watch_interval: got %v", cfg.Sync.WatchInterval.Duration)
	}
	// Unset fields keep their defaults.
	if cfg.Steam.BaseURL != "https://steamcommunity.com" {
		t.Errorf("base_url default: got %q", cfg.Steam.BaseURL)
	}
	if cfg.Steam.PageSize != 2000 {
		t.Errorf("page_size default: got %d", cfg.Steam.PageSize)
	}
	if cfg.Sync.ItemDelay.Duration != time.Second {
		t.Errorf("item_delay default: got %v", cfg.Sync.ItemDelay.Duration)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[steam]
steam_id = "from-file"
session_id = "sess"
login_secure = "secure"

[backend]
base_url = "https://api.example.com/api/v1"
`)

	t.Setenv("SKINSYNC_STEAM_ID", "from-env")
	t.Setenv("SKINSYNC_SYNC_ITEM_DELAY", "250ms")
	t.Setenv("SKINSYNC_REDIS_ENABLED", "true")
	t.Setenv("SKINSYNC_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Steam.SteamID != "from-env" {
		t.Errorf("steam_id: got %q", cfg.Steam.SteamID)
	}
	if cfg.Sync.ItemDelay.Duration != 250*time.Millisecond {
		t.Errorf("item_delay: got %v", cfg.Sync.ItemDelay.Duration)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis.enabled override lost")
	}
	origins := cfg.Server.CORSOrigins
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Errorf("cors_origins: %v", origins)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "turbo" }, "unknown mode"},
		{"missing session", func(c *Config) { c.Steam.SessionID = "" }, "session_id"},
		{"missing steam id", func(c *Config) { c.Steam.SteamID = "" }, "steam_id"},
		{"missing backend url", func(c *Config) { c.Backend.BaseURL = "" }, "backend: base_url"},
		{"bad page size", func(c *Config) { c.Steam.PageSize = 0 }, "page_size"},
		{"archive without s3", func(c *Config) { c.Sync.ArchiveInventory = true }, "archive_inventory requires s3.enabled"},
		{"watch without interval", func(c *Config) {
			c.Mode = "watch"
			c.Sync.WatchInterval = duration{}
		}, "watch_interval"},
		{"postgres pool", func(c *Config) {
			c.Postgres.Enabled = true
			c.Postgres.PoolMinConns = 20
		}, "pool_min_conns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Steam.SteamID = "76561198000000000"
			cfg.Steam.SessionID = "sess"
			cfg.Steam.LoginSecure = "secure"
			cfg.Backend.BaseURL = "https://api.example.com/api/v1"

			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateModeRelaxations(t *testing.T) {
	// refresh only calls the backend; no Steam session needed.
	cfg := Defaults()
	cfg.Mode = "refresh"
	cfg.Steam.SteamID = "76561198000000000"
	cfg.Backend.BaseURL = "https://api.example.com/api/v1"
	if err := cfg.Validate(); err != nil {
		t.Errorf("refresh without session: %v", err)
	}

	// server mode accepts API-supplied steam ids.
	cfg = Defaults()
	cfg.Mode = "server"
	cfg.Steam.SessionID = "sess"
	cfg.Steam.LoginSecure = "secure"
	cfg.Backend.BaseURL = "https://api.example.com/api/v1"
	if err := cfg.Validate(); err != nil {
		t.Errorf("server without steam_id: %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Steam.SessionID = "sess"
	cfg.Steam.LoginSecure = "secure"
	cfg.Backend.APIToken = "jwt"
	cfg.Redis.Password = "hunter2"
	cfg.Server.APIKey = "apikey"

	red := RedactedConfig(&cfg)
	if red.Steam.SessionID == "sess" || red.Steam.LoginSecure == "secure" {
		t.Error("steam session not redacted")
	}
	if red.Backend.APIToken == "jwt" {
		t.Error("backend token not redacted")
	}
	if red.Redis.Password == "hunter2" {
		t.Error("redis password not redacted")
	}
	if red.Server.APIKey == "apikey" {
		t.Error("server api key not redacted")
	}
	// The original is untouched.
	if cfg.Backend.APIToken != "jwt" {
		t.Error("redaction mutated the source config")
	}
}
