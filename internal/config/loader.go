package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SKINSYNC_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SKINSYNC_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Steam ──
	setStr(&cfg.Steam.BaseURL, "SKINSYNC_STEAM_BASE_URL")
	setStr(&cfg.Steam.SteamID, "SKINSYNC_STEAM_ID")
	setStr(&cfg.Steam.SessionID, "SKINSYNC_STEAM_SESSION_ID")
	setStr(&cfg.Steam.LoginSecure, "SKINSYNC_STEAM_LOGIN_SECURE")
	setInt(&cfg.Steam.PageSize, "SKINSYNC_STEAM_PAGE_SIZE")
	setDuration(&cfg.Steam.PageDelay, "SKINSYNC_STEAM_PAGE_DELAY")

	// ── Backend ──
	setStr(&cfg.Backend.BaseURL, "SKINSYNC_BACKEND_BASE_URL")
	setStr(&cfg.Backend.APIToken, "SKINSYNC_BACKEND_API_TOKEN")
	setInt(&cfg.Backend.PortfolioHistoryDays, "SKINSYNC_BACKEND_PORTFOLIO_HISTORY_DAYS")

	// ── Sync ──
	setDuration(&cfg.Sync.ItemDelay, "SKINSYNC_SYNC_ITEM_DELAY")
	setInt(&cfg.Sync.MaxPages, "SKINSYNC_SYNC_MAX_PAGES")
	setDuration(&cfg.Sync.LockTTL, "SKINSYNC_SYNC_LOCK_TTL")
	setDuration(&cfg.Sync.WatchInterval, "SKINSYNC_SYNC_WATCH_INTERVAL")
	setBool(&cfg.Sync.ArchiveInventory, "SKINSYNC_SYNC_ARCHIVE_INVENTORY")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SKINSYNC_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SKINSYNC_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SKINSYNC_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SKINSYNC_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SKINSYNC_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SKINSYNC_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SKINSYNC_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SKINSYNC_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SKINSYNC_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SKINSYNC_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SKINSYNC_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SKINSYNC_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SKINSYNC_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SKINSYNC_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SKINSYNC_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SKINSYNC_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SKINSYNC_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SKINSYNC_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SKINSYNC_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SKINSYNC_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SKINSYNC_S3_REGION")
	setStr(&cfg.S3.Bucket, "SKINSYNC_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SKINSYNC_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SKINSYNC_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SKINSYNC_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SKINSYNC_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SKINSYNC_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SKINSYNC_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SKINSYNC_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SKINSYNC_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SKINSYNC_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SKINSYNC_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SKINSYNC_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SKINSYNC_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SKINSYNC_MODE")
	setStr(&cfg.LogLevel, "SKINSYNC_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
