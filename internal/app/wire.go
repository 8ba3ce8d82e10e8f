package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/skinfolio/skinsync/internal/blob/s3"
	"github.com/skinfolio/skinsync/internal/cache/memory"
	"github.com/skinfolio/skinsync/internal/cache/redis"
	"github.com/skinfolio/skinsync/internal/config"
	"github.com/skinfolio/skinsync/internal/domain"
	"github.com/skinfolio/skinsync/internal/notify"
	"github.com/skinfolio/skinsync/internal/platform/backend"
	"github.com/skinfolio/skinsync/internal/platform/steam"
	"github.com/skinfolio/skinsync/internal/store/postgres"
)

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Platform clients
	Steam   *steam.Client
	Backend *backend.Client

	// Caches and locks. Views is always set (Redis when enabled, otherwise a
	// process-local cache); Locks is nil without Redis.
	Views domain.ViewCache
	Locks domain.LockManager

	// Sync journal; nil when Postgres is disabled.
	Runs domain.SyncRunStore

	// Inventory archival; nil when S3 is disabled.
	Archiver *s3blob.InventoryArchiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Platform clients ---
	deps.Steam = steam.NewClient(cfg.Steam.BaseURL, domain.SteamCredentials{
		SessionID:   cfg.Steam.SessionID,
		LoginSecure: cfg.Steam.LoginSecure,
	}, steam.WithPageSize(cfg.Steam.PageSize))

	deps.Backend = backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIToken)

	// --- Redis (view cache + cross-process sync lock) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Views = redis.NewViewCache(redisClient)
		deps.Locks = redis.NewLockManager(redisClient)
	} else {
		deps.Views = memory.NewViewCache()
	}

	// --- PostgreSQL (sync-run journal) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Runs = postgres.NewSyncRunStore(pgClient.Pool())
	}

	// --- S3 blob storage (inventory archival) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewInventoryArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
