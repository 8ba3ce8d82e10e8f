package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skinfolio/skinsync/internal/domain"
	"github.com/skinfolio/skinsync/internal/server"
	"github.com/skinfolio/skinsync/internal/server/handler"
	"github.com/skinfolio/skinsync/internal/server/ws"
	"github.com/skinfolio/skinsync/internal/service"
	syncpkg "github.com/skinfolio/skinsync/internal/sync"
)

// pipeline bundles the sync orchestrator with the services the HTTP layer
// also needs.
type pipeline struct {
	orch      *syncpkg.Orchestrator
	portfolio *service.PortfolioService
	history   *service.HistoryService
}

// buildPipeline assembles the full sync pipeline around the wired
// dependencies. reporter receives step and progress events; pass nil for
// log-only reporting.
func (a *App) buildPipeline(deps *Dependencies, reporter syncpkg.Reporter) *pipeline {
	logger := a.logger

	aggregator := syncpkg.NewInventoryAggregator(
		deps.Steam,
		a.cfg.Steam.PageDelay.Duration,
		a.cfg.Sync.MaxPages,
		logger,
	)
	batcher := syncpkg.NewHistoryBatcher(
		deps.Steam,
		deps.Backend,
		a.cfg.Sync.ItemDelay.Duration,
		logger,
	)
	portfolioSvc := service.NewPortfolioService(
		deps.Backend,
		deps.Views,
		a.cfg.Backend.PortfolioHistoryDays,
		logger,
	)
	historySvc := service.NewHistoryService(deps.Backend, logger)

	if reporter == nil {
		reporter = syncpkg.LogReporter{Logger: logger}
	} else {
		reporter = syncpkg.MultiReporter{reporter, syncpkg.LogReporter{Logger: logger}}
	}

	var opts []syncpkg.OrchestratorOption
	if deps.Locks != nil {
		opts = append(opts, syncpkg.WithLockManager(deps.Locks, a.cfg.Sync.LockTTL.Duration))
	}
	if deps.Runs != nil {
		opts = append(opts, syncpkg.WithRunStore(deps.Runs))
	}
	if deps.Archiver != nil && a.cfg.Sync.ArchiveInventory {
		opts = append(opts, syncpkg.WithArchiver(deps.Archiver))
	}
	opts = append(opts, syncpkg.WithNotifier(deps.Notifier))

	orch := syncpkg.NewOrchestrator(
		aggregator,
		deps.Backend,
		deps.Backend,
		batcher,
		portfolioSvc,
		reporter,
		logger,
		opts...,
	)

	return &pipeline{
		orch:      orch,
		portfolio: portfolioSvc,
		history:   historySvc,
	}
}

// SyncMode runs one full sync for the configured account and exits.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode",
		slog.String("steam_id", a.cfg.Steam.SteamID),
	)

	p := a.buildPipeline(deps, nil)

	job, stats, err := p.orch.Run(ctx, a.cfg.Steam.SteamID)
	if err != nil {
		return fmt.Errorf("app: sync run %s: %w", job.ID, err)
	}

	a.logger.InfoContext(ctx, "sync finished",
		slog.String("job_id", job.ID),
		slog.Int("prices_total", stats.Total),
		slog.Int("prices_success", stats.Success),
		slog.Int("prices_failed", stats.Failed),
	)
	return nil
}

// RefreshMode asks the backend to recompute the inventory from its current
// data without contacting Steam, then reloads the cached views. Used when
// the Steam session is unavailable but prices have moved.
func (a *App) RefreshMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting refresh mode",
		slog.String("steam_id", a.cfg.Steam.SteamID),
	)

	result, err := deps.Backend.RefreshInventory(ctx)
	if err != nil {
		return fmt.Errorf("app: refresh inventory: %w", err)
	}
	a.logger.InfoContext(ctx, "inventory refreshed",
		slog.Int("items_synced", result.ItemsSynced),
		slog.String("status", result.Status),
	)

	p := a.buildPipeline(deps, nil)
	if err := p.portfolio.Reload(ctx, a.cfg.Steam.SteamID); err != nil {
		return fmt.Errorf("app: reload views: %w", err)
	}
	return nil
}

// WatchMode runs a full sync at the configured interval and serves the API
// in parallel when the server is enabled. The first sync starts immediately.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode",
		slog.String("steam_id", a.cfg.Steam.SteamID),
		slog.Duration("interval", a.cfg.Sync.WatchInterval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)

	var hub *ws.Hub
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(a.logger)
		g.Go(func() error {
			err := hub.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	var reporter syncpkg.Reporter
	if hub != nil {
		reporter = hub
	}
	p := a.buildPipeline(deps, reporter)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, p, hub)
	}

	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Sync.WatchInterval.Duration)
		defer ticker.Stop()

		for {
			a.runWatchSync(ctx, p)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runWatchSync runs one sync iteration. Failures are logged, not fatal; the
// next tick retries.
func (a *App) runWatchSync(ctx context.Context, p *pipeline) {
	job, _, err := p.orch.Run(ctx, a.cfg.Steam.SteamID)
	if err != nil {
		if errors.Is(err, domain.ErrSyncBusy) || errors.Is(err, context.Canceled) {
			return
		}
		a.logger.ErrorContext(ctx, "watch sync failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
			slog.String("class", string(syncpkg.Classify(err))),
		)
	}
}

// ServerMode serves the API without a periodic sync loop; syncs run only
// when triggered over the API.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	p := a.buildPipeline(deps, hub)
	a.startHTTPServer(ctx, g, deps, p, hub)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startHTTPServer registers the API handlers and runs the HTTP server under
// the errgroup, shutting it down when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, p *pipeline, hub *ws.Hub) {
	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Sync:      handler.NewSyncHandler(p.orch, deps.Runs, a.logger),
		Portfolio: handler.NewPortfolioHandler(p.portfolio, p.history, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	})
}
