package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skinfolio/skinsync/internal/domain"
)

const defaultViewTTL = 15 * time.Minute

// PortfolioReader reads rendered portfolio views from the backend.
type PortfolioReader interface {
	Portfolio(ctx context.Context, steamID string) ([]byte, error)
	PortfolioHistory(ctx context.Context, steamID string, days int) ([]byte, error)
}

// PortfolioService serves the portfolio views the UI renders after a sync.
// Views are cached in the ViewCache; Reload invalidates and rebuilds them,
// which is what the sync orchestrator's final step calls.
type PortfolioService struct {
	reader      PortfolioReader
	views       domain.ViewCache
	historyDays int
	ttl         time.Duration
	logger      *slog.Logger
}

// NewPortfolioService creates a PortfolioService. historyDays is the span of
// the portfolio history view it maintains; zero means 30.
func NewPortfolioService(reader PortfolioReader, views domain.ViewCache, historyDays int, logger *slog.Logger) *PortfolioService {
	if historyDays <= 0 {
		historyDays = 30
	}
	return &PortfolioService{
		reader:      reader,
		views:       views,
		historyDays: historyDays,
		ttl:         defaultViewTTL,
		logger:      logger.With(slog.String("component", "portfolio_service")),
	}
}

// Reload drops the cached views for an account and rebuilds both from the
// backend. It fetches the current view and the history view concurrently;
// either failure fails the reload so a sync never finishes with half-stale
// views.
func (s *PortfolioService) Reload(ctx context.Context, steamID string) error {
	currentKey := currentViewKey(steamID)
	historyKey := historyViewKey(steamID, s.historyDays)

	if err := s.views.Invalidate(ctx, currentKey, historyKey); err != nil {
		return fmt.Errorf("invalidate portfolio views: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		payload, err := s.reader.Portfolio(gctx, steamID)
		if err != nil {
			return fmt.Errorf("fetch portfolio view: %w", err)
		}
		return s.views.SetView(gctx, currentKey, payload, s.ttl)
	})
	g.Go(func() error {
		payload, err := s.reader.PortfolioHistory(gctx, steamID, s.historyDays)
		if err != nil {
			return fmt.Errorf("fetch portfolio history view: %w", err)
		}
		return s.views.SetView(gctx, historyKey, payload, s.ttl)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("portfolio views reloaded", slog.String("steam_id", steamID))
	return nil
}

// CurrentView returns the cached current-portfolio view, fetching and caching
// it on a miss.
func (s *PortfolioService) CurrentView(ctx context.Context, steamID string) ([]byte, error) {
	key := currentViewKey(steamID)
	if payload, err := s.views.GetView(ctx, key); err == nil && payload != nil {
		return payload, nil
	}

	payload, err := s.reader.Portfolio(ctx, steamID)
	if err != nil {
		return nil, fmt.Errorf("fetch portfolio view: %w", err)
	}
	if err := s.views.SetView(ctx, key, payload, s.ttl); err != nil {
		s.logger.Warn("cache portfolio view", slog.String("error", err.Error()))
	}
	return payload, nil
}

// HistoryView returns the cached portfolio history view for the service's
// configured span, fetching and caching it on a miss.
func (s *PortfolioService) HistoryView(ctx context.Context, steamID string) ([]byte, error) {
	key := historyViewKey(steamID, s.historyDays)
	if payload, err := s.views.GetView(ctx, key); err == nil && payload != nil {
		return payload, nil
	}

	payload, err := s.reader.PortfolioHistory(ctx, steamID, s.historyDays)
	if err != nil {
		return nil, fmt.Errorf("fetch portfolio history view: %w", err)
	}
	if err := s.views.SetView(ctx, key, payload, s.ttl); err != nil {
		s.logger.Warn("cache portfolio history view", slog.String("error", err.Error()))
	}
	return payload, nil
}

func currentViewKey(steamID string) string {
	return "portfolio:current:" + steamID
}

func historyViewKey(steamID string, days int) string {
	return fmt.Sprintf("portfolio:history:%s:%d", steamID, days)
}
