// Package service contains the view-facing services: the per-item history
// window cache and the portfolio view loader.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	stdsync "sync"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

const (
	// WideWindowDays is the canonical wide window. Anything narrower is
	// derived locally from a cached wide window instead of hitting the
	// network again.
	WideWindowDays = 30

	// narrowSpanDays is the inclusive span of the derived 7-day window:
	// the last data day plus the six days before it.
	narrowSpanDays = 6
)

// HistoryService serves per-item price-history windows. Wide windows (30
// days or more) are fetched from the backend and cached per item; the 7-day
// window is derived from the cached wide window by calendar arithmetic
// anchored to the last available data point, so a chart's "7D" tab never
// costs a network call once "30D" has loaded.
type HistoryService struct {
	reader domain.HistoryReader
	logger *slog.Logger

	mu    stdsync.Mutex
	cache map[string]domain.HistoryWindow // widest fetched window per item
}

// NewHistoryService creates a HistoryService over the given reader.
func NewHistoryService(reader domain.HistoryReader, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		reader: reader,
		logger: logger.With(slog.String("component", "history_service")),
		cache:  make(map[string]domain.HistoryWindow),
	}
}

// GetWindow returns the requested window for an item. Requests for
// WideWindowDays or more always hit the backend and refresh the cache;
// narrower requests are derived from the cached wide window, fetching it
// first if necessary. It returns domain.ErrNoData when the derived subset
// holds no valid prices.
func (s *HistoryService) GetWindow(ctx context.Context, marketHashName string, days int) (domain.HistoryWindow, error) {
	if days >= WideWindowDays {
		return s.fetchWide(ctx, marketHashName, days)
	}

	source, ok := s.cachedWindow(marketHashName)
	if !ok {
		wide, err := s.fetchWide(ctx, marketHashName, WideWindowDays)
		if err != nil {
			return domain.HistoryWindow{}, err
		}
		source = wide
	}

	return deriveWindow(source, marketHashName, days)
}

// Forget drops the cached window for an item. Called when the item's detail
// view closes; the cache only needs to live as long as the view does.
func (s *HistoryService) Forget(marketHashName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, marketHashName)
}

func (s *HistoryService) cachedWindow(marketHashName string) (domain.HistoryWindow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.cache[marketHashName]
	return w, ok
}

// fetchWide loads a wide window from the backend, recomputes its summary if
// the backend did not supply one, and caches it when it is at least as wide
// as the currently cached window.
func (s *HistoryService) fetchWide(ctx context.Context, marketHashName string, days int) (domain.HistoryWindow, error) {
	window, err := s.reader.ItemHistory(ctx, marketHashName, days)
	if err != nil {
		return domain.HistoryWindow{}, fmt.Errorf("history window for %q: %w", marketHashName, err)
	}

	if window.Summary == nil {
		summary, ok := Summarize(window.Points)
		if !ok {
			return domain.HistoryWindow{}, fmt.Errorf("history window for %q: %w", marketHashName, domain.ErrNoData)
		}
		window.Summary = summary
	}

	s.mu.Lock()
	if cached, ok := s.cache[marketHashName]; !ok || days >= cached.Days {
		s.cache[marketHashName] = window
	}
	s.mu.Unlock()

	s.logger.Debug("wide history window loaded",
		slog.String("item", marketHashName),
		slog.Int("days", days),
		slog.Int("points", len(window.Points)),
	)

	return window, nil
}

// deriveWindow filters a wide window down to the last days of available
// data. The right edge is the latest date present in the series, not the
// wall clock: a stale series still yields a full window of its own most
// recent days.
func deriveWindow(source domain.HistoryWindow, marketHashName string, days int) (domain.HistoryWindow, error) {
	if len(source.Points) == 0 {
		return domain.HistoryWindow{}, fmt.Errorf("derive %dd window for %q: %w", days, marketHashName, domain.ErrNoData)
	}

	rightEdge := calendarDay(source.Points[len(source.Points)-1].Date)
	right, err := time.Parse("2006-01-02", rightEdge)
	if err != nil {
		return domain.HistoryWindow{}, fmt.Errorf("derive %dd window for %q: bad last date %q: %w", days, marketHashName, rightEdge, domain.ErrNoData)
	}

	span := days - 1
	if span < 0 {
		span = narrowSpanDays
	}
	leftEdge := right.AddDate(0, 0, -span).Format("2006-01-02")

	// Dates are "YYYY-MM-DD" so the closed interval check is a plain string
	// comparison; no timestamps, no timezone drift.
	var points []domain.PricePoint
	for _, p := range source.Points {
		day := calendarDay(p.Date)
		if day >= leftEdge && day <= rightEdge {
			points = append(points, p)
		}
	}

	summary, ok := Summarize(points)
	if !ok {
		return domain.HistoryWindow{}, fmt.Errorf("derive %dd window for %q: %w", days, marketHashName, domain.ErrNoData)
	}

	return domain.HistoryWindow{
		MarketHashName: source.MarketHashName,
		Days:           days,
		Points:         points,
		Summary:        summary,
	}, nil
}

// Summarize computes window statistics over the points with a positive
// price. ok is false when no point qualifies, so callers can tell "flat at
// zero" apart from "nothing to compute".
func Summarize(points []domain.PricePoint) (*domain.PriceSummary, bool) {
	var prices []float64
	for _, p := range points {
		if p.Price > 0 && !math.IsNaN(p.Price) {
			prices = append(prices, p.Price)
		}
	}
	if len(prices) == 0 {
		return nil, false
	}

	start := prices[0]
	end := prices[len(prices)-1]
	min, max, sum := prices[0], prices[0], 0.0
	for _, p := range prices {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
		sum += p
	}

	change := end - start
	changePercent := 0.0
	if start > 0 {
		changePercent = change / start * 100
	}

	return &domain.PriceSummary{
		StartPrice:         round2(start),
		EndPrice:           round2(end),
		MinPrice:           round2(min),
		MaxPrice:           round2(max),
		AvgPrice:           round2(sum / float64(len(prices))),
		PriceChange:        round2(change),
		PriceChangePercent: round2(changePercent),
	}, true
}

// calendarDay strips any time suffix from a date string, leaving the
// "YYYY-MM-DD" day.
func calendarDay(date string) string {
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		return strings.TrimSpace(date[:i])
	}
	return strings.TrimSpace(date)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
