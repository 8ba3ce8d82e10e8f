package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/skinfolio/skinsync/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeReader serves scripted windows and counts calls.
type fakeReader struct {
	windows map[string]domain.HistoryWindow
	err     error
	calls   int
}

func (r *fakeReader) ItemHistory(ctx context.Context, name string, days int) (domain.HistoryWindow, error) {
	r.calls++
	if r.err != nil {
		return domain.HistoryWindow{}, r.err
	}
	w := r.windows[name]
	w.Days = days
	return w, nil
}

// thirtyDaySeries builds a series ending 2024-03-20 whose last seven days
// carry the given prices.
func thirtyDaySeries(lastSeven []float64) []domain.PricePoint {
	var points []domain.PricePoint
	// Padding before the window under test.
	for day := 1; day <= 13; day++ {
		points = append(points, domain.PricePoint{
			Date:  fmt.Sprintf("2024-03-%02d", day),
			Price: 50,
		})
	}
	for i, price := range lastSeven {
		points = append(points, domain.PricePoint{
			Date:  fmt.Sprintf("2024-03-%02d", 14+i),
			Price: price,
		})
	}
	return points
}

func TestGetWindowWideFetchesAndCaches(t *testing.T) {
	reader := &fakeReader{windows: map[string]domain.HistoryWindow{
		"ak": {MarketHashName: "ak", Points: thirtyDaySeries([]float64{10, 12, 9, 15, 20, 18, 11})},
	}}
	s := NewHistoryService(reader, testLogger())

	w, err := s.GetWindow(context.Background(), "ak", 30)
	if err != nil {
		t.Fatalf("GetWindow: %v", err)
	}
	if w.Days != 30 {
		t.Errorf("days: got %d", w.Days)
	}
	if w.Summary == nil {
		t.Fatal("summary not computed")
	}
	if reader.calls != 1 {
		t.Errorf("reader calls: got %d", reader.calls)
	}
}

func TestGetWindowNarrowDerivedFromCache(t *testing.T) {
	reader := &fakeReader{windows: map[string]domain.HistoryWindow{
		"ak": {MarketHashName: "ak", Points: thirtyDaySeries([]float64{10, 12, 9, 15, 20, 18, 11})},
	}}
	s := NewHistoryService(reader, testLogger())

	if _, err := s.GetWindow(context.Background(), "ak", 30); err != nil {
		t.Fatalf("wide fetch: %v", err)
	}

	w, err := s.GetWindow(context.Background(), "ak", 7)
	if err != nil {
		t.Fatalf("narrow window: %v", err)
	}
	if reader.calls != 1 {
		t.Errorf("narrow window must be served from cache, reader calls: %d", reader.calls)
	}

	if w.Days != 7 {
		t.Errorf("days: got %d", w.Days)
	}
	if len(w.Points) != 7 {
		t.Fatalf("points: got %d, want 7", len(w.Points))
	}
	if w.Points[0].Date != "2024-03-14" || w.Points[6].Date != "2024-03-20" {
		t.Errorf("window edges: %s .. %s", w.Points[0].Date, w.Points[6].Date)
	}

	sum := w.Summary
	if sum == nil {
		t.Fatal("no summary")
	}
	if sum.StartPrice != 10 || sum.EndPrice != 11 {
		t.Errorf("start/end: %v/%v", sum.StartPrice, sum.EndPrice)
	}
	if sum.MinPrice != 9 || sum.MaxPrice != 20 {
		t.Errorf("min/max: %v/%v", sum.MinPrice, sum.MaxPrice)
	}
	if sum.AvgPrice != 13.57 {
		t.Errorf("avg: got %v, want 13.57", sum.AvgPrice)
	}
	if sum.PriceChange != 1 {
		t.Errorf("change: got %v, want 1", sum.PriceChange)
	}
	if sum.PriceChangePercent != 10 {
		t.Errorf("change percent: got %v, want 10", sum.PriceChangePercent)
	}
}

func TestGetWindowNarrowFetchesWideOnColdCache(t *testing.T) {
	reader := &fakeReader{windows: map[string]domain.HistoryWindow{
		"ak": {MarketHashName: "ak", Points: thirtyDaySeries([]float64{10, 12, 9, 15, 20, 18, 11})},
	}}
	s := NewHistoryService(reader, testLogger())

	w, err := s.GetWindow(context.Background(), "ak", 7)
	if err != nil {
		t.Fatalf("GetWindow: %v", err)
	}
	if reader.calls != 1 {
		t.Errorf("reader calls: got %d", reader.calls)
	}
	if len(w.Points) != 7 {
		t.Errorf("points: got %d", len(w.Points))
	}

	// A second narrow request now hits the cache.
	if _, err := s.GetWindow(context.Background(), "ak", 7); err != nil {
		t.Fatalf("second narrow: %v", err)
	}
	if reader.calls != 1 {
		t.Errorf("second narrow request must not refetch, reader calls: %d", reader.calls)
	}
}

func TestGetWindowAnchorsOnLastDataPoint(t *testing.T) {
	// A stale series ending well in the past still yields a full window of
	// its own most recent days.
	reader := &fakeReader{windows: map[string]domain.HistoryWindow{
		"old": {MarketHashName: "old", Points: []domain.PricePoint{
			{Date: "2023-01-01", Price: 5},
			{Date: "2023-01-05", Price: 6},
			{Date: "2023-01-07", Price: 7},
		}},
	}}
	s := NewHistoryService(reader, testLogger())

	w, err := s.GetWindow(context.Background(), "old", 7)
	if err != nil {
		t.Fatalf("GetWindow: %v", err)
	}
	// Window is [2023-01-01, 2023-01-07]: all three points qualify.
	if len(w.Points) != 3 {
		t.Errorf("points: got %d, want 3", len(w.Points))
	}
}

func TestGetWindowForgetDropsCache(t *testing.T) {
	reader := &fakeReader{windows: map[string]domain.HistoryWindow{
		"ak": {MarketHashName: "ak", Points: thirtyDaySeries([]float64{10, 12, 9, 15, 20, 18, 11})},
	}}
	s := NewHistoryService(reader, testLogger())

	if _, err := s.GetWindow(context.Background(), "ak", 30); err != nil {
		t.Fatalf("wide fetch: %v", err)
	}
	s.Forget("ak")
	if _, err := s.GetWindow(context.Background(), "ak", 7); err != nil {
		t.Fatalf("after forget: %v", err)
	}
	if reader.calls != 2 {
		t.Errorf("forget must force a refetch, reader calls: %d", reader.calls)
	}
}

func TestGetWindowNoData(t *testing.T) {
	reader := &fakeReader{err: domain.ErrNoData}
	s := NewHistoryService(reader, testLogger())

	if _, err := s.GetWindow(context.Background(), "missing", 30); !errors.Is(err, domain.ErrNoData) {
		t.Errorf("wide: got %v, want ErrNoData", err)
	}
	if _, err := s.GetWindow(context.Background(), "missing", 7); !errors.Is(err, domain.ErrNoData) {
		t.Errorf("narrow: got %v, want ErrNoData", err)
	}
}

func TestSummarize(t *testing.T) {
	points := []domain.PricePoint{
		{Date: "2024-03-14", Price: 10},
		{Date: "2024-03-15", Price: 0},               // dropped
		{Date: "2024-03-16", Price: -2},              // dropped
		{Date: "2024-03-17", Price: math.NaN()},      // dropped
		{Date: "2024-03-18", Price: 30},
	}

	sum, ok := Summarize(points)
	if !ok {
		t.Fatal("expected a summary")
	}
	if sum.StartPrice != 10 || sum.EndPrice != 30 {
		t.Errorf("start/end: %v/%v", sum.StartPrice, sum.EndPrice)
	}
	if sum.MinPrice != 10 || sum.MaxPrice != 30 {
		t.Errorf("min/max: %v/%v", sum.MinPrice, sum.MaxPrice)
	}
	if sum.AvgPrice != 20 {
		t.Errorf("avg: %v", sum.AvgPrice)
	}
	if sum.PriceChange != 20 || sum.PriceChangePercent != 200 {
		t.Errorf("change: %v (%v%%)", sum.PriceChange, sum.PriceChangePercent)
	}
}

func TestSummarizeNoValidPrices(t *testing.T) {
	tests := []struct {
		name   string
		points []domain.PricePoint
	}{
		{"empty", nil},
		{"all zero", []domain.PricePoint{{Date: "2024-03-14", Price: 0}}},
		{"all negative", []domain.PricePoint{{Date: "2024-03-14", Price: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Summarize(tt.points); ok {
				t.Error("expected no summary")
			}
		})
	}
}
