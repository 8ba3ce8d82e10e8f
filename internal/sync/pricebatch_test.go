package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

// fakeSource serves scripted history records per item name.
type fakeSource struct {
	mu      sync.Mutex
	records map[string][]domain.RawHistoryRecord
	errs    map[string]error
	block   chan struct{} // if set, PriceHistory waits until closed
}

func (s *fakeSource) PriceHistory(ctx context.Context, name string) ([]domain.RawHistoryRecord, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[name]; err != nil {
		return nil, err
	}
	return s.records[name], nil
}

// fakeSink records uploads and can fail per item.
type fakeSink struct {
	mu       sync.Mutex
	uploads  []string
	inserted map[string]int
	errs     map[string]error
}

func (s *fakeSink) UploadPriceHistory(ctx context.Context, name string, records []domain.RawHistoryRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[name]; err != nil {
		return 0, err
	}
	s.uploads = append(s.uploads, name)
	return s.inserted[name], nil
}

func record(date string) []domain.RawHistoryRecord {
	return []domain.RawHistoryRecord{{Date: date, Price: 10, Volume: "1"}}
}

func TestSyncAllStatsInvariant(t *testing.T) {
	source := &fakeSource{
		records: map[string][]domain.RawHistoryRecord{
			"a": record("2024-03-20"),
			"c": record("2024-03-20"),
			"d": record("2024-03-20"),
		},
		errs: map[string]error{"b": domain.ErrNoData},
	}
	sink := &fakeSink{
		inserted: map[string]int{"a": 3, "c": 0},
		errs:     map[string]error{"d": errors.New("backend down")},
	}

	b := NewHistoryBatcher(source, sink, time.Millisecond, testLogger())
	stats, err := b.SyncAll(context.Background(), []string{"a", "b", "c", "d"}, nil)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("total: got %d", stats.Total)
	}
	// a ok, b fetch failed, c ok with zero inserted, d upload failed.
	if stats.Success != 2 || stats.Failed != 2 {
		t.Errorf("stats: %+v", stats)
	}
	if stats.Success+stats.Failed != stats.Total {
		t.Errorf("invariant broken: %+v", stats)
	}
}

func TestSyncAllEmptyList(t *testing.T) {
	b := NewHistoryBatcher(&fakeSource{}, &fakeSink{}, time.Millisecond, testLogger())
	stats, err := b.SyncAll(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if stats.Total != 0 || stats.Success != 0 || stats.Failed != 0 {
		t.Errorf("stats: %+v", stats)
	}
}

func TestSyncAllProgressSequence(t *testing.T) {
	source := &fakeSource{records: map[string][]domain.RawHistoryRecord{
		"a": record("2024-03-20"),
		"b": record("2024-03-20"),
	}}
	sink := &fakeSink{}

	var current []int
	var totals []int
	b := NewHistoryBatcher(source, sink, time.Millisecond, testLogger())
	_, err := b.SyncAll(context.Background(), []string{"a", "b"}, func(cur, total int) {
		current = append(current, cur)
		totals = append(totals, total)
	})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if len(current) != 2 || current[0] != 1 || current[1] != 2 {
		t.Errorf("progress current: %v", current)
	}
	for _, total := range totals {
		if total != 2 {
			t.Errorf("progress totals: %v", totals)
		}
	}
	if len(sink.uploads) != 2 || sink.uploads[0] != "a" || sink.uploads[1] != "b" {
		t.Errorf("upload order: %v", sink.uploads)
	}
}

func TestSyncAllSingleFlight(t *testing.T) {
	block := make(chan struct{})
	source := &fakeSource{
		records: map[string][]domain.RawHistoryRecord{"a": record("2024-03-20")},
		block:   block,
	}
	b := NewHistoryBatcher(source, &fakeSink{}, time.Millisecond, testLogger())

	firstDone := make(chan error, 1)
	go func() {
		_, err := b.SyncAll(context.Background(), []string{"a"}, nil)
		firstDone <- err
	}()

	// Wait for the first batch to be in flight, then try a second.
	deadline := time.After(2 * time.Second)
	for {
		if b.running.Load() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first batch never started")
		case <-time.After(time.Millisecond):
		}
	}

	_, err := b.SyncAll(context.Background(), []string{"a"}, nil)
	if !errors.Is(err, domain.ErrSyncBusy) {
		t.Errorf("second call: got %v, want ErrSyncBusy", err)
	}

	close(block)
	if err := <-firstDone; err != nil {
		t.Errorf("first call: %v", err)
	}

	// The guard resets once the batch finishes.
	if _, err := b.SyncAll(context.Background(), nil, nil); err != nil {
		t.Errorf("after completion: %v", err)
	}
}

func TestSyncAllCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewHistoryBatcher(&fakeSource{}, &fakeSink{}, time.Millisecond, testLogger())
	_, err := b.SyncAll(ctx, []string{"a"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
