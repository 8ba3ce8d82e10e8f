package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

// defaultItemDelay is the pause between per-item price-history requests.
// Steam's market endpoints ban clients that hammer them; one second per
// item stays inside the observed limit.
const defaultItemDelay = 1 * time.Second

// HistoryBatcher refreshes the price history of a set of items, one item at
// a time. Each item is fetched from Steam and uploaded to the backend;
// failures are counted, never propagated, so one bad item cannot abort the
// batch.
type HistoryBatcher struct {
	source    domain.HistorySource
	sink      domain.HistorySink
	itemDelay time.Duration
	running   atomic.Bool
	logger    *slog.Logger
}

// NewHistoryBatcher creates a batcher over the given source and sink.
func NewHistoryBatcher(source domain.HistorySource, sink domain.HistorySink, itemDelay time.Duration, logger *slog.Logger) *HistoryBatcher {
	if itemDelay <= 0 {
		itemDelay = defaultItemDelay
	}
	return &HistoryBatcher{
		source:    source,
		sink:      sink,
		itemDelay: itemDelay,
		logger:    logger.With(slog.String("component", "price_batch")),
	}
}

// SyncAll processes the given item names strictly in order. progress, if
// non-nil, is invoked once per item before it is processed.
//
// Only one batch may run per batcher instance; a second call made while one
// is in flight returns domain.ErrSyncBusy immediately without touching the
// network or the in-flight call's stats. On completion the returned stats
// satisfy Success+Failed == Total.
func (b *HistoryBatcher) SyncAll(ctx context.Context, names []string, progress func(current, total int)) (domain.SyncStats, error) {
	if !b.running.CompareAndSwap(false, true) {
		b.logger.Warn("price history batch already running, ignoring call")
		return domain.SyncStats{}, domain.ErrSyncBusy
	}
	defer b.running.Store(false)

	stats := domain.SyncStats{Total: len(names)}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("price history batch cancelled: %w", err)
		}

		if progress != nil {
			progress(i+1, stats.Total)
		}

		if b.syncOne(ctx, name) {
			stats.Success++
		} else {
			stats.Failed++
		}

		// Rest between items, but not after the last one.
		if i < len(names)-1 {
			if err := sleep(ctx, b.itemDelay); err != nil {
				return stats, fmt.Errorf("price history batch cancelled: %w", err)
			}
		}
	}

	b.logger.Info("price history batch complete",
		slog.Int("total", stats.Total),
		slog.Int("success", stats.Success),
		slog.Int("failed", stats.Failed),
	)

	return stats, nil
}

// syncOne fetches and uploads one item's history. An upload that inserts
// zero records means the backend was already up to date and still counts as
// a success.
func (b *HistoryBatcher) syncOne(ctx context.Context, name string) bool {
	records, err := b.source.PriceHistory(ctx, name)
	if err != nil {
		b.logger.Warn("price history fetch failed",
			slog.String("item", name),
			slog.String("error", err.Error()),
		)
		return false
	}

	inserted, err := b.sink.UploadPriceHistory(ctx, name, records)
	if err != nil {
		b.logger.Warn("price history upload failed",
			slog.String("item", name),
			slog.String("error", err.Error()),
		)
		return false
	}

	b.logger.Debug("price history synced",
		slog.String("item", name),
		slog.Int("records_inserted", inserted),
	)
	return true
}
