package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

const (
	// defaultPageDelay is the pause between page requests. Steam's community
	// endpoints throttle aggressively; two seconds keeps a multi-page fetch
	// under the radar.
	defaultPageDelay = 2 * time.Second

	// defaultMaxPages bounds the pagination loop. At 2000 items per page
	// this covers any real inventory; it exists so a remote that keeps
	// answering more_items=1 with a repeating cursor cannot spin us forever.
	defaultMaxPages = 64
)

// InventoryAggregator drives the cursor pagination of a Steam inventory to
// completion, accumulating every page into one Inventory.
type InventoryAggregator struct {
	pager     domain.InventoryPager
	pageDelay time.Duration
	maxPages  int
	logger    *slog.Logger
}

// NewInventoryAggregator creates an aggregator over the given pager.
// Non-positive pageDelay and maxPages fall back to the defaults.
func NewInventoryAggregator(pager domain.InventoryPager, pageDelay time.Duration, maxPages int, logger *slog.Logger) *InventoryAggregator {
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &InventoryAggregator{
		pager:     pager,
		pageDelay: pageDelay,
		maxPages:  maxPages,
		logger:    logger.With(slog.String("component", "aggregator")),
	}
}

// FetchAll fetches every page of the user's inventory.
//
// When Steam reports more_items without a continuation cursor, or repeats
// the same cursor, the loop stops and returns what was accumulated with
// Inventory.Partial set. An inventory with zero assets is treated as a
// failed fetch (domain.ErrEmptyInventory): a broken or expired session
// produces the same empty response as a genuinely empty account, and
// detecting dead sessions early is worth the rare false negative.
func (a *InventoryAggregator) FetchAll(ctx context.Context, steamID string) (*domain.Inventory, error) {
	inv := &domain.Inventory{SteamID: steamID}
	cursor := ""

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("inventory fetch cancelled: %w", err)
		}

		apiPage, err := a.pager.InventoryPage(ctx, steamID, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetching inventory page %d: %w", page, err)
		}

		inv.Append(apiPage)

		a.logger.Info("inventory page fetched",
			slog.Int("page", page),
			slog.Int("page_assets", len(apiPage.Assets)),
			slog.Int("total_assets", inv.TotalCount),
			slog.Bool("more_items", apiPage.MoreItems),
		)

		if !apiPage.MoreItems {
			break
		}

		if apiPage.NextCursor == "" {
			// Steam claims more pages but gave us nothing to resume from.
			// Accept what we have rather than retrying blind.
			a.logger.Warn("more_items set without last_assetid, stopping pagination",
				slog.Int("page", page),
				slog.Int("total_assets", inv.TotalCount),
			)
			inv.Partial = true
			break
		}

		if apiPage.NextCursor == cursor {
			a.logger.Warn("repeated continuation cursor, stopping pagination",
				slog.String("cursor", cursor),
				slog.Int("page", page),
			)
			inv.Partial = true
			break
		}

		if page >= a.maxPages {
			a.logger.Warn("page limit reached, stopping pagination",
				slog.Int("max_pages", a.maxPages),
			)
			inv.Partial = true
			break
		}

		cursor = apiPage.NextCursor

		if err := sleep(ctx, a.pageDelay); err != nil {
			return nil, fmt.Errorf("inventory fetch cancelled: %w", err)
		}
	}

	if inv.TotalCount == 0 {
		return nil, fmt.Errorf("inventory fetch for %s: %w", steamID, domain.ErrEmptyInventory)
	}

	a.logger.Info("inventory fetch complete",
		slog.Int("pages", inv.Pages),
		slog.Int("assets", inv.TotalCount),
		slog.Int("descriptions", len(inv.Descriptions)),
		slog.Bool("partial", inv.Partial),
	)

	return inv, nil
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
