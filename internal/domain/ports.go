package domain

import (
	"context"
	"io"
	"time"
)

// InventoryPager fetches one page of a Steam inventory. cursor is empty for
// the first page.
type InventoryPager interface {
	InventoryPage(ctx context.Context, steamID, cursor string) (InventoryPage, error)
}

// HistorySource fetches an item's full raw price history from Steam.
type HistorySource interface {
	PriceHistory(ctx context.Context, marketHashName string) ([]RawHistoryRecord, error)
}

// InventoryIngestor submits a complete aggregated inventory to the backend
// of record.
type InventoryIngestor interface {
	UploadInventory(ctx context.Context, inv *Inventory) (UploadResult, error)
}

// HistorySink uploads one item's raw history records to the backend and
// returns the number of newly inserted records. Zero inserted is a success
// ("already up to date"), not a failure.
type HistorySink interface {
	UploadPriceHistory(ctx context.Context, marketHashName string, records []RawHistoryRecord) (int, error)
}

// ItemLister returns the backend's current view of the user's items.
type ItemLister interface {
	ListItems(ctx context.Context) ([]Item, error)
}

// HistoryReader fetches a cached-or-computed history window from the
// backend. Returns ErrNoData when the item has no history yet.
type HistoryReader interface {
	ItemHistory(ctx context.Context, marketHashName string, days int) (HistoryWindow, error)
}

// ViewCache holds rendered portfolio views so the UI can be served without a
// backend round trip. The load step invalidates these after each sync.
type ViewCache interface {
	GetView(ctx context.Context, key string) ([]byte, error)
	SetView(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// LockManager provides distributed locking so two processes cannot run a
// full sync for the same account concurrently.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SyncRunStore journals finished sync runs.
type SyncRunStore interface {
	Record(ctx context.Context, run SyncRun) error
	ListRecent(ctx context.Context, steamID string, limit int) ([]SyncRun, error)
}

// BlobWriter archives raw payloads to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
