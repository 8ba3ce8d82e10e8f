package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

// multipartThreshold is the payload size above which archives switch from a
// single PutObject to a multipart upload. Large CS2 inventories with full
// descriptions can run to tens of megabytes of JSON.
const multipartThreshold = 8 * 1024 * 1024

// InventoryArchiver stores a copy of each aggregated inventory payload in
// object storage before it is uploaded to the backend. The archive is the
// raw material for replaying a sync or debugging a bad upload; nothing in
// the sync path reads it back.
type InventoryArchiver struct {
	writer domain.BlobWriter
	now    func() time.Time
}

// NewInventoryArchiver creates an InventoryArchiver over the given writer.
func NewInventoryArchiver(writer domain.BlobWriter) *InventoryArchiver {
	return &InventoryArchiver{
		writer: writer,
		now:    time.Now,
	}
}

// ArchiveInventory serializes the aggregated inventory and uploads it to
// inventory/{steamID}/{timestamp}.json. Payloads above the multipart
// threshold go through the multipart uploader.
func (a *InventoryArchiver) ArchiveInventory(ctx context.Context, inv *domain.Inventory) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("s3blob: marshal inventory archive: %w", err)
	}

	path := inventoryArchivePath(inv.SteamID, a.now().UTC())

	if int64(len(payload)) >= multipartThreshold {
		if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(payload), multipartThreshold); err != nil {
			return fmt.Errorf("s3blob: archive inventory %s: %w", path, err)
		}
		return nil
	}

	if err := a.writer.Put(ctx, path, bytes.NewReader(payload), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive inventory %s: %w", path, err)
	}
	return nil
}

// inventoryArchivePath builds the object key for one archived inventory.
//
//	inventory/76561198000000000/2026-08-31T10-42-07Z.json
func inventoryArchivePath(steamID string, ts time.Time) string {
	return fmt.Sprintf("inventory/%s/%s.json", steamID, ts.Format("2006-01-02T15-04-05Z"))
}
