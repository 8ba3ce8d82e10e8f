package steam

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

// flexBool unmarshals from JSON bool or number (0/1) so inventory responses
// work whether "more_items" is sent as a flag or a count.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexBool(n != 0)
	return nil
}

// rawRecords unmarshals from a JSON array or an object. Steam sends
// asset_properties as an array on most pages but as a keyed object on some;
// in the object form only the values matter.
type rawRecords []json.RawMessage

func (r *rawRecords) UnmarshalJSON(data []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		*r = arr
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	out := make([]json.RawMessage, 0, len(obj))
	for _, v := range obj {
		out = append(out, v)
	}
	*r = out
	return nil
}

// --------------------------------------------------------------------------
// Inventory endpoint DTOs
// --------------------------------------------------------------------------

// apiInventoryPage is the response of the community inventory endpoint.
type apiInventoryPage struct {
	Assets              []json.RawMessage `json:"assets"`
	Descriptions        []json.RawMessage `json:"descriptions"`
	AssetProperties     rawRecords        `json:"asset_properties"`
	MoreItems           flexBool          `json:"more_items"`
	LastAssetID         string            `json:"last_assetid"`
	TotalInventoryCount int               `json:"total_inventory_count"`
}

func (p *apiInventoryPage) toDomainPage() domain.InventoryPage {
	return domain.InventoryPage{
		Assets:       p.Assets,
		Descriptions: p.Descriptions,
		Properties:   p.AssetProperties,
		MoreItems:    bool(p.MoreItems),
		NextCursor:   p.LastAssetID,
		TotalCount:   p.TotalInventoryCount,
	}
}

// --------------------------------------------------------------------------
// Price-history endpoint DTOs
// --------------------------------------------------------------------------

// apiPriceHistory is the response of the market price-history endpoint.
// Each prices entry is a [dateString, price, volumeString] triple; price is
// sent as a number or a string depending on locale.
type apiPriceHistory struct {
	Success bool              `json:"success"`
	Prices  []apiHistoryEntry `json:"prices"`
}

type apiHistoryEntry struct {
	Date   string
	Price  float64
	Volume string
}

func (e *apiHistoryEntry) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) < 3 {
		return fmt.Errorf("history entry has %d fields, want 3", len(parts))
	}
	if err := json.Unmarshal(parts[0], &e.Date); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &e.Price); err != nil {
		var s string
		if err := json.Unmarshal(parts[1], &s); err != nil {
			return err
		}
		if _, err := fmt.Sscanf(s, "%f", &e.Price); err != nil {
			return fmt.Errorf("parse price %q: %w", s, err)
		}
	}
	if err := json.Unmarshal(parts[2], &e.Volume); err != nil {
		return err
	}
	return nil
}

func (p *apiPriceHistory) toDomainRecords() []domain.RawHistoryRecord {
	records := make([]domain.RawHistoryRecord, 0, len(p.Prices))
	for i := range p.Prices {
		entry := &p.Prices[i]
		day, err := parseHistoryDate(entry.Date)
		if err != nil {
			continue
		}
		records = append(records, domain.RawHistoryRecord{
			Date:   day,
			Price:  entry.Price,
			Volume: entry.Volume,
		})
	}
	return records
}

// parseHistoryDate normalizes Steam's "Mar 20 2024 01: +0" date format to a
// "YYYY-MM-DD" calendar day.
func parseHistoryDate(s string) (string, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return "", fmt.Errorf("unexpected history date %q", s)
	}
	t, err := time.Parse("Jan 2 2006", strings.Join(fields[:3], " "))
	if err != nil {
		return "", fmt.Errorf("parse history date %q: %w", s, err)
	}
	return t.Format("2006-01-02"), nil
}
