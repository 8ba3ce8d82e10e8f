package backend

import (
	"encoding/json"

	"github.com/skinfolio/skinsync/internal/domain"
)

// apiUploadResult is the response of the inventory ingestion endpoint. The
// backend has gone through several revisions and the synced-item count has
// lived under different field names; all known candidates are declared here
// and resolved by syncedCount.
type apiUploadResult struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	ItemsSynced    *int   `json:"items_synced"`
	TotalItems     *int   `json:"total_items"`
	NewItemsSynced *int   `json:"new_items_synced"`
	ItemsCount     *int   `json:"items_count"`
	Count          *int   `json:"count"`
}

// syncedCount resolves the synced-item count using a fixed priority order:
// items_synced, total_items, new_items_synced, items_count, count. The
// first field present wins; if none is present the count is 0.
func (r *apiUploadResult) syncedCount() int {
	for _, candidate := range []*int{r.ItemsSynced, r.TotalItems, r.NewItemsSynced, r.ItemsCount, r.Count} {
		if candidate != nil {
			return *candidate
		}
	}
	return 0
}

func (r *apiUploadResult) toDomainResult() domain.UploadResult {
	status := r.Status
	if status == "" {
		status = "success"
	}
	return domain.UploadResult{
		ItemsSynced: r.syncedCount(),
		Status:      status,
		Message:     r.Message,
	}
}

// apiItemList is the response of the inventory listing endpoint.
type apiItemList struct {
	Items []domain.Item `json:"items"`
}

// apiHistoryUploadResult is the response of the price-history upload
// endpoint.
type apiHistoryUploadResult struct {
	Status          string `json:"status"`
	RecordsInserted int    `json:"records_inserted"`
}

// apiChartPoint is one point of an item-history chart. The backend sends
// either {x, y} or {date, price} depending on the route revision.
type apiChartPoint struct {
	X     string          `json:"x"`
	Y     json.RawMessage `json:"y"`
	Date  string          `json:"date"`
	Price json.RawMessage `json:"price"`
}

// toDomainPoint normalizes an apiChartPoint. ok is false when the point has
// no usable date or a non-positive price.
func (p *apiChartPoint) toDomainPoint() (domain.PricePoint, bool) {
	date := p.Date
	if date == "" {
		date = p.X
	}
	if date == "" {
		return domain.PricePoint{}, false
	}

	raw := p.Price
	if raw == nil {
		raw = p.Y
	}
	price, ok := decodePrice(raw)
	if !ok || price <= 0 {
		return domain.PricePoint{}, false
	}

	return domain.PricePoint{Date: date, Price: price}, true
}

// decodePrice accepts a JSON number or a numeric string.
func decodePrice(raw json.RawMessage) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return 0, false
	}
	return f, true
}

// apiItemHistory is the response of the item history endpoint.
type apiItemHistory struct {
	MarketHashName string               `json:"market_hash_name"`
	Chart          []apiChartPoint      `json:"chart"`
	History        []apiChartPoint      `json:"history"`
	Summary        *domain.PriceSummary `json:"summary"`
}

func (h *apiItemHistory) toDomainWindow(marketHashName string, days int) domain.HistoryWindow {
	name := h.MarketHashName
	if name == "" {
		name = marketHashName
	}

	source := h.Chart
	if len(source) == 0 {
		source = h.History
	}

	points := make([]domain.PricePoint, 0, len(source))
	for i := range source {
		if pt, ok := source[i].toDomainPoint(); ok {
			points = append(points, pt)
		}
	}

	return domain.HistoryWindow{
		MarketHashName: name,
		Days:           days,
		Points:         points,
		Summary:        h.Summary,
	}
}
