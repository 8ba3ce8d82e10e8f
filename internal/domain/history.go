package domain

// PricePoint is one calendar-day observation of an item's price. Date is a
// "YYYY-MM-DD" string; keeping it as a string makes window filtering a plain
// lexicographic comparison and avoids timezone drift.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// RawHistoryRecord is one entry from Steam's price-history endpoint, kept in
// the wire-adjacent shape the backend ingestion endpoint expects.
type RawHistoryRecord struct {
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
	Volume string  `json:"volume"`
}

// PriceSummary are the statistics computed over one window of points.
type PriceSummary struct {
	StartPrice         float64 `json:"start_price"`
	EndPrice           float64 `json:"end_price"`
	MinPrice           float64 `json:"min_price"`
	MaxPrice           float64 `json:"max_price"`
	AvgPrice           float64 `json:"avg_price"`
	PriceChange        float64 `json:"price_change"`
	PriceChangePercent float64 `json:"price_change_percent"`
}

// HistoryWindow is a per-item window of price points plus its summary.
type HistoryWindow struct {
	MarketHashName string       `json:"market_hash_name"`
	Days           int          `json:"days"`
	Points         []PricePoint `json:"points"`
	Summary        *PriceSummary `json:"summary"`
}

// SyncStats counts the outcome of one price-history batch run. The batcher
// guarantees Success+Failed == Total on completion.
type SyncStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
