// Package domain defines the core types shared by the sync pipeline, the
// platform clients, and the caching layers.
package domain

import "encoding/json"

// SteamCredentials are the session cookies required by the Steam community
// endpoints. How they are obtained and stored is outside this service; they
// arrive fully formed via configuration.
type SteamCredentials struct {
	SessionID   string
	LoginSecure string
}

// Valid reports whether both cookies are present.
func (c SteamCredentials) Valid() bool {
	return c.SessionID != "" && c.LoginSecure != ""
}

// InventoryPage is one page of a cursor-paginated inventory fetch. The raw
// asset, description, and property records are kept as opaque JSON because
// the backend of record does all parsing and diffing; the client only
// accumulates and forwards them.
type InventoryPage struct {
	Assets       []json.RawMessage
	Descriptions []json.RawMessage
	Properties   []json.RawMessage

	// MoreItems is true when Steam reports that further pages exist.
	MoreItems bool

	// NextCursor is the assetid to resume from. Steam occasionally reports
	// MoreItems without supplying it; the aggregator treats that as the end
	// of a partial fetch.
	NextCursor string

	// TotalCount is Steam's total_inventory_count hint. Not authoritative.
	TotalCount int
}

// Inventory is the concatenation of all fetched pages.
type Inventory struct {
	SteamID      string
	Assets       []json.RawMessage
	Descriptions []json.RawMessage
	Properties   []json.RawMessage

	// TotalCount is derived from the accumulated assets, never from Steam's
	// reported hint.
	TotalCount int

	// Partial is set when pagination stopped because Steam signalled more
	// items without a continuation cursor. The data is usable but may be
	// incomplete.
	Partial bool

	// Pages is the number of pages actually fetched.
	Pages int
}

// Append merges one page into the running aggregate.
func (inv *Inventory) Append(page InventoryPage) {
	inv.Assets = append(inv.Assets, page.Assets...)
	inv.Descriptions = append(inv.Descriptions, page.Descriptions...)
	inv.Properties = append(inv.Properties, page.Properties...)
	inv.TotalCount = len(inv.Assets)
	inv.Pages++
}

// Item is a single portfolio item as returned by the backend's inventory
// listing. Items are rebuilt on every full sync and never diffed locally.
type Item struct {
	MarketHashName string   `json:"market_hash_name"`
	AssetID        string   `json:"asset_id,omitempty"`
	Quantity       int      `json:"quantity"`
	Price          float64  `json:"price"`
	CurrentPrice   float64  `json:"current_price,omitempty"`
	FloatValue     *float64 `json:"float_value,omitempty"`
	PaintSeed      *int     `json:"paint_seed,omitempty"`
	IsStatTrak     bool     `json:"is_stattrak,omitempty"`
	Rarity         string   `json:"rarity,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
}

// UploadResult is the normalized outcome of an inventory upload.
type UploadResult struct {
	ItemsSynced int
	Status      string
	Message     string
}
