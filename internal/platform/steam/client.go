// Package steam is the REST client for the Steam community endpoints used
// by the sync pipeline: the paged inventory endpoint and the market
// price-history endpoint. Both require the user's session cookies.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

const (
	// appID and contextID select the CS2 inventory.
	appID     = "730"
	contextID = "2"

	// defaultPageSize is the maximum page size Steam accepts.
	defaultPageSize = 2000

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client is the Steam community REST client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      domain.SteamCredentials
	pageSize   int
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize overrides the inventory page size. Values outside 1..2000 are
// ignored; 2000 is the maximum Steam honors.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n >= 1 && n <= defaultPageSize {
			c.pageSize = n
		}
	}
}

// NewClient creates a Steam client.
//
// baseURL is the community root, e.g. "https://steamcommunity.com".
func NewClient(baseURL string, creds domain.SteamCredentials, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		creds:    creds,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InventoryPage fetches one page of the user's inventory. cursor is the
// assetid to resume from; empty for the first page.
func (c *Client) InventoryPage(ctx context.Context, steamID, cursor string) (domain.InventoryPage, error) {
	if !c.creds.Valid() {
		return domain.InventoryPage{}, fmt.Errorf("steam: inventory page: %w", domain.ErrSessionExpired)
	}

	params := url.Values{}
	params.Set("l", "english")
	params.Set("count", strconv.Itoa(c.pageSize))
	params.Set("include_properties", "1")
	if cursor != "" {
		params.Set("start_assetid", cursor)
	}

	path := fmt.Sprintf("/inventory/%s/%s/%s?%s", url.PathEscape(steamID), appID, contextID, params.Encode())

	body, err := c.doGet(ctx, path, fmt.Sprintf("%s/profiles/%s/inventory/", c.baseURL, steamID))
	if err != nil {
		return domain.InventoryPage{}, fmt.Errorf("steam: inventory page for %s: %w", steamID, err)
	}

	var apiPage apiInventoryPage
	if err := json.Unmarshal(body, &apiPage); err != nil {
		return domain.InventoryPage{}, fmt.Errorf("steam: decode inventory page: %w", err)
	}

	return apiPage.toDomainPage(), nil
}

// PriceHistory fetches the full raw price history of one item. It returns
// domain.ErrNoData when Steam reports success=false or an empty series.
func (c *Client) PriceHistory(ctx context.Context, marketHashName string) ([]domain.RawHistoryRecord, error) {
	if !c.creds.Valid() {
		return nil, fmt.Errorf("steam: price history: %w", domain.ErrSessionExpired)
	}

	params := url.Values{}
	params.Set("appid", appID)
	params.Set("market_hash_name", marketHashName)

	path := "/market/pricehistory/?" + params.Encode()

	body, err := c.doGet(ctx, path, c.baseURL+"/market/")
	if err != nil {
		return nil, fmt.Errorf("steam: price history for %q: %w", marketHashName, err)
	}

	var apiHistory apiPriceHistory
	if err := json.Unmarshal(body, &apiHistory); err != nil {
		return nil, fmt.Errorf("steam: decode price history: %w", err)
	}

	if !apiHistory.Success || len(apiHistory.Prices) == 0 {
		return nil, fmt.Errorf("steam: price history for %q: %w", marketHashName, domain.ErrNoData)
	}

	return apiHistory.toDomainRecords(), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends a cookie-authenticated GET request and reads the body.
func (c *Client) doGet(ctx context.Context, path, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cookie", fmt.Sprintf("sessionid=%s; steamLoginSecure=%s", c.creds.SessionID, c.creds.LoginSecure))
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Referer", referer)
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors. Steam answers
// 403 when the session cookies are invalid or the inventory is private, and
// 429 when we hit the community rate limit.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", domain.ErrSessionExpired, statusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", domain.ErrRateLimited, statusCode)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
}

// Compile-time interface checks.
var (
	_ domain.InventoryPager = (*Client)(nil)
	_ domain.HistorySource  = (*Client)(nil)
)
