// Package backend is the REST client for the skinfolio backend of record.
// The backend owns persistence, diffing, and portfolio analytics; this
// client only submits raw data and reads rendered views.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

// Client is the backend API client. All requests carry the user's JWT as a
// bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a backend client.
//
// baseURL is the API root, e.g. "https://api.skinfolio.app/api/v1".
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// UploadInventory submits a complete aggregated inventory in one request.
func (c *Client) UploadInventory(ctx context.Context, inv *domain.Inventory) (domain.UploadResult, error) {
	payload := map[string]any{
		"inventory_data": map[string]any{
			"assets":                inv.Assets,
			"descriptions":          inv.Descriptions,
			"asset_properties":      inv.Properties,
			"total_inventory_count": inv.TotalCount,
		},
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/inventory/upload", payload)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("backend: upload inventory: %w", err)
	}

	var result apiUploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.UploadResult{}, fmt.Errorf("backend: decode upload result: %w", err)
	}

	return result.toDomainResult(), nil
}

// RefreshInventory asks the backend to re-sync the inventory server-side
// without creating a snapshot. The backend reads the stored session cookies
// itself.
func (c *Client) RefreshInventory(ctx context.Context) (domain.UploadResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/inventory/refresh-no-snap", map[string]any{})
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("backend: refresh inventory: %w", err)
	}

	var result apiUploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.UploadResult{}, fmt.Errorf("backend: decode refresh result: %w", err)
	}

	return result.toDomainResult(), nil
}

// ListItems returns the backend's current item listing.
func (c *Client) ListItems(ctx context.Context) ([]domain.Item, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/inventory/", nil)
	if err != nil {
		return nil, fmt.Errorf("backend: list items: %w", err)
	}

	var list apiItemList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("backend: decode item list: %w", err)
	}

	return list.Items, nil
}

// UploadPriceHistory submits one item's raw history records and returns the
// number of newly inserted records. Zero means the backend already had
// everything.
func (c *Client) UploadPriceHistory(ctx context.Context, marketHashName string, records []domain.RawHistoryRecord) (int, error) {
	payload := map[string]any{
		"market_hash_name": marketHashName,
		"history_data":     records,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/prices/history/upload", payload)
	if err != nil {
		return 0, fmt.Errorf("backend: upload price history for %q: %w", marketHashName, err)
	}

	var result apiHistoryUploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("backend: decode history upload result: %w", err)
	}

	return result.RecordsInserted, nil
}

// ItemHistory fetches one item's price-history window. It returns
// domain.ErrNoData when the item has no history yet (backend 404 or an
// empty series).
func (c *Client) ItemHistory(ctx context.Context, marketHashName string, days int) (domain.HistoryWindow, error) {
	path := fmt.Sprintf("/prices/%s/history?days=%d", url.PathEscape(marketHashName), days)

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// New items have no history rows yet; that is not a failure.
			return domain.HistoryWindow{}, fmt.Errorf("backend: item history for %q: %w", marketHashName, domain.ErrNoData)
		}
		return domain.HistoryWindow{}, fmt.Errorf("backend: item history for %q: %w", marketHashName, err)
	}

	var history apiItemHistory
	if err := json.Unmarshal(body, &history); err != nil {
		return domain.HistoryWindow{}, fmt.Errorf("backend: decode item history: %w", err)
	}

	window := history.toDomainWindow(marketHashName, days)
	if len(window.Points) == 0 {
		return domain.HistoryWindow{}, fmt.Errorf("backend: item history for %q: %w", marketHashName, domain.ErrNoData)
	}

	return window, nil
}

// Portfolio fetches the current rendered portfolio view as raw JSON.
func (c *Client) Portfolio(ctx context.Context, steamID string) ([]byte, error) {
	path := fmt.Sprintf("/portfolio/current/%s", url.PathEscape(steamID))
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: portfolio for %s: %w", steamID, err)
	}
	return body, nil
}

// PortfolioHistory fetches the portfolio value history view as raw JSON.
func (c *Client) PortfolioHistory(ctx context.Context, steamID string, days int) ([]byte, error) {
	path := fmt.Sprintf("/portfolio/history/%s?days=%d", url.PathEscape(steamID), days)
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: portfolio history for %s: %w", steamID, err)
	}
	return body, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, sends, and reads an authenticated request against the
// backend API. It returns the raw response body.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

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

// apiError is the backend's error envelope; the detail may live under any
// of these fields depending on the route.
type apiError struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e *apiError) text() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	detail := apiErr.text()
	if detail == "" {
		detail = string(body)
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, detail)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, detail)
	}
}

// Compile-time interface checks.
var (
	_ domain.InventoryIngestor = (*Client)(nil)
	_ domain.HistorySink       = (*Client)(nil)
	_ domain.ItemLister        = (*Client)(nil)
	_ domain.HistoryReader     = (*Client)(nil)
)
