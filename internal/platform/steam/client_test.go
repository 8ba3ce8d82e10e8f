package steam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skinfolio/skinsync/internal/domain"
)

var testCreds = domain.SteamCredentials{
	SessionID:   "sess",
	LoginSecure: "secure",
}

func TestInventoryPageRequest(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	var gotCookie string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte(`{
			"assets": [{"assetid":"1"},{"assetid":"2"}],
			"descriptions": [{"market_hash_name":"AK-47 | Redline"}],
			"asset_properties": [{"p":1}],
			"more_items": 1,
			"last_assetid": "2",
			"total_inventory_count": 120
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds, WithPageSize(100))
	page, err := c.InventoryPage(context.Background(), "76561198000000000", "99")
	if err != nil {
		t.Fatalf("InventoryPage: %v", err)
	}

	if gotPath != "/inventory/76561198000000000/730/2" {
		t.Errorf("path: got %q", gotPath)
	}
	if got := gotQuery["count"]; len(got) != 1 || got[0] != "100" {
		t.Errorf("count: got %v", got)
	}
	if got := gotQuery["l"]; len(got) != 1 || got[0] != "english" {
		t.Errorf("l: got %v", got)
	}
	if got := gotQuery["include_properties"]; len(got) != 1 || got[0] != "1" {
		t.Errorf("include_properties: got %v", got)
	}
	if got := gotQuery["start_assetid"]; len(got) != 1 || got[0] != "99" {
		t.Errorf("start_assetid: got %v", got)
	}
	if gotCookie != "sessionid=sess; steamLoginSecure=secure" {
		t.Errorf("cookie: got %q", gotCookie)
	}

	if len(page.Assets) != 2 {
		t.Errorf("assets: got %d, want 2", len(page.Assets))
	}
	if !page.MoreItems {
		t.Error("expected MoreItems")
	}
	if page.NextCursor != "2" {
		t.Errorf("cursor: got %q", page.NextCursor)
	}
	if page.TotalCount != 120 {
		t.Errorf("total: got %d", page.TotalCount)
	}
}

func TestInventoryPageFirstPageOmitsCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("start_assetid") {
			t.Error("first page must not carry start_assetid")
		}
		w.Write([]byte(`{"assets":[],"more_items":false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds)
	if _, err := c.InventoryPage(context.Background(), "76561198000000000", ""); err != nil {
		t.Fatalf("InventoryPage: %v", err)
	}
}

func TestInventoryPageStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, domain.ErrSessionExpired},
		{http.StatusUnauthorized, domain.ErrSessionExpired},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := NewClient(srv.URL, testCreds)
		_, err := c.InventoryPage(context.Background(), "76561198000000000", "")
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: got %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestInventoryPageMissingCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, domain.SteamCredentials{})
	_, err := c.InventoryPage(context.Background(), "76561198000000000", "")
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("got %v, want ErrSessionExpired", err)
	}
	if called {
		t.Error("must not hit the network without credentials")
	}
}

func TestPriceHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("market_hash_name"); got != "AK-47 | Redline (Field-Tested)" {
			t.Errorf("market_hash_name: got %q", got)
		}
		if got := r.URL.Query().Get("appid"); got != "730" {
			t.Errorf("appid: got %q", got)
		}
		w.Write([]byte(`{"success":true,"prices":[
			["Mar 20 2024 01: +0", 12.5, "3"],
			["Mar 21 2024 01: +0", "13.0", "1"]
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds)
	records, err := c.PriceHistory(context.Background(), "AK-47 | Redline (Field-Tested)")
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Date != "2024-03-20" || records[0].Price != 12.5 {
		t.Errorf("first record: %+v", records[0])
	}
	if records[1].Price != 13.0 || records[1].Volume != "1" {
		t.Errorf("second record: %+v", records[1])
	}
}

func TestPriceHistoryNoData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"success false", `{"success":false,"prices":[]}`},
		{"empty series", `{"success":true,"prices":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, testCreds)
			_, err := c.PriceHistory(context.Background(), "some item")
			if !errors.Is(err, domain.ErrNoData) {
				t.Errorf("got %v, want ErrNoData", err)
			}
		})
	}
}
