package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
	syncpkg "github.com/skinfolio/skinsync/internal/sync"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPager struct{}

func (stubPager) InventoryPage(ctx context.Context, steamID, cursor string) (domain.InventoryPage, error) {
	return domain.InventoryPage{Assets: []json.RawMessage{json.RawMessage(`{}`)}}, nil
}

type stubIngestor struct{}

func (stubIngestor) UploadInventory(ctx context.Context, inv *domain.Inventory) (domain.UploadResult, error) {
	return domain.UploadResult{ItemsSynced: 1, Status: "success"}, nil
}

type stubLister struct{}

func (stubLister) ListItems(ctx context.Context) ([]domain.Item, error) { return nil, nil }

type stubSource struct{}

func (stubSource) PriceHistory(ctx context.Context, name string) ([]domain.RawHistoryRecord, error) {
	return nil, domain.ErrNoData
}

type stubSink struct{}

func (stubSink) UploadPriceHistory(ctx context.Context, name string, records []domain.RawHistoryRecord) (int, error) {
	return 0, nil
}

type stubLoader struct{}

func (stubLoader) Reload(ctx context.Context, steamID string) error { return nil }

type heldLockManager struct{}

func (heldLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

func newHandlerOrchestrator(opts ...syncpkg.OrchestratorOption) *syncpkg.Orchestrator {
	agg := syncpkg.NewInventoryAggregator(stubPager{}, time.Millisecond, 0, testLogger())
	batcher := syncpkg.NewHistoryBatcher(stubSource{}, stubSink{}, time.Millisecond, testLogger())
	return syncpkg.NewOrchestrator(agg, stubIngestor{}, stubLister{}, batcher, stubLoader{}, nil, testLogger(), opts...)
}

func TestTriggerSyncAccepted(t *testing.T) {
	h := NewSyncHandler(newHandlerOrchestrator(), nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"steam_id":"76561198000000000"}`))
	rec := httptest.NewRecorder()
	h.TriggerSync(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "accepted" {
		t.Errorf("body: %v", body)
	}
}

func TestTriggerSyncBusy(t *testing.T) {
	h := NewSyncHandler(newHandlerOrchestrator(syncpkg.WithLockManager(heldLockManager{}, time.Minute)), nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"steam_id":"76561198000000000"}`))
	rec := httptest.NewRecorder()
	h.TriggerSync(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, body %s", rec.Code, rec.Body)
	}
}

func TestTriggerSyncBadRequest(t *testing.T) {
	h := NewSyncHandler(newHandlerOrchestrator(), nil, testLogger())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `not json`},
		{"missing steam id", `{}`},
		{"blank steam id", `{"steam_id":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.TriggerSync(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d", rec.Code)
			}
		})
	}
}

type stubRunStore struct {
	runs []domain.SyncRun
}

func (s *stubRunStore) Record(ctx context.Context, run domain.SyncRun) error { return nil }

func (s *stubRunStore) ListRecent(ctx context.Context, steamID string, limit int) ([]domain.SyncRun, error) {
	return s.runs, nil
}

func TestListRuns(t *testing.T) {
	store := &stubRunStore{runs: []domain.SyncRun{
		{ID: "r1", SteamID: "s1", ItemCount: 3},
	}}
	h := NewSyncHandler(newHandlerOrchestrator(), store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/sync/runs?steam_id=s1", nil)
	rec := httptest.NewRecorder()
	h.ListRuns(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		Runs []domain.SyncRun `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Runs) != 1 || body.Runs[0].ID != "r1" {
		t.Errorf("runs: %+v", body.Runs)
	}
}

func TestListRunsRequiresSteamID(t *testing.T) {
	h := NewSyncHandler(newHandlerOrchestrator(), &stubRunStore{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/sync/runs", nil)
	rec := httptest.NewRecorder()
	h.ListRuns(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestListRunsWithoutJournal(t *testing.T) {
	h := NewSyncHandler(newHandlerOrchestrator(), nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/sync/runs?steam_id=s1", nil)
	rec := httptest.NewRecorder()
	h.ListRuns(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d", rec.Code)
	}
}
