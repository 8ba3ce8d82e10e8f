package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
	syncpkg "github.com/skinfolio/skinsync/internal/sync"
)

// syncTimeout bounds a background sync run triggered over the API. A full
// inventory plus a large price-history batch can legitimately take many
// minutes at one item per second.
const syncTimeout = 30 * time.Minute

// SyncHandler serves the sync trigger and sync history endpoints.
type SyncHandler struct {
	orch   *syncpkg.Orchestrator
	runs   domain.SyncRunStore // optional
	logger *slog.Logger
}

// NewSyncHandler creates a SyncHandler around the given orchestrator. runs
// may be nil when no journal store is configured.
func NewSyncHandler(orch *syncpkg.Orchestrator, runs domain.SyncRunStore, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		orch:   orch,
		runs:   runs,
		logger: logHandler(logger, "sync"),
	}
}

type triggerRequest struct {
	SteamID string `json:"steam_id"`
}

// TriggerSync starts a full sync for the given account in the background and
// returns immediately. Progress is observable over the WebSocket endpoint.
// A 409 is returned when a sync for the account is already running.
// POST /api/sync
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	steamID := strings.TrimSpace(req.SteamID)
	if steamID == "" {
		writeError(w, http.StatusBadRequest, "steam_id is required")
		return
	}

	// Busy is the only failure worth reporting synchronously, so probe the
	// trigger in the request goroutine only when the run refuses to start.
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		job, _, err := h.orch.Run(ctx, steamID)
		done <- err
		if err != nil && !errors.Is(err, domain.ErrSyncBusy) {
			h.logger.Error("background sync failed",
				slog.String("job_id", job.ID),
				slog.String("steam_id", steamID),
				slog.String("error", err.Error()),
			)
		}
	}()

	select {
	case err := <-done:
		if errors.Is(err, domain.ErrSyncBusy) {
			writeError(w, http.StatusConflict, "sync already in progress")
			return
		}
	case <-time.After(150 * time.Millisecond):
		// Run is underway; report accepted.
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"steam_id":     steamID,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// ListRuns returns the most recent sync runs for an account.
// GET /api/sync/runs?steam_id=...&limit=20
func (h *SyncHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, "sync journal not configured")
		return
	}

	steamID := strings.TrimSpace(r.URL.Query().Get("steam_id"))
	if steamID == "" {
		writeError(w, http.StatusBadRequest, "steam_id is required")
		return
	}
	limit := queryInt(r, "limit", 20)

	runs, err := h.runs.ListRecent(r.Context(), steamID, limit)
	if err != nil {
		h.logger.Error("list sync runs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list sync runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
