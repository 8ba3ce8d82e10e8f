package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/skinfolio/skinsync/internal/domain"
	"github.com/skinfolio/skinsync/internal/service"
)

// PortfolioHandler serves the cached portfolio views and per-item history
// windows.
type PortfolioHandler struct {
	portfolio *service.PortfolioService
	history   *service.HistoryService
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler over the two view services.
func NewPortfolioHandler(portfolio *service.PortfolioService, history *service.HistoryService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		history:   history,
		logger:    logHandler(logger, "portfolio"),
	}
}

// CurrentPortfolio returns the cached current-portfolio view.
// GET /api/portfolio/{steamID}
func (h *PortfolioHandler) CurrentPortfolio(w http.ResponseWriter, r *http.Request) {
	steamID := pathParam(r, "steamID")
	payload, err := h.portfolio.CurrentView(r.Context(), steamID)
	if err != nil {
		h.logger.Error("portfolio view", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "failed to load portfolio")
		return
	}
	writeRawJSON(w, payload)
}

// PortfolioHistory returns the cached portfolio history view.
// GET /api/portfolio/{steamID}/history
func (h *PortfolioHandler) PortfolioHistory(w http.ResponseWriter, r *http.Request) {
	steamID := pathParam(r, "steamID")
	payload, err := h.portfolio.HistoryView(r.Context(), steamID)
	if err != nil {
		h.logger.Error("portfolio history view", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "failed to load portfolio history")
		return
	}
	writeRawJSON(w, payload)
}

// ItemHistory returns a price-history window for one item. Seven-day windows
// are derived from the cached thirty-day window without a backend call.
// GET /api/items/{name}/history?days=30
func (h *PortfolioHandler) ItemHistory(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	days := queryInt(r, "days", 30)

	window, err := h.history.GetWindow(r.Context(), name, days)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			writeJSON(w, http.StatusOK, map[string]any{
				"market_hash_name": name,
				"days":             days,
				"points":           []domain.PricePoint{},
				"summary":          nil,
			})
			return
		}
		h.logger.Error("item history", slog.String("item", name), slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "failed to load item history")
		return
	}

	writeJSON(w, http.StatusOK, window)
}

// writeRawJSON forwards an already-serialized JSON payload.
func writeRawJSON(w http.ResponseWriter, payload []byte) {
	if !json.Valid(payload) {
		writeError(w, http.StatusBadGateway, "upstream returned invalid payload")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
