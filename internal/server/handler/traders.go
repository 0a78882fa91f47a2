package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/emmatheo/polyscop/internal/domain"
)

// TraderService is what TraderHandler needs from the service layer.
type TraderService interface {
	Top(ctx context.Context, search string, limit int) ([]domain.TraderStats, error)
}

// TraderHandler serves the top-trader leaderboard.
type TraderHandler struct {
	traders TraderService
	logger  *slog.Logger
}

// NewTraderHandler creates a TraderHandler.
func NewTraderHandler(traders TraderService, logger *slog.Logger) *TraderHandler {
	return &TraderHandler{traders: traders, logger: logger}
}

// Top returns ranked 30-day trader stats.
// GET /api/traders?limit=20&search=
func (h *TraderHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, r, h.logger, "top traders", err)
		return
	}
	stats, err := h.traders.Top(r.Context(), r.URL.Query().Get("search"), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, "top traders", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
