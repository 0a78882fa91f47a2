package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/emmatheo/polyscop/internal/domain"
)

// MarketService is what MarketHandler needs from the service layer.
type MarketService interface {
	Top(ctx context.Context, limit int) ([]domain.MarketStats, error)
}

// MarketHandler serves per-market rollups.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// Top returns markets ranked by volume.
// GET /api/markets?limit=10
func (h *MarketHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, r, h.logger, "top markets", err)
		return
	}
	stats, err := h.markets.Top(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, "top markets", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
