package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
)

// TradeService is what TradeHandler needs from the service layer.
type TradeService interface {
	List(ctx context.Context, q analytics.TradeQuery) ([]domain.Trade, error)
}

// TradeHandler serves the recent whale trade listing.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// List returns recent trades.
// GET /api/trades?limit=100&search=&minAmount=&category=
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, r, h.logger, "list trades", err)
		return
	}
	minAmount, err := queryFloat(r, "minAmount")
	if err != nil {
		writeServiceError(w, r, h.logger, "list trades", err)
		return
	}

	q := r.URL.Query()
	trades, err := h.trades.List(r.Context(), analytics.TradeQuery{
		Search:    q.Get("search"),
		MinAmount: minAmount,
		Category:  q.Get("category"),
		Limit:     limit,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "list trades", err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}
