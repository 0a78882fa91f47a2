package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/emmatheo/polyscop/internal/domain"
)

// InsightService is what InsightHandler needs from the service layer.
type InsightService interface {
	Momentum(ctx context.Context, n int) (domain.Momentum, error)
	Sentiment(ctx context.Context) ([]domain.CategorySentiment, error)
	Volume(ctx context.Context, hours int) ([]domain.VolumeBucket, error)
	HugeWhales(ctx context.Context, limit int) ([]domain.Trade, error)
}

// InsightHandler serves whale-flow insights and alerts.
type InsightHandler struct {
	insights InsightService
	logger   *slog.Logger
}

// NewInsightHandler creates an InsightHandler.
func NewInsightHandler(insights InsightService, logger *slog.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, logger: logger}
}

// Momentum GET /api/insights/momentum?window=20
func (h *InsightHandler) Momentum(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "window")
	if err != nil {
		writeServiceError(w, r, h.logger, "momentum", err)
		return
	}
	m, err := h.insights.Momentum(r.Context(), n)
	if err != nil {
		writeServiceError(w, r, h.logger, "momentum", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Sentiment GET /api/insights/sentiment
func (h *InsightHandler) Sentiment(w http.ResponseWriter, r *http.Request) {
	s, err := h.insights.Sentiment(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "sentiment", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Volume GET /api/insights/volume?hours=24
func (h *InsightHandler) Volume(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hours")
	if err != nil {
		writeServiceError(w, r, h.logger, "volume", err)
		return
	}
	v, err := h.insights.Volume(r.Context(), hours)
	if err != nil {
		writeServiceError(w, r, h.logger, "volume", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HugeWhales GET /api/alerts/huge?limit=50
func (h *InsightHandler) HugeWhales(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, r, h.logger, "huge whales", err)
		return
	}
	trades, err := h.insights.HugeWhales(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, "huge whales", err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}
