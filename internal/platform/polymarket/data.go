package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

// DataClient is the REST client for the Polymarket data-api, which serves the
// public trade tape.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
	resolver   OutcomeResolver
	logger     *slog.Logger
}

// NewDataClient creates a data-api client.
//
// baseURL is the API root, e.g. "https://data-api.polymarket.com". A zero
// timeout selects 30s.
func NewDataClient(baseURL string, timeout time.Duration, logger *slog.Logger) *DataClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DataClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "data_client")),
	}
}

// WithResolver sets the outcome resolver used by FetchNormalized.
func (c *DataClient) WithResolver(r OutcomeResolver) *DataClient {
	c.resolver = r
	return c
}

// FetchTrades returns the most recent taker trades of at least minAmount USD.
// Failures are reported as *domain.UpstreamError and are not retried.
func (c *DataClient) FetchTrades(ctx context.Context, limit int, minAmount float64) ([]domain.RawTrade, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("filterType", "CASH")
	params.Set("filterAmount", strconv.FormatFloat(minAmount, 'f', -1, 64))
	params.Set("takerOnly", "true")

	body, err := doGet(ctx, c.httpClient, "fetch trades", c.baseURL+"/trades?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var raw []domain.RawTrade
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.UpstreamError{Op: "decode trades", Err: err}
	}
	return raw, nil
}

// FetchNormalized fetches and normalizes a batch. Records that fail
// validation are dropped; the number dropped is returned alongside.
func (c *DataClient) FetchNormalized(ctx context.Context, limit int, minAmount float64) ([]domain.Trade, int, error) {
	raw, err := c.FetchTrades(ctx, limit, minAmount)
	if err != nil {
		return nil, 0, err
	}

	trades := make([]domain.Trade, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		t, err := Normalize(ctx, r, c.resolver)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				dropped++
				continue
			}
			return nil, dropped, err
		}
		trades = append(trades, t)
	}
	if dropped > 0 {
		c.logger.Debug("dropped invalid trades",
			slog.Int("dropped", dropped),
			slog.Int("kept", len(trades)),
		)
	}
	return trades, dropped, nil
}
