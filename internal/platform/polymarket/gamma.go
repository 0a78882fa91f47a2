package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market metadata. It is used to map outcome tokens back to the
// YES/NO side of their market.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client

	mu       sync.RWMutex
	outcomes map[string]resolvedOutcome
}

type resolvedOutcome struct {
	outcome domain.Outcome
	ok      bool
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, timeout time.Duration) *GammaClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GammaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		outcomes:   make(map[string]resolvedOutcome),
	}
}

// MarketByToken returns the market that lists tokenID among its outcome
// tokens.
func (g *GammaClient) MarketByToken(ctx context.Context, tokenID string) (domain.MarketOutcomes, error) {
	params := url.Values{}
	params.Set("clob_token_ids", tokenID)

	body, err := doGet(ctx, g.httpClient, "gamma markets", g.baseURL+"/markets?"+params.Encode())
	if err != nil {
		return domain.MarketOutcomes{}, fmt.Errorf("polymarket/gamma: market by token: %w", err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return domain.MarketOutcomes{}, &domain.UpstreamError{Op: "decode gamma markets", Err: err}
	}
	for i := range markets {
		m := &markets[i]
		ids := m.tokenIDs()
		for _, id := range ids {
			if id == tokenID {
				return domain.MarketOutcomes{
					ConditionID: m.ConditionID,
					Question:    m.Question,
					Outcomes:    m.outcomeLabels(),
					TokenIDs:    ids,
					Tags:        m.tags(),
				}, nil
			}
		}
	}
	return domain.MarketOutcomes{}, fmt.Errorf("polymarket/gamma: token %s: %w", tokenID, domain.ErrNotFound)
}

// ResolveOutcome maps tokenID onto YES or NO by its position in the market's
// token list. Yes/No labels are honored directly; other labels map by index,
// 0 to YES and 1 to NO. Answers, including misses, are memoized. Transport
// errors are not.
func (g *GammaClient) ResolveOutcome(ctx context.Context, tokenID string) (domain.Outcome, bool, error) {
	g.mu.RLock()
	cached, hit := g.outcomes[tokenID]
	g.mu.RUnlock()
	if hit {
		return cached.outcome, cached.ok, nil
	}

	market, err := g.MarketByToken(ctx, tokenID)
	var res resolvedOutcome
	switch {
	case err == nil:
		res.outcome, res.ok = outcomeForToken(market, tokenID)
	case isNotFound(err):
	default:
		return "", false, err
	}

	g.mu.Lock()
	g.outcomes[tokenID] = res
	g.mu.Unlock()
	return res.outcome, res.ok, nil
}

func outcomeForToken(m domain.MarketOutcomes, tokenID string) (domain.Outcome, bool) {
	for i, id := range m.TokenIDs {
		if id != tokenID {
			continue
		}
		if i < len(m.Outcomes) {
			if o, ok := ParseOutcome(m.Outcomes[i]); ok {
				return o, true
			}
		}
		return outcomeFromIndex(i)
	}
	return "", false
}
