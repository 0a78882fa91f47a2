package polymarket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/emmatheo/polyscop/internal/domain"
)

// maxErrorBody bounds how much of a failed response is echoed into errors.
const maxErrorBody = 256

// checkHTTPStatus maps a non-2xx response onto the domain error taxonomy.
func checkHTTPStatus(op string, statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	if len(bodyStr) > maxErrorBody {
		bodyStr = bodyStr[:maxErrorBody]
	}
	var cause error
	switch statusCode {
	case http.StatusNotFound:
		cause = fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		cause = fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		cause = errors.New(bodyStr)
	}
	return &domain.UpstreamError{Op: op, StatusCode: statusCode, Err: cause}
}

// doGet issues a GET against baseURL+path and returns the body of a 2xx
// response. Transport failures and bad statuses come back as
// *domain.UpstreamError.
func doGet(ctx context.Context, client *http.Client, op, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if err := checkHTTPStatus(op, resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
