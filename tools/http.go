// HTTP GET client shared by the fetchers.
//
// Information Hiding:
// - HTTP client implementation details hidden
// - Status handling and body reading abstracted
// - Credentials kept out of logs and errors

package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/richinex/seoscout/logging"
)

// HTTPClient issues single-attempt GET requests and returns the body.
type HTTPClient struct {
	client      *http.Client
	timeoutSecs uint64
	logger      *slog.Logger
}

// NewHTTPClient creates a new HTTP client with the given timeout.
func NewHTTPClient(timeoutSecs uint64) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: time.Duration(timeoutSecs) * time.Second,
		},
		timeoutSecs: timeoutSecs,
		logger:      logging.New("tools"),
	}
}

// Get performs one GET against endpoint with the given query and returns
// the response body. Any transport failure or non-2xx status is a
// *TransportError; the query string is never included in it.
func (c *HTTPClient) Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("invalid endpoint: %w", err)}
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("outbound request", "endpoint", endpoint, "params", redact(query))

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("request timed out: %w", ctx.Err())}
		}
		if ctx.Err() != nil {
			return nil, &TransportError{Endpoint: endpoint, Err: ctx.Err()}
		}
		return nil, &TransportError{Endpoint: endpoint, Err: stripURL(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Err:        fmt.Errorf("HTTP error: %s", resp.Status),
		}
	}

	return body, nil
}

// stripURL drops the request URL from a *url.Error so credentials in the
// query string cannot leak into error messages.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s request failed: %w", ue.Op, ue.Err)
	}
	return err
}

// redact returns the query keys with credential values masked.
func redact(query url.Values) string {
	masked := url.Values{}
	for key, vals := range query {
		for _, v := range vals {
			if key == "api_key" || key == "key" {
				v = "***"
			}
			masked.Add(key, v)
		}
	}
	return masked.Encode()
}
