// ABOUTME: HTTP client for the external NL-to-SQL query service
// ABOUTME: Maps transport failures onto the shared adapter error taxonomy

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// GenieClient talks to the query service over HTTP. One request per
// question; retries live in the wrapping RetryingQueryClient.
type GenieClient struct {
	endpoint string
	token    string
	spaceID  string
	client   *http.Client
	logger   *slog.Logger
}

// NewGenieClient creates a query client for the given endpoint. The token is
// sent as a bearer credential; spaceID selects the query space server-side.
func NewGenieClient(endpoint, token, spaceID string, timeout time.Duration, logger *slog.Logger) *GenieClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GenieClient{
		endpoint: endpoint,
		token:    token,
		spaceID:  spaceID,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "genie-client"),
	}
}

type genieQueryRequest struct {
	Question string `json:"question"`
	SpaceID  string `json:"space_id,omitempty"`
}

// Query sends the enriched question and decodes the tabular result.
func (c *GenieClient) Query(ctx context.Context, question string) (*QueryResult, error) {
	body, err := json.Marshal(genieQueryRequest{Question: question, SpaceID: c.spaceID})
	if err != nil {
		return nil, fmt.Errorf("encoding query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return nil, err
	}

	var result QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}
	if result.RowCount == 0 {
		result.RowCount = len(result.Rows)
	}

	c.logger.Debug("query completed",
		"rows", result.RowCount,
		"columns", len(result.Columns),
		"elapsed", time.Since(start))
	return &result, nil
}

// classifyStatus maps HTTP status codes onto the adapter taxonomy.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthFailed
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusConflict:
		return ErrNoSpace
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
