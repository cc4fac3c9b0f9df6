// ABOUTME: HTTP client for the AI summarization and chart recommendation service
// ABOUTME: Unparsable or empty responses surface as ErrInvalidResponse for fallback handling

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

// InsightHTTPClient talks to the AI insight service over HTTP.
type InsightHTTPClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
	logger   *slog.Logger
}

// NewInsightHTTPClient creates an insight client for the given endpoint.
func NewInsightHTTPClient(endpoint, apiKey, model string, timeout time.Duration, logger *slog.Logger) *InsightHTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &InsightHTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "insight-client"),
	}
}

type insightHTTPRequest struct {
	Model    string   `json:"model,omitempty"`
	Question string   `json:"question"`
	SQLText  string   `json:"sql_text,omitempty"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
}

// Recommend asks the service for a summary and chart recommendation. Rows
// are sampled to keep the request bounded; the service never needs the full
// result set for a recommendation.
func (c *InsightHTTPClient) Recommend(ctx context.Context, req *InsightRequest) (*Recommendation, error) {
	rows := req.Rows
	if len(rows) > 10 {
		rows = rows[:10]
	}

	body, err := json.Marshal(insightHTTPRequest{
		Model:    c.model,
		Question: req.Question,
		SQLText:  req.SQLText,
		Columns:  req.Columns,
		Rows:     rows,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding insight request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building insight request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err) // treat transport failure as transient
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return nil, ErrAuthFailed
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var rec Recommendation
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if rec.Summary == "" || rec.ChartType == "" {
		return nil, fmt.Errorf("%w: missing summary or chart type", ErrInvalidResponse)
	}

	c.logger.Debug("insight completed", "chart_type", rec.ChartType)
	return &rec, nil
}
