// ABOUTME: Call contracts and error taxonomy for the external query and insight services
// ABOUTME: Workers consume these interfaces; implementations live behind them

package adapter

import (
	"context"
	"encoding/json"
	"errors"
)

// Error taxonomy shared by both external services. Retry wrappers decide
// per-service which of these are transient.
var (
	ErrRateLimited     = errors.New("rate limited")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrUnavailable     = errors.New("service unavailable")
	ErrNoSpace         = errors.New("no query space available")
	ErrInvalidResponse = errors.New("invalid response")
)

// QueryResult is the outcome of one NL-to-SQL query.
type QueryResult struct {
	SQLText  string   `json:"sql_text"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
	Mock     bool     `json:"mock,omitempty"`
}

// QueryClient turns a context-enriched natural-language question into
// tabular data via the external query service.
type QueryClient interface {
	Query(ctx context.Context, question string) (*QueryResult, error)
}

// InsightRequest carries everything the insight service needs to summarize a
// result set and recommend a chart.
type InsightRequest struct {
	Question string   `json:"question"`
	SQLText  string   `json:"sql_text,omitempty"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
}

// Recommendation is the insight service's summary and chart suggestion.
type Recommendation struct {
	Summary     string          `json:"summary_text"`
	ChartType   string          `json:"chart_type"`
	ChartConfig json.RawMessage `json:"chart_config,omitempty"`
	Reasoning   string          `json:"reasoning,omitempty"`
}

// InsightClient produces a summary and chart recommendation for a result set.
type InsightClient interface {
	Recommend(ctx context.Context, req *InsightRequest) (*Recommendation, error)
}
