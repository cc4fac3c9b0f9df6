// ABOUTME: Tests for the HTTP query and insight clients
// ABOUTME: Exercises status-code classification against httptest servers

package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenieClient_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req genieQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "space-1", req.SpaceID)
		assert.Contains(t, req.Question, "sales")

		json.NewEncoder(w).Encode(QueryResult{
			SQLText: "SELECT region, SUM(amount) FROM sales GROUP BY region",
			Columns: []string{"region", "total"},
			Rows:    [][]any{{"West", 10.0}, {"East", 20.0}},
		})
	}))
	defer srv.Close()

	client := NewGenieClient(srv.URL, "secret", "space-1", time.Second, nil)
	result, err := client.Query(context.Background(), "total sales by region")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount, "row count derived from rows when omitted")
	assert.Equal(t, []string{"region", "total"}, result.Columns)
}

func TestGenieClient_StatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuthFailed},
		{"forbidden", http.StatusForbidden, ErrAuthFailed},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"no space", http.StatusConflict, ErrNoSpace},
		{"server error", http.StatusServiceUnavailable, ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			client := NewGenieClient(srv.URL, "", "", time.Second, nil)
			_, err := client.Query(context.Background(), "q")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestInsightHTTPClient_Recommend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req insightHTTPRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Rows), 10, "rows must be sampled")

		json.NewEncoder(w).Encode(Recommendation{
			Summary:   "West leads.",
			ChartType: "bar",
			Reasoning: "ranking question",
		})
	}))
	defer srv.Close()

	rows := make([][]any, 25)
	for i := range rows {
		rows[i] = []any{"r", float64(i)}
	}

	client := NewInsightHTTPClient(srv.URL, "key", "gpt-test", time.Second, nil)
	rec, err := client.Recommend(context.Background(), &InsightRequest{
		Question: "top regions",
		Columns:  []string{"region", "total"},
		Rows:     rows,
	})
	require.NoError(t, err)
	assert.Equal(t, "bar", rec.ChartType)
}

func TestInsightHTTPClient_EmptyBodyIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewInsightHTTPClient(srv.URL, "", "", time.Second, nil)
	_, err := client.Recommend(context.Background(), &InsightRequest{Question: "q"})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
