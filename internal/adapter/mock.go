// ABOUTME: Mock query client used when no query service is configured
// ABOUTME: Generates deterministic demo datasets keyed on question keywords

package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// MockQueryClient answers every question from a small set of demo datasets
// so the full pipeline can run without external credentials. Results carry
// the Mock flag so the UI can badge them.
type MockQueryClient struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockQueryClient creates a mock client seeded for reproducible runs.
func NewMockQueryClient(seed int64) *MockQueryClient {
	return &MockQueryClient{rng: rand.New(rand.NewSource(seed))}
}

// Query fabricates a dataset matching the question's subject.
func (c *MockQueryClient) Query(_ context.Context, question string) (*QueryResult, error) {
	labels, columns := mockShape(question)

	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([][]any, len(labels))
	for i, label := range labels {
		rows[i] = []any{label, float64(c.rng.Intn(490000) + 10000)}
	}

	return &QueryResult{
		SQLText:  fmt.Sprintf("SELECT %s, %s FROM demo GROUP BY %s", columns[0], columns[1], columns[0]),
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
		Mock:     true,
	}, nil
}

// mockShape picks labels and column names for the question's subject.
func mockShape(question string) (labels []string, columns []string) {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "product", "sales", "revenue"):
		return []string{"iPhone 15", "MacBook Pro", "iPad Air", "Apple Watch", "AirPods Pro"},
			[]string{"product_name", "sales_amount"}
	case containsAny(q, "employee", "staff", "department"):
		return []string{"Engineering", "Sales", "Marketing", "Support", "HR"},
			[]string{"department", "employee_count"}
	case containsAny(q, "month", "time", "trend", "year"):
		return []string{"Jan 2024", "Feb 2024", "Mar 2024", "Apr 2024", "May 2024"},
			[]string{"month", "revenue"}
	case containsAny(q, "region", "country", "location"):
		return []string{"North America", "Europe", "Asia Pacific", "South America", "Africa"},
			[]string{"region", "total_sales"}
	default:
		return []string{"Category A", "Category B", "Category C", "Category D", "Category E"},
			[]string{"category", "value"}
	}
}
