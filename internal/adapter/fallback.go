// ABOUTME: Default chart recommendation used when the insight service degrades
// ABOUTME: Builds a bar/line/pie config directly from the result set

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LocalInsightClient recommends charts without any external service, using
// FallbackRecommendation for every request. It backs mock deployments.
type LocalInsightClient struct{}

func (LocalInsightClient) Recommend(_ context.Context, req *InsightRequest) (*Recommendation, error) {
	return FallbackRecommendation(req), nil
}

// chartConfig is the wire shape of a generated chart configuration. The
// frontend feeds labels/values straight into its chart renderer.
type chartConfig struct {
	Title  string    `json:"title"`
	XAxis  string    `json:"x_axis"`
	YAxis  string    `json:"y_axis"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// FallbackRecommendation builds a chart recommendation without the insight
// service: a question-keyword chart type, labels/values from the first two
// columns, and a generic summary. Used when the service returns something
// unparsable, so users still get a rendered chart instead of an error.
func FallbackRecommendation(req *InsightRequest) *Recommendation {
	chartType, reasoning := guessChartType(req.Question)

	cfg := chartConfig{
		Title: strings.TrimSuffix(strings.TrimSpace(req.Question), "?"),
		XAxis: "category",
		YAxis: "value",
	}
	if len(req.Columns) > 0 {
		cfg.XAxis = req.Columns[0]
	}
	if len(req.Columns) > 1 {
		cfg.YAxis = req.Columns[1]
	}

	for i, row := range req.Rows {
		if len(row) == 0 {
			continue
		}
		if len(row) == 1 {
			cfg.Labels = append(cfg.Labels, fmt.Sprintf("Item %d", i+1))
			cfg.Values = append(cfg.Values, toFloat(row[0], float64(i+1)))
			continue
		}
		cfg.Labels = append(cfg.Labels, fmt.Sprint(row[0]))
		cfg.Values = append(cfg.Values, toFloat(row[1], 0))
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		raw = []byte("{}")
	}

	return &Recommendation{
		Summary: fmt.Sprintf("The query returned %d rows across %d columns.",
			len(req.Rows), len(req.Columns)),
		ChartType:   chartType,
		ChartConfig: raw,
		Reasoning:   reasoning,
	}
}

// guessChartType picks a chart type from question keywords.
func guessChartType(question string) (chartType, reasoning string) {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "top", "highest", "best", "most", "rank"):
		return "bar", "Bar chart is ideal for comparing and ranking values"
	case containsAny(q, "trend", "over time", "by month", "by year", "timeline"):
		return "line", "Line chart is perfect for showing trends over time"
	case containsAny(q, "distribution", "breakdown", "percentage", "share"):
		return "pie", "Pie chart effectively shows distribution and proportions"
	default:
		return "bar", "Bar chart is versatile and works well for most data comparisons"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// toFloat coerces a cell to float64, tolerating string numbers with
// thousands separators. Unparsable cells get the fallback value.
func toFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", ""), 64); err == nil {
			return f
		}
	}
	return fallback
}
