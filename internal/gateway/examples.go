// ABOUTME: Curated example questions surfaced to the UI via GET /api/examples
// ABOUTME: Each entry names the category and the chart type it typically produces

package gateway

import "strconv"

// ExampleQuestion is a starter question shown to first-time users.
type ExampleQuestion struct {
	Text        string `json:"text"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ChartType   string `json:"chart_type"`
}

var exampleQuestions = []ExampleQuestion{
	{
		Text:        "What are the top 5 products by total sales?",
		Description: "Top Products by Sales",
		Category:    "sales",
		ChartType:   "bar",
	},
	{
		Text:        "Show me revenue by month for the last year",
		Description: "Revenue by Month",
		Category:    "time_series",
		ChartType:   "line",
	},
	{
		Text:        "Which regions have the highest customer counts?",
		Description: "Customers by Region",
		Category:    "geographic",
		ChartType:   "bar",
	},
	{
		Text:        "What is the average order value by product category?",
		Description: "Average Order Value",
		Category:    "analysis",
		ChartType:   "bar",
	},
	{
		Text:        "Show me sales distribution by product category",
		Description: "Sales Distribution",
		Category:    "distribution",
		ChartType:   "pie",
	},
	{
		Text:        "What are quarterly revenue trends?",
		Description: "Quarterly Trends",
		Category:    "time_series",
		ChartType:   "line",
	},
}

// filterExamples applies the optional category and limit query values.
// Unparseable limits are ignored.
func filterExamples(category, limit string) []ExampleQuestion {
	questions := make([]ExampleQuestion, 0, len(exampleQuestions))
	for _, q := range exampleQuestions {
		if category != "" && q.Category != category {
			continue
		}
		questions = append(questions, q)
	}

	if limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n >= 0 && n < len(questions) {
			questions = questions[:n]
		}
	}
	return questions
}
