// ABOUTME: Tests for the transcript page renderer
// ABOUTME: Verifies markdown rendering, escaping, and chart detail blocks

package webchat

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/querydeck/internal/store"
)

func TestRenderConversation(t *testing.T) {
	r := NewRenderer(nil)

	conv := &store.Conversation{
		ID:    "conv-1",
		Title: "What are total sales by region?",
		Messages: []store.Message{
			{Role: store.RoleUser, Content: "What are total sales by region?", CreatedAt: time.Now()},
			{
				Role:    store.RoleAssistantChart,
				Content: "**West** leads total sales.",
				Chart: &store.ChartPayload{
					ChartType:   "bar",
					ChartConfig: json.RawMessage(`{"title":"Sales by region"}`),
					SQLText:     "SELECT region, SUM(amount) FROM sales GROUP BY region",
					RowCount:    2,
					Mock:        true,
				},
				CreatedAt: time.Now(),
			},
		},
	}

	rec := httptest.NewRecorder()
	r.RenderConversation(rec, conv)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<strong>West</strong>", "markdown must be rendered")
	assert.Contains(t, body, "SELECT region, SUM(amount)")
	assert.Contains(t, body, "bar chart")
	assert.Contains(t, body, "sample data")
	assert.Contains(t, body, "Sales by region")
}

func TestRenderConversation_EscapesUserContent(t *testing.T) {
	r := NewRenderer(nil)

	conv := &store.Conversation{
		ID:    "conv-1",
		Title: "t",
		Messages: []store.Message{
			{Role: store.RoleUser, Content: "<script>alert(1)</script>", CreatedAt: time.Now()},
		},
	}

	rec := httptest.NewRecorder()
	r.RenderConversation(rec, conv)

	body := rec.Body.String()
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRenderConversation_ErrorMessage(t *testing.T) {
	r := NewRenderer(nil)

	conv := &store.Conversation{
		ID:    "conv-1",
		Title: "t",
		Messages: []store.Message{
			{Role: store.RoleAssistantError, Content: "The data service is temporarily unavailable.", CreatedAt: time.Now()},
		},
	}

	rec := httptest.NewRecorder()
	r.RenderConversation(rec, conv)

	body := rec.Body.String()
	assert.Contains(t, body, `class="message error"`)
	assert.Contains(t, body, "temporarily unavailable")
}

func TestRenderConversation_Empty(t *testing.T) {
	r := NewRenderer(nil)
	rec := httptest.NewRecorder()
	r.RenderConversation(rec, &store.Conversation{ID: "conv-1"})

	assert.Contains(t, rec.Body.String(), "No messages yet.")
	assert.Contains(t, rec.Body.String(), "Conversation", "untitled conversations get a fallback title")
}
