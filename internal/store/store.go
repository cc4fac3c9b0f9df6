// ABOUTME: Data types and sentinel errors for the in-memory conversation store
// ABOUTME: Defines Conversation, Message and the tagged per-role payloads

package store

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested conversation does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidRole is returned when appending a message with a role the
// operation does not accept.
var ErrInvalidRole = errors.New("invalid message role")

// Role constants for message types.
const (
	RoleUser           = "user"
	RoleAssistantText  = "assistant_text"
	RoleAssistantChart = "assistant_chart"
	RoleAssistantError = "assistant_error"
)

// titleLimit is the maximum rune length of a title derived from the first
// user message. Longer titles are truncated with an ellipsis.
const titleLimit = 50

// ChartPayload carries the chart-specific fields of an assistant_chart
// message. Content on the message itself holds the human-readable summary.
type ChartPayload struct {
	ChartType   string          `json:"chart_type"`
	ChartConfig json.RawMessage `json:"chart_config,omitempty"`
	Reasoning   string          `json:"reasoning,omitempty"`
	SQLText     string          `json:"sql_text,omitempty"`
	Columns     []string        `json:"columns,omitempty"`
	Rows        [][]any         `json:"rows,omitempty"` // sampled, not the full result
	RowCount    int             `json:"row_count"`
	Mock        bool            `json:"mock,omitempty"`
}

// ErrorPayload carries the diagnostic detail of an assistant_error message.
// Content on the message itself holds the user-readable cause.
type ErrorPayload struct {
	Detail string `json:"detail,omitempty"`
}

// Message is a single entry in a conversation. Exactly one of Chart or Error
// may be set, and only for the matching role; user and assistant_text
// messages carry content only. Messages are never mutated after creation.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Role           string        `json:"role"`
	Content        string        `json:"content"`
	CreatedAt      time.Time     `json:"created_at"`
	Chart          *ChartPayload `json:"chart,omitempty"`
	Error          *ErrorPayload `json:"error,omitempty"`
}

// Conversation is an ordered, append-only sequence of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Active    bool      `json:"is_active"`
	Messages  []Message `json:"messages"`
}

// Summary is the lightweight conversation view used by list endpoints.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Active       bool      `json:"is_active"`
}
