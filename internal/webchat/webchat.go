// ABOUTME: Server-rendered transcript page for a conversation
// ABOUTME: Assistant summaries are markdown, converted to HTML with goldmark

package webchat

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/2389/querydeck/internal/store"
)

// Renderer renders conversation transcripts as HTML pages.
type Renderer struct {
	tmpl   *template.Template
	logger *slog.Logger
}

// NewRenderer parses the embedded templates.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		tmpl:   template.Must(template.ParseFS(templateFS, "templates/chat.html")),
		logger: logger.With("component", "webchat"),
	}
}

type chatMessage struct {
	RoleLabel string
	RoleClass string
	Content   template.HTML
	Plain     string
	SQLText   string
	ChartType string
	ChartJSON string
	RowCount  int
	Mock      bool
	IsError   bool
	Time      string
}

type chatData struct {
	Title    string
	ID       string
	Messages []chatMessage
}

// RenderConversation writes the transcript page for a conversation.
func (r *Renderer) RenderConversation(w http.ResponseWriter, conv *store.Conversation) {
	data := chatData{
		Title: conv.Title,
		ID:    conv.ID,
	}
	if data.Title == "" {
		data.Title = "Conversation"
	}

	for _, msg := range conv.Messages {
		cm := chatMessage{Time: msg.CreatedAt.Format("15:04:05")}
		switch msg.Role {
		case store.RoleUser:
			cm.RoleLabel = "You"
			cm.RoleClass = "user"
			cm.Plain = msg.Content
		case store.RoleAssistantError:
			cm.RoleLabel = "Assistant"
			cm.RoleClass = "error"
			cm.Plain = msg.Content
			cm.IsError = true
		default:
			cm.RoleLabel = "Assistant"
			cm.RoleClass = "assistant"
			cm.Content = r.markdown(msg.Content)
			if msg.Chart != nil {
				cm.SQLText = msg.Chart.SQLText
				cm.ChartType = msg.Chart.ChartType
				cm.RowCount = msg.Chart.RowCount
				cm.Mock = msg.Chart.Mock
				if len(msg.Chart.ChartConfig) > 0 {
					cm.ChartJSON = prettyJSON(msg.Chart.ChartConfig)
				}
			}
		}
		data.Messages = append(data.Messages, cm)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := r.tmpl.Execute(w, data); err != nil {
		r.logger.Error("failed to render transcript", "conversation_id", conv.ID, "error", err)
	}
}

// markdown converts assistant markdown to HTML, falling back to escaped text.
func (r *Renderer) markdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		r.logger.Error("failed to convert markdown", "error", err)
		return template.HTML("<p>" + template.HTMLEscapeString(content) + "</p>")
	}
	return template.HTML(buf.String())
}

func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
