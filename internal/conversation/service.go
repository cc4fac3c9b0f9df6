// ABOUTME: Conversation service coordinating store, queue, and external adapters
// ABOUTME: Ask records the user message and enqueues work; Process runs the pipeline

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/querydeck/internal/adapter"
	"github.com/2389/querydeck/internal/queue"
	"github.com/2389/querydeck/internal/store"
)

// ErrEmptyMessage is returned by Ask for blank message content.
var ErrEmptyMessage = errors.New("message content is empty")

// DefaultContextWindow is how many prior messages enrich a question.
const DefaultContextWindow = 10

// resultSampleLimit caps how many rows travel in results and chart messages.
const resultSampleLimit = 50

// Submitter is the slice of the queue the service needs.
type Submitter interface {
	Submit(conversationID, input string) (string, error)
}

// Result is the payload attached to a completed task and returned to
// polling clients.
type Result struct {
	Summary     string          `json:"summary_text"`
	ChartType   string          `json:"chart_type"`
	ChartConfig json.RawMessage `json:"chart_config,omitempty"`
	Reasoning   string          `json:"reasoning,omitempty"`
	SQLText     string          `json:"sql_text,omitempty"`
	Columns     []string        `json:"columns"`
	Rows        [][]any         `json:"rows"`
	RowCount    int             `json:"row_count"`
	Mock        bool            `json:"mock,omitempty"`
}

// Service owns the conversation flow. Ask runs on the request path and must
// stay fast; Process runs on queue workers and does the slow external calls.
type Service struct {
	store         *store.Store
	submitter     Submitter
	query         adapter.QueryClient
	insight       adapter.InsightClient
	contextWindow int
	logger        *slog.Logger
}

// NewService wires the conversation flow together. The submitter is set
// separately because the queue needs the service as its processor first.
func NewService(st *store.Store, query adapter.QueryClient, insight adapter.InsightClient, contextWindow int, logger *slog.Logger) *Service {
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:         st,
		query:         query,
		insight:       insight,
		contextWindow: contextWindow,
		logger:        logger.With("component", "conversation"),
	}
}

// SetSubmitter attaches the queue after construction.
func (s *Service) SetSubmitter(sub Submitter) {
	s.submitter = sub
}

// Ask records the user's message and enqueues a task for it. The message is
// recorded before submission, so a full queue leaves the question in the
// transcript and the caller may resubmit. The enrichment context is built
// from the history before this message.
func (s *Service) Ask(ctx context.Context, conversationID, text string) (taskID, messageID string, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", ErrEmptyMessage
	}

	prefix, err := s.store.BuildContext(conversationID, s.contextWindow)
	if err != nil {
		return "", "", err
	}

	messageID, err = s.store.AppendUserMessage(conversationID, text)
	if err != nil {
		return "", "", err
	}

	input := text
	if prefix != "" {
		input = prefix + text
	}

	taskID, err = s.submitter.Submit(conversationID, input)
	if err != nil {
		s.logger.Warn("submission rejected",
			"conversation_id", conversationID,
			"error", err)
		return "", messageID, err
	}

	s.logger.Info("message accepted",
		"conversation_id", conversationID,
		"task_id", taskID,
		"message_id", messageID)
	return taskID, messageID, nil
}

// Process runs one task end to end: query the data service, summarize the
// result, and record the assistant's reply. Implements queue.Processor.
// A panic anywhere in the pipeline is converted to a failure so the
// transcript still gets its assistant_error message.
func (s *Service) Process(ctx context.Context, task *queue.Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("internal error: %v", r)
			s.recordFailure(task.ConversationID, err)
		}
	}()

	qres, err := s.query.Query(ctx, task.Input)
	if err != nil {
		s.recordFailure(task.ConversationID, err)
		return nil, fmt.Errorf("query: %w", err)
	}

	rec, err := s.insight.Recommend(ctx, &adapter.InsightRequest{
		Question: task.Input,
		SQLText:  qres.SQLText,
		Columns:  qres.Columns,
		Rows:     qres.Rows,
	})
	if err != nil {
		s.recordFailure(task.ConversationID, err)
		return nil, fmt.Errorf("insight: %w", err)
	}

	rows := sampleRows(qres.Rows, resultSampleLimit)

	if rec.ChartType == "" || rec.ChartType == "none" {
		if _, aerr := s.store.AppendAssistantMessage(task.ConversationID, store.RoleAssistantText, rec.Summary, nil, nil); aerr != nil {
			s.logger.Warn("cannot record assistant reply",
				"conversation_id", task.ConversationID,
				"error", aerr)
		}
	} else {
		chart := &store.ChartPayload{
			ChartType:   rec.ChartType,
			ChartConfig: rec.ChartConfig,
			Reasoning:   rec.Reasoning,
			SQLText:     qres.SQLText,
			Columns:     qres.Columns,
			Rows:        rows,
			RowCount:    qres.RowCount,
			Mock:        qres.Mock,
		}
		if _, aerr := s.store.AppendAssistantMessage(task.ConversationID, store.RoleAssistantChart, rec.Summary, chart, nil); aerr != nil {
			s.logger.Warn("cannot record assistant reply",
				"conversation_id", task.ConversationID,
				"error", aerr)
		}
	}

	return &Result{
		Summary:     rec.Summary,
		ChartType:   rec.ChartType,
		ChartConfig: rec.ChartConfig,
		Reasoning:   rec.Reasoning,
		SQLText:     qres.SQLText,
		Columns:     qres.Columns,
		Rows:        rows,
		RowCount:    qres.RowCount,
		Mock:        qres.Mock,
	}, nil
}

// recordFailure appends an assistant_error message so the transcript shows
// what went wrong even after the task status is evicted.
func (s *Service) recordFailure(conversationID string, cause error) {
	content := humanCause(cause)
	if _, err := s.store.AppendAssistantMessage(conversationID, store.RoleAssistantError, content, nil, &store.ErrorPayload{Detail: cause.Error()}); err != nil {
		s.logger.Warn("cannot record failure message",
			"conversation_id", conversationID,
			"error", err)
	}
}

// humanCause maps adapter errors to transcript-friendly text.
func humanCause(err error) string {
	switch {
	case errors.Is(err, adapter.ErrRateLimited):
		return "The data service is handling too many requests right now. Please try again in a moment."
	case errors.Is(err, adapter.ErrAuthFailed):
		return "Could not authenticate with the data service. Check the service credentials."
	case errors.Is(err, adapter.ErrUnavailable):
		return "The data service is temporarily unavailable. Please try again later."
	case errors.Is(err, adapter.ErrNoSpace):
		return "No query workspace is available for this question."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled before it could finish."
	default:
		return "Something went wrong while answering this question."
	}
}

func sampleRows(rows [][]any, limit int) [][]any {
	if len(rows) <= limit {
		return rows
	}
	return rows[:limit]
}

// CreateConversation starts a new conversation, optionally titled.
func (s *Service) CreateConversation(title string) string {
	return s.store.CreateConversation(title)
}

// GetConversation returns a conversation with its full transcript.
func (s *Service) GetConversation(conversationID string) (*store.Conversation, error) {
	return s.store.Get(conversationID)
}

// ListConversations returns summaries, most recently updated first.
func (s *Service) ListConversations() []store.Summary {
	return s.store.List()
}

// DeleteConversation removes a conversation. Idempotent.
func (s *Service) DeleteConversation(conversationID string) {
	s.store.Delete(conversationID)
}
