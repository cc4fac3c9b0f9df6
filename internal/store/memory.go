// ABOUTME: In-memory Store implementation for conversations and messages
// ABOUTME: RWMutex-guarded map with copy-on-read; process memory is the only persistence

package store

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds all conversations in process memory. Reads may run
// concurrently; every mutation goes through the write lock. Message slices
// are copied on read so callers never observe a partially appended list.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	logger        *slog.Logger
}

// New creates an empty Store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		conversations: make(map[string]*Conversation),
		logger:        logger.With("component", "store"),
	}
}

// CreateConversation allocates a new empty conversation and returns its id.
// The title is optional; an empty title gets a positional placeholder and is
// replaced by the first user message.
func (s *Store) CreateConversation(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		title = fmt.Sprintf("Conversation %d", len(s.conversations)+1)
	}

	now := time.Now().UTC()
	conv := &Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Active:    true,
	}
	s.conversations[conv.ID] = conv

	s.logger.Debug("conversation created", "conversation_id", conv.ID, "title", title)
	return conv.ID
}

// AppendUserMessage appends a user message and returns its id. The first
// non-empty message sets the conversation title (truncated); the title is
// never reset afterwards.
func (s *Store) AppendUserMessage(conversationID, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return "", ErrNotFound
	}

	msg := newMessage(conversationID, RoleUser, text)
	if len(conv.Messages) == 0 && strings.TrimSpace(text) != "" {
		conv.Title = truncateTitle(text)
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.CreatedAt

	s.logger.Debug("user message appended",
		"conversation_id", conversationID,
		"message_id", msg.ID)
	return msg.ID, nil
}

// AppendAssistantMessage appends an assistant response produced by a worker.
// The role must be one of the assistant roles; chart and errPayload attach
// the role-specific metadata and are otherwise ignored.
func (s *Store) AppendAssistantMessage(conversationID, role, content string, chart *ChartPayload, errPayload *ErrorPayload) (string, error) {
	switch role {
	case RoleAssistantText, RoleAssistantChart, RoleAssistantError:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return "", ErrNotFound
	}

	msg := newMessage(conversationID, role, content)
	switch role {
	case RoleAssistantChart:
		msg.Chart = chart
	case RoleAssistantError:
		msg.Error = errPayload
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.CreatedAt

	s.logger.Debug("assistant message appended",
		"conversation_id", conversationID,
		"message_id", msg.ID,
		"role", role)
	return msg.ID, nil
}

// Get returns a copy of the conversation with all its messages.
func (s *Store) Get(conversationID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrNotFound
	}

	result := *conv
	result.Messages = make([]Message, len(conv.Messages))
	copy(result.Messages, conv.Messages)
	return &result, nil
}

// List returns summaries of all conversations, most recently updated first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		summaries = append(summaries, Summary{
			ID:           conv.ID,
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
			Active:       conv.Active,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries
}

// Delete removes a conversation. Deleting an absent id is a no-op.
func (s *Store) Delete(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; ok {
		delete(s.conversations, conversationID)
		s.logger.Debug("conversation deleted", "conversation_id", conversationID)
	}
}

// BuildContext renders the most recent maxMessages user/assistant messages
// as a prompt-context block for the query service, oldest first. Error
// messages are skipped; chart messages contribute their summary content.
// Returns an empty string for a conversation with no usable history.
func (s *Store) BuildContext(conversationID string, maxMessages int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return "", ErrNotFound
	}

	var lines []string
	for _, msg := range conv.Messages {
		switch msg.Role {
		case RoleUser:
			lines = append(lines, "User: "+msg.Content)
		case RoleAssistantText, RoleAssistantChart:
			lines = append(lines, "Assistant: "+clip(msg.Content, 200))
		}
	}
	if len(lines) > maxMessages {
		lines = lines[len(lines)-maxMessages:]
	}
	if len(lines) == 0 {
		return "", nil
	}

	return "Previous conversation context:\n" +
		strings.Join(lines, "\n") +
		"\n\nCurrent question: ", nil
}

func newMessage(conversationID, role, content string) Message {
	return Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
}

func truncateTitle(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= titleLimit {
		return string(runes)
	}
	return string(runes[:titleLimit]) + "..."
}

func clip(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
