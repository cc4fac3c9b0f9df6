// ABOUTME: Tests for the in-memory conversation store
// ABOUTME: Covers CRUD, title derivation, ordering, and context building

package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndGet(t *testing.T) {
	s := New(nil)

	id := s.CreateConversation("")
	require.NotEmpty(t, id)

	conv, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, conv.ID)
	assert.True(t, conv.Active)
	assert.Empty(t, conv.Messages)
	assert.Equal(t, "Conversation 1", conv.Title)
}

func TestStore_Get_NotFound(t *testing.T) {
	s := New(nil)

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AppendUserMessage_SetsTitleOnce(t *testing.T) {
	s := New(nil)
	id := s.CreateConversation("")

	_, err := s.AppendUserMessage(id, "What are total sales by region?")
	require.NoError(t, err)

	conv, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "What are total sales by region?", conv.Title)

	// A second message must not reset the title.
	_, err = s.AppendUserMessage(id, "And by product?")
	require.NoError(t, err)

	conv, err = s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "What are total sales by region?", conv.Title)
}

func TestStore_AppendUserMessage_TruncatesLongTitle(t *testing.T) {
	s := New(nil)
	id := s.CreateConversation("")

	long := strings.Repeat("sales ", 20)
	_, err := s.AppendUserMessage(id, long)
	require.NoError(t, err)

	conv, err := s.Get(id)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(conv.Title, "..."))
	assert.LessOrEqual(t, len([]rune(conv.Title)), titleLimit+3)
}

func TestStore_AppendUserMessage_NotFound(t *testing.T) {
	s := New(nil)

	_, err := s.AppendUserMessage("missing", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AppendAssistantMessage_RejectsUserRole(t *testing.T) {
	s := New(nil)
	id := s.CreateConversation("")

	_, err := s.AppendAssistantMessage(id, RoleUser, "hi", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestStore_MessagesKeepInsertionOrder(t *testing.T) {
	s := New(nil)
	id := s.CreateConversation("")

	_, err := s.AppendUserMessage(id, "question one")
	require.NoError(t, err)
	_, err = s.AppendAssistantMessage(id, RoleAssistantChart, "answer one",
		&ChartPayload{ChartType: "bar", RowCount: 3}, nil)
	require.NoError(t, err)
	_, err = s.AppendUserMessage(id, "question two")
	require.NoError(t, err)

	conv, err := s.Get(id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, RoleUser, conv.Messages[0].Role)
	assert.Equal(t, RoleAssistantChart, conv.Messages[1].Role)
	assert.Equal(t, RoleUser, conv.Messages[2].Role)

	require.NotNil(t, conv.Messages[1].Chart)
	assert.Equal(t, "bar", conv.Messages[1].Chart.ChartType)
	assert.Nil(t, conv.Messages[0].Chart)
}

func TestStore_List_MostRecentFirst(t *testing.T) {
	s := New(nil)

	first := s.CreateConversation("first")
	second := s.CreateConversation("second")

	// Touch the first conversation so it becomes the most recently updated.
	time.Sleep(5 * time.Millisecond)
	_, err := s.AppendUserMessage(first, "bump")
	require.NoError(t, err)

	summaries := s.List()
	require.Len(t, summaries, 2)
	assert.Equal(t, first, summaries[0].ID)
	assert.Equal(t, second, summaries[1].ID)
	assert.Equal(t, 1, summaries[0].MessageCount)
}

func TestStore_Delete_Idempotent(t *testing.T) {
	s := New(nil)
	id := s.CreateConversation("")

	s.Delete(id)
	s.Delete(id) // no-op
	s.Delete("never-existed")

	_, err := s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_BuildContext(t *testing.T) {
	s := New(nil)
	id := s.CreateConversation("")

	_, err := s.AppendUserMessage(id, "total sales by region?")
	require.NoError(t, err)
	_, err = s.AppendAssistantMessage(id, RoleAssistantChart,
		"West leads with 120k.", &ChartPayload{ChartType: "bar"}, nil)
	require.NoError(t, err)
	_, err = s.AppendAssistantMessage(id, RoleAssistantError,
		"query service unavailable", &ChartPayload{}, &ErrorPayload{Detail: "503"})
	require.NoError(t, err)

	ctx, err := s.BuildContext(id, 10)
	require.NoError(t, err)

	assert.Contains(t, ctx, "Previous conversation context:")
	assert.Contains(t, ctx, "User: total sales by region?")
	assert.Contains(t, ctx, "Assistant: West leads with 120k.")
	assert.NotContains(t, ctx, "unavailable", "error messages must be skipped")
	assert.True(t, strings.HasSuffix(ctx, "Current question: "))
}

func TestStore_BuildContext_WindowLimit(t *testing.T) {
	s := New(nil)
	id := s.CreateConversation("")

	for i := 0; i < 6; i++ {
		_, err := s.AppendUserMessage(id, "question")
		require.NoError(t, err)
	}

	ctx, err := s.BuildContext(id, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(ctx, "User: question"))
}

func TestStore_BuildContext_EmptyConversation(t *testing.T) {
	s := New(nil)
	id := s.CreateConversation("")

	ctx, err := s.BuildContext(id, 5)
	require.NoError(t, err)
	assert.Empty(t, ctx)

	_, err = s.BuildContext("missing", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}
