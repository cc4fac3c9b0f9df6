// ABOUTME: HTTP handlers and JSON request/response types for the querydeck API
// ABOUTME: Maps service errors onto status codes: 404 unknown, 429 full, 400 bad input

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2389/querydeck/internal/conversation"
	"github.com/2389/querydeck/internal/queue"
	"github.com/2389/querydeck/internal/status"
	"github.com/2389/querydeck/internal/store"
)

// CreateConversationRequest is the JSON body for POST /api/conversations.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// CreateConversationResponse is the JSON response for POST /api/conversations.
type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

// PostMessageRequest is the JSON body for POST /api/conversations/{id}/messages.
type PostMessageRequest struct {
	Content string `json:"content"`
}

// PostMessageResponse acknowledges an accepted message. The task id is the
// handle for polling; the reply arrives asynchronously.
type PostMessageResponse struct {
	TaskID         string `json:"task_id"`
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

// QueueStatusResponse is the JSON response for GET /api/queue/status.
type QueueStatusResponse struct {
	Outstanding int  `json:"outstanding"`
	Capacity    int  `json:"capacity"`
	Workers     int  `json:"workers"`
	Running     bool `json:"running"`
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCreateConversation handles POST /api/conversations. The body is
// optional; an omitted title is filled from the first question.
func (g *Gateway) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	id := g.service.CreateConversation(req.Title)
	g.sendJSON(w, http.StatusCreated, CreateConversationResponse{ConversationID: id})
}

// handleListConversations handles GET /api/conversations.
func (g *Gateway) handleListConversations(w http.ResponseWriter, r *http.Request) {
	g.sendJSON(w, http.StatusOK, g.service.ListConversations())
}

// handleGetConversation handles GET /api/conversations/{id}, returning the
// conversation with its full transcript.
func (g *Gateway) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := g.service.GetConversation(r.PathValue("id"))
	if err != nil {
		g.sendServiceError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, conv)
}

// handleDeleteConversation handles DELETE /api/conversations/{id}. Deleting
// an unknown conversation is a no-op.
func (g *Gateway) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	g.service.DeleteConversation(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handlePostMessage handles POST /api/conversations/{id}/messages. On
// success it returns 202 Accepted: the message is recorded and a task is
// queued, but the answer is not ready yet.
func (g *Gateway) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	conversationID := r.PathValue("id")
	taskID, messageID, err := g.service.Ask(r.Context(), conversationID, req.Content)
	if err != nil {
		g.sendServiceError(w, err)
		return
	}

	g.sendJSON(w, http.StatusAccepted, PostMessageResponse{
		TaskID:         taskID,
		MessageID:      messageID,
		ConversationID: conversationID,
	})
}

// handleTaskStatus handles GET /api/tasks/{id}. The response carries result
// only for completed tasks and error only for failed ones.
func (g *Gateway) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	st, err := g.tracker.Get(r.PathValue("id"))
	if err != nil {
		g.sendServiceError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, st)
}

// handleQueueStatus handles GET /api/queue/status.
func (g *Gateway) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	outstanding, capacity := g.queue.Depth()
	g.sendJSON(w, http.StatusOK, QueueStatusResponse{
		Outstanding: outstanding,
		Capacity:    capacity,
		Workers:     g.queue.Workers(),
		Running:     g.queue.Running(),
	})
}

// handleExamples handles GET /api/examples. Supports optional ?category=
// and ?limit= query parameters.
func (g *Gateway) handleExamples(w http.ResponseWriter, r *http.Request) {
	questions := filterExamples(r.URL.Query().Get("category"), r.URL.Query().Get("limit"))
	g.sendJSON(w, http.StatusOK, questions)
}

// handleChatPage handles GET /chat/{id}, the server-rendered transcript.
func (g *Gateway) handleChatPage(w http.ResponseWriter, r *http.Request) {
	conv, err := g.service.GetConversation(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	g.chat.RenderConversation(w, conv)
}

// sendJSON writes a JSON response with the given status code.
func (g *Gateway) sendJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// sendServiceError maps domain errors onto HTTP status codes.
func (g *Gateway) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, status.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, queue.ErrQueueFull):
		g.sendJSONError(w, http.StatusTooManyRequests, "queue is full, retry shortly")
	case errors.Is(err, queue.ErrNotRunning):
		g.sendJSONError(w, http.StatusServiceUnavailable, "not accepting new messages")
	case errors.Is(err, conversation.ErrEmptyMessage):
		g.sendJSONError(w, http.StatusBadRequest, "content is required")
	default:
		g.logger.Error("request failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
