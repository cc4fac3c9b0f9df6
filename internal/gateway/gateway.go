// ABOUTME: HTTP boundary for querydeck: routing, server lifecycle, graceful shutdown
// ABOUTME: Handlers live in api.go; the transcript page is served by internal/webchat

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/querydeck/internal/config"
	"github.com/2389/querydeck/internal/conversation"
	"github.com/2389/querydeck/internal/queue"
	"github.com/2389/querydeck/internal/status"
	"github.com/2389/querydeck/internal/webchat"
)

// shutdownGrace bounds how long Run waits for in-flight requests and queued
// tasks after the context is cancelled.
const shutdownGrace = 15 * time.Second

// Gateway owns the HTTP server and routes requests into the conversation
// service, the queue, and the status tracker.
type Gateway struct {
	config     *config.Config
	service    *conversation.Service
	queue      *queue.Queue
	tracker    *status.Tracker
	chat       *webchat.Renderer
	logger     *slog.Logger
	httpServer *http.Server
}

// New assembles the gateway and its routes.
func New(cfg *config.Config, svc *conversation.Service, q *queue.Queue, tracker *status.Tracker, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		config:  cfg,
		service: svc,
		queue:   q,
		tracker: tracker,
		chat:    webchat.NewRenderer(logger),
		logger:  logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	g.registerRoutes(mux)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g
}

func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	// Health endpoint - useful for probes, no body parsing
	mux.HandleFunc("GET /api/health", g.handleHealth)

	// Conversation CRUD
	mux.HandleFunc("POST /api/conversations", g.handleCreateConversation)
	mux.HandleFunc("GET /api/conversations", g.handleListConversations)
	mux.HandleFunc("GET /api/conversations/{id}", g.handleGetConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", g.handleDeleteConversation)

	// Message submission and task polling
	mux.HandleFunc("POST /api/conversations/{id}/messages", g.handlePostMessage)
	mux.HandleFunc("GET /api/tasks/{id}", g.handleTaskStatus)
	mux.HandleFunc("GET /api/queue/status", g.handleQueueStatus)

	// Curated starter questions for the UI
	mux.HandleFunc("GET /api/examples", g.handleExamples)

	// Server-rendered transcript page
	mux.HandleFunc("GET /chat/{id}", g.handleChatPage)
}

// Handler exposes the routed handler, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts it down gracefully. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("http server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	g.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return g.httpServer.Shutdown(shutdownCtx)
}
