// Package server exposes the conversation loop over HTTP. One endpoint
// drives turns; the rest inspect and manage sessions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	convctx "reelsmith/internal/context"
	"reelsmith/internal/logging"
	"reelsmith/internal/orchestrator"
	"reelsmith/internal/session"
)

// Server is the HTTP front end over the orchestrator.
type Server struct {
	orch  *orchestrator.Orchestrator
	store session.Store
	usage *convctx.Registry
}

// New creates a server.
func New(orch *orchestrator.Orchestrator, store session.Store, usage *convctx.Registry) *Server {
	return &Server{orch: orch, store: store, usage: usage}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Post("/chat", s.handleChat)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Get("/history", s.handleHistory)
		r.Get("/usage", s.handleUsage)
		r.Post("/abandon", s.handleAbandon)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat runs one turn. The orchestrator recovers conversational
// failures itself, so errors here mean the session layer is broken.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	resp, err := s.orch.HandleTurn(r.Context(), req)
	if err != nil {
		logging.Get(logging.CategoryServer).Errorw("turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// sessionSummary is the inspection view of a session, without the
// message bodies.
type sessionSummary struct {
	SessionID   string                 `json:"sessionId"`
	UserID      string                 `json:"userId"`
	ProjectID   string                 `json:"projectId,omitempty"`
	Phase       session.Phase          `json:"phase"`
	Status      session.Status         `json:"status"`
	MessageCount int                   `json:"messageCount"`
	MissingInfo []string               `json:"missingInfo"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionSummary{
		SessionID:    c.SessionID,
		UserID:       c.UserID,
		ProjectID:    c.ProjectID,
		Phase:        c.Phase,
		Status:       c.Status,
		MessageCount: len(c.Messages),
		MissingInfo:  c.MissingInfo,
		Metadata:     c.Metadata,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": c.SessionID,
		"messages":  c.Messages,
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	usage, ok := s.usage.Get(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "no usage recorded for session")
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	err := s.store.Abandon(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.usage.Delete(sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(session.StatusAbandoned)})
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*session.ConversationContext, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	c, err := s.store.Load(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return c, true
}

// Serve runs the HTTP server until ctx is cancelled, then drains within
// the shutdown window.
func (s *Server) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Get(logging.CategoryServer).Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryServer).Warnf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
