package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/intent"
	"reelsmith/internal/logging"
)

// ErrNotFound is returned when a session id is unknown. Callers must
// create a new session rather than crash.
var ErrNotFound = errors.New("session not found")

// Store is the session persistence boundary. Implementations must
// serialize access per session id: turn processing is logically
// single-threaded per session.
type Store interface {
	Create(ctx context.Context, userID, projectID string) (*ConversationContext, error)
	Load(ctx context.Context, sessionID string) (*ConversationContext, error)
	Update(ctx context.Context, sessionID string, up Update) (*ConversationContext, error)
	Complete(ctx context.Context, sessionID string) error
	Abandon(ctx context.Context, sessionID string) error
}

// sessionLocks hands out one mutex per session id so concurrent turns on
// the same session serialize while distinct sessions proceed in parallel.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

func (s *sessionLocks) get(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// MemoryStore is an in-memory Store used by tests and the interactive
// CLI. Semantics match the SQLite store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*ConversationContext
	locks    *sessionLocks
	affirm   Affirmer
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(affirm Affirmer) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*ConversationContext),
		locks:    newSessionLocks(),
		affirm:   affirm,
		now:      time.Now,
	}
}

// Create initializes a new session in discovery with empty intent/specs.
func (s *MemoryStore) Create(ctx context.Context, userID, projectID string) (*ConversationContext, error) {
	now := s.now()
	c := &ConversationContext{
		SessionID: uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		Intent:    intent.Default(),
		Phase:     PhaseDiscovery,
		Status:    StatusActive,
		Metadata:  make(map[string]interface{}),
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.MissingInfo = MissingInfo(c.Intent, c.Specs)

	s.mu.Lock()
	s.sessions[c.SessionID] = c
	s.mu.Unlock()

	logging.SessionDebug("created session %s for user %s", c.SessionID, userID)
	return cloneContext(c), nil
}

// Load returns a copy of the session, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*ConversationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneContext(c), nil
}

// Update applies one turn's mutation under the per-session lock and
// returns the fresh context.
func (s *MemoryStore) Update(ctx context.Context, sessionID string, up Update) (*ConversationContext, error) {
	lock := s.locks.get(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	applyUpdate(c, up, s.affirm, s.now())
	logging.SessionDebug("updated session %s: phase=%s messages=%d missing=%v",
		c.SessionID, c.Phase, len(c.Messages), c.MissingInfo)
	return cloneContext(c), nil
}

// Complete marks the session completed. History is retained.
func (s *MemoryStore) Complete(ctx context.Context, sessionID string) error {
	return s.setStatus(sessionID, StatusCompleted)
}

// Abandon marks the session abandoned. History is retained.
func (s *MemoryStore) Abandon(ctx context.Context, sessionID string) error {
	return s.setStatus(sessionID, StatusAbandoned)
}

func (s *MemoryStore) setStatus(sessionID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = s.now()
	return nil
}

// applyUpdate is the shared mutation logic for all Store implementations:
// append the message, replace patched fields, recompute phase (fresh, not
// cached) and the missing-info list.
func applyUpdate(c *ConversationContext, up Update, affirm Affirmer, now time.Time) {
	if up.Message != nil {
		m := *up.Message
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		c.Messages = append(c.Messages, m)
	}
	if up.Intent != nil {
		c.Intent = *up.Intent
	}
	if up.Specs != nil {
		c.Specs = *up.Specs
	}
	for k, v := range up.Metadata {
		if c.Metadata == nil {
			c.Metadata = make(map[string]interface{})
		}
		c.Metadata[k] = v
	}

	if up.ResetPhase {
		c.Phase = PhaseDiscovery
	} else {
		c.Phase = advance(c.Phase, DeterminePhase(c, affirm))
	}
	c.MissingInfo = MissingInfo(c.Intent, c.Specs)
	c.UpdatedAt = now
}

// cloneContext deep-copies a context so callers cannot mutate stored
// state behind the lock.
func cloneContext(c *ConversationContext) *ConversationContext {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	out.MissingInfo = append([]string(nil), c.MissingInfo...)
	out.Metadata = make(map[string]interface{}, len(c.Metadata))
	for k, v := range c.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
