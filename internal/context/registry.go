package context

import "sync"

// Registry holds the per-session token-usage snapshots. It is owned by
// the orchestrator instance rather than kept as package state, so tests
// reset deterministically and orchestrator instances do not share hidden
// state. Contents live for the process lifetime only: usage accounting
// is advisory and restarts empty.
type Registry struct {
	mu    sync.RWMutex
	usage map[string]TokenUsage
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{usage: make(map[string]TokenUsage)}
}

// Set records the usage snapshot for a session.
func (r *Registry) Set(sessionID string, u TokenUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage[sessionID] = u
}

// Get returns the last snapshot for a session.
func (r *Registry) Get(sessionID string) (TokenUsage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.usage[sessionID]
	return u, ok
}

// Delete drops a session's snapshot, e.g. when a session terminates.
func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.usage, sessionID)
}

// Reset clears all snapshots.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage = make(map[string]TokenUsage)
}
