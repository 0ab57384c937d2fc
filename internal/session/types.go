// Package session owns the durable conversation record: ordered messages,
// the running intent and inferred specs, the lifecycle phase, and the
// missing-information list that drives discovery questions.
package session

import (
	"time"

	"reelsmith/internal/intent"
)

// Phase is the discrete stage of a conversation's task lifecycle.
// Phases only advance forward; the two side-channel conversation modes
// never touch them.
type Phase string

const (
	PhaseDiscovery  Phase = "discovery"
	PhaseRefinement Phase = "refinement"
	PhaseExecution  Phase = "execution"
	PhaseDelivery   Phase = "delivery"
)

// Order gives the forward progression index of a phase.
func (p Phase) Order() int {
	switch p {
	case PhaseDiscovery:
		return 0
	case PhaseRefinement:
		return 1
	case PhaseExecution:
		return 2
	case PhaseDelivery:
		return 3
	default:
		return 0
	}
}

// Role tags who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Well-known message metadata keys.
const (
	MetaStatus     = "status"     // execution status tag ("completed", ...)
	MetaMode       = "mode"       // side-channel mode that produced the message
	MetaToolPlan   = "toolPlan"   // serialized tool plan from refinement
	MetaCost       = "proposedCost"
	MetaSummary    = "summary"    // marks a compression summary message
	MetaResultURLs = "resultUrls" // delivery result URLs
	MetaError      = "error"      // serialized error from the recovery path
)

// Message is one turn in the conversation. Immutable once appended.
type Message struct {
	ID        string                 `json:"id"`
	Role      Role                   `json:"role"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Status is the session lifecycle marker. Terminal statuses do not delete
// history.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// ConversationContext is the full durable record of one session.
// Messages is append-only within a session.
type ConversationContext struct {
	SessionID   string                 `json:"sessionId"`
	UserID      string                 `json:"userId"`
	ProjectID   string                 `json:"projectId,omitempty"`
	Messages    []Message              `json:"messages"`
	Intent      intent.Intent          `json:"detectedIntent"`
	Specs       intent.InferredSpecs   `json:"inferredSpecs"`
	Phase       Phase                  `json:"phase"`
	MissingInfo []string               `json:"missingInfo"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Status      Status                 `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// LastMessage returns the most recent message, or nil when empty.
func (c *ConversationContext) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// LastUserMessage returns the most recent user message, or nil.
func (c *ConversationContext) LastUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return &c.Messages[i]
		}
	}
	return nil
}

// Update describes one turn's mutation of a session. The store appends
// the message if present, merges the patches, recomputes phase and
// missing info, and persists.
type Update struct {
	Message    *Message
	Intent     *intent.Intent       // replaces the running intent (already merged)
	Specs      *intent.InferredSpecs
	Metadata   map[string]interface{} // shallow-merged into session metadata
	ResetPhase bool                   // top-level error recovery only: force discovery
}
