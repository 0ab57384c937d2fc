// Package llm defines the completion-provider boundary. The orchestration
// core treats the provider as an opaque request/response service: a system
// instruction plus ordered role-tagged messages in, text plus token-usage
// counters out. All callers are expected to wrap calls through the
// resilience layer.
package llm

import "context"

// Role tags a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged message in a completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call.
//
// System may be supplied as one combined block or split into a static
// (cache-friendly) segment and a dynamic segment; providers that support
// partial-prompt caching receive them as separate system messages,
// otherwise they are concatenated. Functionally the content is identical
// either way.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Usage reports the token counters returned by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the result of a completion call.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Client is the interface implemented by completion providers.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
