package orchestrator

import (
	"context"

	"reelsmith/internal/llm"
	"reelsmith/internal/logging"
	"reelsmith/internal/session"
)

// ConversationService is the resilience service name for the main
// conversational completion endpoint.
const ConversationService = "conversation"

const supportiveInstruction = `You are Reelsmith. The user needs encouragement, not a plan right now.
Respond warmly and briefly. Acknowledge how they feel, offer perspective, and gently leave the door open to continue when they are ready. Do not pitch providers, prices, or next steps.`

const directInstruction = `You are Reelsmith. The user asked a factual question.
Answer it directly and concisely. Do not ask discovery questions, do not propose a plan, and do not mention internal phases.`

// respond asks the completion provider for the next reply. Any failure
// degrades to the caller's fallback text so a provider outage never
// fails the turn.
func (o *Orchestrator) respond(ctx context.Context, system string, history []llm.Message, fallback string) string {
	var resp *llm.Response
	err := o.exec.Execute(ctx, ConversationService, func(ctx context.Context) error {
		var callErr error
		resp, callErr = o.client.Complete(ctx, llm.Request{
			System:      system,
			Messages:    history,
			Temperature: 0.7,
			MaxTokens:   400,
		})
		return callErr
	})
	if err != nil || resp == nil || resp.Text == "" {
		logging.Get(logging.CategorySession).Warnf("completion unavailable, using fallback reply: %v", err)
		return fallback
	}
	return resp.Text
}

// llmHistory converts stored messages into provider wire messages.
func llmHistory(messages []session.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for i := range messages {
		var role llm.Role
		switch messages[i].Role {
		case session.RoleUser:
			role = llm.RoleUser
		case session.RoleAssistant:
			role = llm.RoleAssistant
		default:
			role = llm.RoleSystem
		}
		out = append(out, llm.Message{Role: role, Content: messages[i].Content})
	}
	return out
}

// tailHistory returns the last n messages as provider wire messages.
func tailHistory(messages []session.Message, n int) []llm.Message {
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	return llmHistory(messages)
}
