package session

import (
	"reelsmith/internal/intent"
)

// Affirmer reports whether a user message is an affirmative go-ahead
// ("yes", "ok", "go ahead") in the active language. The concrete matcher
// is pluggable so language coverage can change without touching phase
// logic.
type Affirmer func(text string) bool

// DeterminePhase computes the phase fresh from the session state. Rules
// are evaluated in order, first match wins:
//
//  1. most recent message tagged status=completed   -> delivery
//  2. any affirmative user message, purpose known,
//     aspect ratio and duration both known          -> execution
//  3. purpose and platform known                    -> refinement
//  4. otherwise                                     -> discovery
func DeterminePhase(c *ConversationContext, affirm Affirmer) Phase {
	if last := c.LastMessage(); last != nil {
		if status, ok := last.Metadata[MetaStatus].(string); ok && status == "completed" {
			return PhaseDelivery
		}
	}

	if affirm != nil && c.Intent.Purpose != intent.PurposeUnknown &&
		c.Specs.AspectRatio != "" && c.Specs.Duration != "" {
		for i := range c.Messages {
			m := &c.Messages[i]
			if m.Role == RoleUser && affirm(m.Content) {
				return PhaseExecution
			}
		}
	}

	if c.Intent.Purpose != intent.PurposeUnknown && c.Intent.Platform != intent.PlatformUnknown {
		return PhaseRefinement
	}

	return PhaseDiscovery
}

// MissingInfo lists the unresolved fields in priority order. Discovery
// asks one question per turn for the head of this list.
func MissingInfo(in intent.Intent, specs intent.InferredSpecs) []string {
	var missing []string
	if in.Purpose == intent.PurposeUnknown {
		missing = append(missing, "purpose")
	}
	if in.Platform == intent.PlatformUnknown {
		missing = append(missing, "platform")
	}
	if in.MediaType == intent.MediaUnknown {
		missing = append(missing, "mediaType")
	}
	if specs.AspectRatio == "" {
		missing = append(missing, "aspectRatio")
	}
	if in.MediaType == intent.MediaVideo && specs.Duration == "" {
		missing = append(missing, "duration")
	}
	return missing
}

// advance enforces forward-only phases: the stored phase never regresses
// except through the explicit reset path.
func advance(stored, computed Phase) Phase {
	if computed.Order() < stored.Order() {
		return stored
	}
	return computed
}
