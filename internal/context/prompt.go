package context

import (
	"fmt"
	"strings"

	"reelsmith/internal/session"
)

// PromptSegment is one block of the system prompt. Static segments
// rarely change and are safe for provider-side prompt caching; dynamic
// segments change every turn.
type PromptSegment struct {
	Content string
	Static  bool
}

// staticPersona is the cache-friendly block: persona plus the
// cost-transparency policy. Keep changes here rare; every edit
// invalidates the provider's prompt cache.
const staticPersona = `You are Reelsmith, a production assistant that turns conversations into concrete, priced plans for generating video, image, and audio content.

Principles:
- Ask at most one question per turn, and only for information you cannot infer.
- Always be transparent about cost before anything is generated. Never commit the user to spending without an explicit price.
- Prefer concrete proposals over open-ended questions once enough is known.
- Keep replies short and conversational.`

// phaseInstructions holds the per-phase addendum to the system prompt.
var phaseInstructions = map[session.Phase]string{
	session.PhaseDiscovery:  "Phase: discovery. Identify what the user wants to make. Ask exactly one targeted question for the highest-priority missing detail.",
	session.PhaseRefinement: "Phase: refinement. Propose a concrete plan: style, provider, duration, and price. Invite a yes/no on the proposal.",
	session.PhaseExecution:  "Phase: execution. The plan is approved. Acknowledge and describe what happens next; do not ask further questions.",
	session.PhaseDelivery:   "Phase: delivery. Present the results and invite iteration or refinements.",
}

// PromptBuilder assembles the system prompt as a static block plus a
// dynamic block. Callers may join the segments or submit them separately
// depending on whether the provider supports partial-prompt caching;
// the content is identical either way.
type PromptBuilder struct{}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder() *PromptBuilder { return &PromptBuilder{} }

// Build returns the static and dynamic segments for the current turn.
func (b *PromptBuilder) Build(c *session.ConversationContext) []PromptSegment {
	return []PromptSegment{
		{Content: staticPersona, Static: true},
		{Content: b.dynamicBlock(c)},
	}
}

// BuildJoined returns the full system prompt as a single string.
func (b *PromptBuilder) BuildJoined(c *session.ConversationContext) string {
	segments := b.Build(c)
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Content
	}
	return strings.Join(parts, "\n\n")
}

func (b *PromptBuilder) dynamicBlock(c *session.ConversationContext) string {
	var sb strings.Builder
	sb.WriteString(phaseInstructions[c.Phase])

	sb.WriteString("\n\nUser context:")
	fmt.Fprintf(&sb, "\n- intent: purpose=%s platform=%s mediaType=%s style=%s",
		c.Intent.Purpose, c.Intent.Platform, c.Intent.MediaType, c.Intent.Style)
	if c.Specs.AspectRatio != "" || c.Specs.Duration != "" {
		fmt.Fprintf(&sb, "\n- specs: aspectRatio=%s duration=%s resolution=%s quality=%s",
			c.Specs.AspectRatio, c.Specs.Duration, c.Specs.Resolution, c.Specs.QualityLevel)
	}
	if len(c.MissingInfo) > 0 {
		fmt.Fprintf(&sb, "\n- still unknown: %s", strings.Join(c.MissingInfo, ", "))
	}
	return sb.String()
}
