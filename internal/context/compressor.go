package context

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"reelsmith/internal/llm"
	"reelsmith/internal/logging"
	"reelsmith/internal/resilience"
	"reelsmith/internal/session"
)

// SummaryService is the resilience service name for the summarization
// completion endpoint (a fast/cheap model).
const SummaryService = "summarization"

// SummaryPrefix marks the synthesized summary message so downstream
// consumers can recognize it.
const SummaryPrefix = "[Conversation summary] "

// CompressorConfig controls when and how history is compressed.
type CompressorConfig struct {
	MessageThreshold int `yaml:"message_threshold"` // Compress past this many messages
	KeepFirst        int `yaml:"keep_first"`
	KeepLast         int `yaml:"keep_last"`
}

// DefaultCompressorConfig returns the standard compression settings.
func DefaultCompressorConfig() CompressorConfig {
	return CompressorConfig{
		MessageThreshold: 20,
		KeepFirst:        2,
		KeepLast:         6,
	}
}

// CompressionResult reports what compression did, for observability and
// testing.
type CompressionResult struct {
	Messages        []session.Message
	OriginalCount   int
	CompressedCount int
	Applied         bool
}

// Compressor collapses older turns into a single synthesized summary
// message while keeping the first KeepFirst and last KeepLast messages
// verbatim.
type Compressor struct {
	client  llm.Client
	exec    *resilience.Executor
	tracker *Tracker
	config  CompressorConfig
}

// NewCompressor creates a compressor. The tracker supplies the
// token-based trigger.
func NewCompressor(client llm.Client, exec *resilience.Executor, tracker *Tracker, config CompressorConfig) *Compressor {
	def := DefaultCompressorConfig()
	if config.MessageThreshold == 0 {
		config.MessageThreshold = def.MessageThreshold
	}
	if config.KeepFirst == 0 {
		config.KeepFirst = def.KeepFirst
	}
	if config.KeepLast == 0 {
		config.KeepLast = def.KeepLast
	}
	return &Compressor{client: client, exec: exec, tracker: tracker, config: config}
}

// ShouldCompress reports whether the message count or token usage calls
// for compression.
func (c *Compressor) ShouldCompress(messages []session.Message, usage TokenUsage) bool {
	if len(messages) > c.config.MessageThreshold {
		return true
	}
	return usage.PercentUsed >= c.tracker.Config().CompressThreshold
}

// Compress collapses the compressible middle range into one summary
// message. If the range is empty the input is returned unchanged with
// Applied=false, even when a trigger fired. Summarization failures
// degrade to a heuristic summary rather than failing the turn.
func (c *Compressor) Compress(ctx context.Context, messages []session.Message) *CompressionResult {
	result := &CompressionResult{
		Messages:        messages,
		OriginalCount:   len(messages),
		CompressedCount: len(messages),
	}

	first, last := c.config.KeepFirst, c.config.KeepLast
	if len(messages) <= first+last {
		return result
	}

	head := messages[:first]
	middle := messages[first : len(messages)-last]
	tail := messages[len(messages)-last:]
	if len(middle) == 0 {
		return result
	}

	summary := c.summarize(ctx, middle)

	compressed := make([]session.Message, 0, first+1+last)
	compressed = append(compressed, head...)
	compressed = append(compressed, session.Message{
		Role:    session.RoleAssistant,
		Content: SummaryPrefix + summary,
		Metadata: map[string]interface{}{
			session.MetaSummary: true,
		},
		CreatedAt: time.Now(),
	})
	compressed = append(compressed, tail...)

	result.Messages = compressed
	result.CompressedCount = len(compressed)
	result.Applied = true

	logging.ContextDebug("compressed history: %d -> %d messages (%d summarized)",
		result.OriginalCount, result.CompressedCount, len(middle))
	return result
}

// summarize produces the summary text for the compressible range via the
// fast completion endpoint, falling back to a heuristic digest on any
// failure.
func (c *Compressor) summarize(ctx context.Context, middle []session.Message) string {
	var sb strings.Builder
	sb.WriteString("Summarize this conversation segment in under 120 words. ")
	sb.WriteString("Preserve: what the user wants to create, decisions made, and any constraints or preferences stated.\n\n")
	for i := range middle {
		sb.WriteString(string(middle[i].Role))
		sb.WriteString(": ")
		sb.WriteString(middle[i].Content)
		sb.WriteString("\n")
	}

	var resp *llm.Response
	err := c.exec.Execute(ctx, SummaryService, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.client.Complete(ctx, llm.Request{
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: sb.String()}},
			Temperature: 0.2,
			MaxTokens:   300,
		})
		return callErr
	})
	if err != nil {
		logging.Get(logging.CategoryContext).Warnf("summarization failed, using heuristic summary: %v", err)
		return heuristicSummary(middle)
	}
	return strings.TrimSpace(resp.Text)
}

// heuristicSummary digests a message range without the model: first user
// ask plus a turn count.
func heuristicSummary(middle []session.Message) string {
	var firstUser string
	for i := range middle {
		if middle[i].Role == session.RoleUser {
			firstUser = middle[i].Content
			break
		}
	}
	if len(firstUser) > 160 {
		cut := 160
		for cut > 0 && !utf8.RuneStart(firstUser[cut]) {
			cut--
		}
		firstUser = firstUser[:cut] + "..."
	}
	return fmt.Sprintf("Earlier exchange (%d turns). It began with the user asking: %q", len(middle), firstUser)
}
