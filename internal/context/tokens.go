// Package context manages the token budget of the model context window
// and compresses conversation history when thresholds are crossed. The
// durable session record is untouched by compression; only the working
// message list sent to the completion provider shrinks.
package context

import (
	"math"
	"unicode/utf8"

	"reelsmith/internal/logging"
	"reelsmith/internal/session"
)

// charsPerToken is the fixed average-characters-per-token calibration.
// No external tokenizer dependency: the estimate is advisory, not a
// ledger.
const charsPerToken = 3.5

// EstimateTokens estimates the token cost of a text.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(utf8.RuneCountInString(s)) / charsPerToken))
}

// UsageStatus classifies how full the context window is.
type UsageStatus string

const (
	StatusOK       UsageStatus = "ok"
	StatusWarning  UsageStatus = "warning"
	StatusCritical UsageStatus = "critical"
	StatusExceeded UsageStatus = "exceeded"
)

// TokenUsage is a per-session snapshot of context-window consumption.
// It lives in process memory only and is recomputed every turn.
type TokenUsage struct {
	SystemPrompt int         `json:"systemPrompt"`
	History      int         `json:"history"`
	Extra        int         `json:"extra"`
	Total        int         `json:"total"`
	PercentUsed  float64     `json:"percentUsed"`
	Remaining    int         `json:"remaining"`
	Status       UsageStatus `json:"status"`
}

// BudgetCheck is the decision surface for adding one more message.
type BudgetCheck struct {
	ShouldCompress bool
	ShouldAlert    bool
	CanAddMessage  bool
	Projected      TokenUsage
}

// TrackerConfig holds the budget thresholds.
type TrackerConfig struct {
	MaxContextTokens     int     `yaml:"max_context_tokens"`
	ReservedOutputTokens int     `yaml:"reserved_output_tokens"`
	WarningThreshold     float64 `yaml:"warning_threshold"`
	CriticalThreshold    float64 `yaml:"critical_threshold"`
	CompressThreshold    float64 `yaml:"compress_threshold"`
	CompressionTarget    float64 `yaml:"compression_target"`  // Target usage after compression
	KeepFirst            int     `yaml:"keep_first"`          // Context-setting messages, never compressed
	KeepLast             int     `yaml:"keep_last"`           // Active exchange, never compressed
	SummaryReduction     float64 `yaml:"summary_reduction"`   // Assumed reduction from summarization
}

// DefaultTrackerConfig returns the standard budget thresholds.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxContextTokens:     200000,
		ReservedOutputTokens: 4000,
		WarningThreshold:     0.80,
		CriticalThreshold:    0.95,
		CompressThreshold:    0.85,
		CompressionTarget:    0.60,
		KeepFirst:            2,
		KeepLast:             6,
		SummaryReduction:     0.90,
	}
}

// Tracker estimates and classifies token usage against the configured
// budget.
type Tracker struct {
	config TrackerConfig
}

// NewTracker creates a tracker with the given config, filling zero fields
// from the defaults.
func NewTracker(config TrackerConfig) *Tracker {
	def := DefaultTrackerConfig()
	if config.MaxContextTokens == 0 {
		config.MaxContextTokens = def.MaxContextTokens
	}
	if config.ReservedOutputTokens == 0 {
		config.ReservedOutputTokens = def.ReservedOutputTokens
	}
	if config.WarningThreshold == 0 {
		config.WarningThreshold = def.WarningThreshold
	}
	if config.CriticalThreshold == 0 {
		config.CriticalThreshold = def.CriticalThreshold
	}
	if config.CompressThreshold == 0 {
		config.CompressThreshold = def.CompressThreshold
	}
	if config.CompressionTarget == 0 {
		config.CompressionTarget = def.CompressionTarget
	}
	if config.KeepFirst == 0 {
		config.KeepFirst = def.KeepFirst
	}
	if config.KeepLast == 0 {
		config.KeepLast = def.KeepLast
	}
	if config.SummaryReduction == 0 {
		config.SummaryReduction = def.SummaryReduction
	}
	return &Tracker{config: config}
}

// Config returns the tracker configuration.
func (t *Tracker) Config() TrackerConfig { return t.config }

// Available returns the token budget available for prompt + history.
func (t *Tracker) Available() int {
	return t.config.MaxContextTokens - t.config.ReservedOutputTokens
}

// CalculateUsage sums the estimated token cost of the prompt parts and
// derives the status from the thresholds. A negative remainder forces
// exceeded regardless of percentage.
func (t *Tracker) CalculateUsage(systemPrompt string, messages []session.Message, extra string) TokenUsage {
	u := TokenUsage{
		SystemPrompt: EstimateTokens(systemPrompt),
		Extra:        EstimateTokens(extra),
	}
	for i := range messages {
		u.History += EstimateTokens(messages[i].Content)
	}
	u.Total = u.SystemPrompt + u.History + u.Extra

	available := t.Available()
	u.Remaining = available - u.Total
	if available > 0 {
		u.PercentUsed = float64(u.Total) / float64(available)
	}

	switch {
	case u.Remaining < 0:
		u.Status = StatusExceeded
	case u.PercentUsed >= t.config.CriticalThreshold:
		u.Status = StatusCritical
	case u.PercentUsed >= t.config.WarningThreshold:
		u.Status = StatusWarning
	default:
		u.Status = StatusOK
	}
	return u
}

// CheckBudget projects the usage if candidate were appended and decides
// whether the caller should compress, alert, or block the send. A false
// CanAddMessage must block sending rather than silently truncate.
func (t *Tracker) CheckBudget(systemPrompt string, messages []session.Message, candidate string) BudgetCheck {
	projected := t.CalculateUsage(systemPrompt, messages, candidate)

	check := BudgetCheck{
		Projected:      projected,
		ShouldCompress: projected.PercentUsed >= t.config.CompressThreshold,
		ShouldAlert:    projected.Status == StatusWarning || projected.Status == StatusCritical,
		CanAddMessage:  projected.Status != StatusExceeded,
	}
	if check.ShouldCompress {
		logging.ContextDebug("budget check: %.1f%% used, compression advised", projected.PercentUsed*100)
	}
	return check
}

// CalculateCompressionTarget returns how many tokens must be removed to
// bring usage down to the configured target share of the available
// budget.
func (t *Tracker) CalculateCompressionTarget(currentTotal int) int {
	target := int(float64(t.Available()) * t.config.CompressionTarget)
	if currentTotal <= target {
		return 0
	}
	return currentTotal - target
}

// EstimateMessagesToCompress selects enough of the oldest compressible
// messages so that their token sum, minus the assumed summarization
// reduction, meets the target reduction. The first KeepFirst and last
// KeepLast messages are never candidates. Selection is chronological:
// oldest compressible messages first.
func (t *Tracker) EstimateMessagesToCompress(messages []session.Message, targetReduction int) int {
	first, last := t.config.KeepFirst, t.config.KeepLast
	if len(messages) <= first+last || targetReduction <= 0 {
		return 0
	}

	count := 0
	saved := 0
	for i := first; i < len(messages)-last; i++ {
		count++
		saved += int(float64(EstimateTokens(messages[i].Content)) * t.config.SummaryReduction)
		if saved >= targetReduction {
			break
		}
	}
	logging.ContextDebug("compression estimate: %d messages to reclaim ~%d tokens (target %d)",
		count, saved, targetReduction)
	return count
}
