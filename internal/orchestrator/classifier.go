package orchestrator

import (
	"strings"
)

// Mode is the conversational channel for a turn. Task mode drives the
// phase machine; the two side channels respond statelessly and leave the
// task lifecycle alone.
type Mode string

const (
	ModeTask       Mode = "task"
	ModeSupportive Mode = "supportive_conversation"
	ModeDirect     Mode = "direct_answer"
)

// Classifier decides how a user message should be routed. It is
// pluggable so the keyword matcher can be swapped for a model-backed one
// without touching the orchestrator.
type Classifier interface {
	Classify(text string) Mode
	IsAffirmative(text string) bool
	WantsStyleGallery(text string) bool
}

// KeywordClassifier is the default matcher. It is intentionally
// conservative: anything ambiguous routes to task mode, where the phase
// machine asks clarifying questions anyway.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the default classifier.
func NewKeywordClassifier() *KeywordClassifier { return &KeywordClassifier{} }

var supportiveMarkers = []string{
	"i'm stressed", "im stressed", "i am stressed",
	"i'm overwhelmed", "im overwhelmed",
	"i'm frustrated", "im frustrated",
	"this is hard", "i give up", "i'm stuck", "im stuck",
	"bad day", "i'm worried", "im worried",
}

var directMarkers = []string{
	"what is ", "what are ", "what does ", "how does ",
	"explain ", "difference between", "can you tell me about",
	"how much does", "how long does",
}

var affirmatives = []string{
	"yes", "yep", "yeah", "yup", "sure", "ok", "okay",
	"go ahead", "sounds good", "do it", "let's do it", "lets do it",
	"approved", "confirm", "confirmed", "perfect", "looks good",
}

var galleryMarkers = []string{
	"show me styles", "style gallery", "show styles", "browse styles",
	"what styles", "style options", "see some styles", "style examples",
}

// Classify routes a message to task, supportive, or direct-answer mode.
func (c *KeywordClassifier) Classify(text string) Mode {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, m := range supportiveMarkers {
		if strings.Contains(t, m) {
			return ModeSupportive
		}
	}
	for _, m := range directMarkers {
		if strings.Contains(t, m) {
			return ModeDirect
		}
	}
	return ModeTask
}

// IsAffirmative reports whether the message is a go-ahead. Matching is
// prefix-based on a short message so "yes, but make it longer" counts
// while "yesterday's video" does not.
func (c *KeywordClassifier) IsAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, ".!")
	if len(t) > 60 {
		return false
	}
	for _, a := range affirmatives {
		if t == a || strings.HasPrefix(t, a+" ") || strings.HasPrefix(t, a+",") {
			return true
		}
	}
	return false
}

// WantsStyleGallery reports whether the user asked to browse styles.
func (c *KeywordClassifier) WantsStyleGallery(text string) bool {
	t := strings.ToLower(text)
	for _, m := range galleryMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}
