package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reelsmith/internal/llm"
	"reelsmith/internal/logging"
	"reelsmith/internal/resilience"
)

// historyWindow is how many prior turns accompany the current message in
// the extraction prompt.
const historyWindow = 5

// ServiceName is the resilience service name for the extraction endpoint.
const ServiceName = "intent-extraction"

const extractionInstruction = `You extract creative-media production intent from chat messages.
Return ONLY a JSON object, no prose, matching exactly this shape:
{
  "purpose": {"value": "brand|marketing|social|education|personal|product|unknown", "confidence": 0.0},
  "platform": {"value": "instagram|tiktok|youtube|linkedin|website|tv|unknown", "confidence": 0.0},
  "style": {"value": "cinematic|minimalist|vibrant|retro|documentary|animated|unknown", "confidence": 0.0},
  "mediaType": {"value": "video|image|audio|logo|3d|unknown", "confidence": 0.0},
  "budgetSensitivity": {"value": "low|medium|high|unknown", "confidence": 0.0},
  "hasScript": false,
  "hasVisuals": false
}
Use "unknown" with confidence 0 for anything the user has not said or implied.`

// scoredField is one enum field in the provider's JSON output.
type scoredField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// extraction is the explicit decode schema for the provider's output.
type extraction struct {
	Purpose           scoredField `json:"purpose"`
	Platform          scoredField `json:"platform"`
	Style             scoredField `json:"style"`
	MediaType         scoredField `json:"mediaType"`
	BudgetSensitivity scoredField `json:"budgetSensitivity"`
	HasScript         bool        `json:"hasScript"`
	HasVisuals        bool        `json:"hasVisuals"`
}

// Extractor calls the completion provider to produce a structured intent.
type Extractor struct {
	client llm.Client
	exec   *resilience.Executor
}

// NewExtractor creates an extractor over the given completion client.
func NewExtractor(client llm.Client, exec *resilience.Executor) *Extractor {
	return &Extractor{client: client, exec: exec}
}

// Extract derives an intent from the current message, the recent history,
// and the session's running intent. Extraction failures never abort the
// turn: on any error it returns the fully-unknown default with zero
// confidence.
func (e *Extractor) Extract(ctx context.Context, message string, history []llm.Message, current Intent) Intent {
	timer := logging.StartTimer(logging.CategoryIntent, "Extract")
	defer timer.Stop()

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, history...)
	if cur, err := json.Marshal(current); err == nil {
		msgs = append(msgs, llm.Message{
			Role:    llm.RoleSystem,
			Content: "Current known intent: " + string(cur),
		})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	var resp *llm.Response
	err := e.exec.Execute(ctx, ServiceName, func(ctx context.Context) error {
		var callErr error
		resp, callErr = e.client.Complete(ctx, llm.Request{
			System:      extractionInstruction,
			Messages:    msgs,
			Temperature: 0,
		})
		return callErr
	})
	if err != nil {
		logging.Get(logging.CategoryIntent).Warnf("extraction call failed, using default intent: %v", err)
		return Default()
	}

	parsed, err := parseExtraction(resp.Text)
	if err != nil {
		logging.Get(logging.CategoryIntent).Warnf("extraction parse failed, using default intent: %v", err)
		return Default()
	}
	return parsed
}

// parseExtraction pulls the first balanced {...} substring out of the
// provider output and decodes it against the explicit schema.
func parseExtraction(text string) (Intent, error) {
	raw, err := firstJSONObject(text)
	if err != nil {
		return Default(), err
	}

	var ex extraction
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		return Default(), fmt.Errorf("decode extraction JSON: %w", err)
	}

	out := Intent{
		Purpose:           NormalizePurpose(strings.ToLower(strings.TrimSpace(ex.Purpose.Value))),
		Platform:          NormalizePlatform(strings.ToLower(strings.TrimSpace(ex.Platform.Value))),
		Style:             NormalizeStyle(strings.ToLower(strings.TrimSpace(ex.Style.Value))),
		MediaType:         NormalizeMediaType(strings.ToLower(strings.TrimSpace(ex.MediaType.Value))),
		BudgetSensitivity: NormalizeBudget(strings.ToLower(strings.TrimSpace(ex.BudgetSensitivity.Value))),
		HasScript:         ex.HasScript,
		HasVisuals:        ex.HasVisuals,
		Confidence: FieldConfidence{
			Purpose:           clamp01(ex.Purpose.Confidence),
			Platform:          clamp01(ex.Platform.Confidence),
			Style:             clamp01(ex.Style.Confidence),
			MediaType:         clamp01(ex.MediaType.Confidence),
			BudgetSensitivity: clamp01(ex.BudgetSensitivity.Confidence),
		},
	}

	// A value that collapsed to unknown carries no evidence.
	if out.Purpose == PurposeUnknown {
		out.Confidence.Purpose = 0
	}
	if out.Platform == PlatformUnknown {
		out.Confidence.Platform = 0
	}
	if out.Style == StyleUnknown {
		out.Confidence.Style = 0
	}
	if out.MediaType == MediaUnknown {
		out.Confidence.MediaType = 0
	}
	if out.BudgetSensitivity == BudgetUnknown {
		out.Confidence.BudgetSensitivity = 0
	}

	out.Overall = (out.Confidence.Purpose + out.Confidence.Platform + out.Confidence.Style +
		out.Confidence.MediaType + out.Confidence.BudgetSensitivity) / 5

	return out, nil
}

// firstJSONObject extracts the first balanced {...} substring, tolerating
// braces inside JSON strings.
func firstJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in output")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in output")
}
