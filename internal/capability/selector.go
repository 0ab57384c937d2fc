package capability

import (
	"fmt"

	"reelsmith/internal/logging"
)

// maxFallbackRatio bounds how much more a fallback may cost relative to
// the primary.
const maxFallbackRatio = 1.5

// Context carries the contextual flags that drive provider selection.
type Context struct {
	AspectRatio     string
	DurationSeconds float64
	Cinematic       bool
	HasDialogue     bool
	CameraMovements int
	Artistic        bool
	ContainsText    bool
	QualityLevel    string
	BudgetSensitive bool
	Enterprise      bool
	FastIteration   bool
}

// Selection is one chosen provider with its estimates and a
// human-readable reason suitable for direct display.
type Selection struct {
	Name                 string  `json:"name"`
	ProviderEndpoint     string  `json:"providerEndpoint"`
	EstimatedCost        float64 `json:"estimatedCost"`
	EstimatedTimeSeconds int     `json:"estimatedTimeSeconds"`
	Reason               string  `json:"reason"`
}

// ModelSelection pairs the primary provider with a distinct fallback
// whose cost never exceeds maxFallbackRatio times the primary's.
type ModelSelection struct {
	Primary  Selection `json:"primary"`
	Fallback Selection `json:"fallback"`
}

// Selector picks providers from the catalog by rule priority.
type Selector struct{}

// NewSelector creates a selector over the built-in catalog.
func NewSelector() *Selector { return &Selector{} }

// Select resolves a capability plus context flags to a primary/fallback
// pair. Unknown capabilities are an error; every successful selection has
// a non-empty reason and a compliant fallback.
func (s *Selector) Select(cap Capability, sctx Context) (*ModelSelection, error) {
	providers := Providers(cap)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers registered for capability %q", cap)
	}

	primaryName, reason := s.pickPrimary(cap, sctx)
	primary, ok := find(cap, primaryName)
	if !ok {
		// Rule tables and catalog drifted apart; degrade to the cheapest.
		primary = providers[0]
		reason = "selected as the most economical provider for this task"
	}

	fallback := pickFallback(providers, primary)

	sel := &ModelSelection{
		Primary: Selection{
			Name:                 primary.Name,
			ProviderEndpoint:     primary.Endpoint,
			EstimatedCost:        primary.EstimatedCost,
			EstimatedTimeSeconds: primary.EstimatedTimeSeconds,
			Reason:               reason,
		},
		Fallback: Selection{
			Name:                 fallback.Name,
			ProviderEndpoint:     fallback.Endpoint,
			EstimatedCost:        fallback.EstimatedCost,
			EstimatedTimeSeconds: fallback.EstimatedTimeSeconds,
			Reason:               fmt.Sprintf("next-cheapest viable alternative to %s", primary.Name),
		},
	}

	logging.Get(logging.CategoryCapability).Debugf("selected %s (fallback %s) for %s",
		sel.Primary.Name, sel.Fallback.Name, cap)
	return sel, nil
}

// pickPrimary walks the fixed condition list for the capability family.
// First match wins.
func (s *Selector) pickPrimary(cap Capability, sctx Context) (string, string) {
	switch cap {
	case ShortFormVideo:
		switch {
		case sctx.HasDialogue:
			return "veo-3", "best-in-class synchronized audio for spoken dialogue"
		case sctx.CameraMovements > 1:
			return "kling-2.5", "specialized in multi-shot camera motion"
		case sctx.BudgetSensitive:
			return "pika-2.2", "cheapest acceptable option for short clips"
		case sctx.FastIteration:
			return "luma-ray2-flash", "fastest turnaround for quick iteration"
		case sctx.Cinematic || sctx.QualityLevel == "high":
			return "runway-gen4", "strongest cinematic look at this length"
		default:
			return "kling-2.5", "balanced quality and cost for short-form video"
		}
	case LongFormVideo:
		switch {
		case sctx.Enterprise:
			return "veo-3", "enterprise-grade consistency over longer runtimes"
		case sctx.BudgetSensitive:
			return "hailuo-02", "most economical option at longer durations"
		default:
			return "runway-gen4", "reliable quality for long-form content"
		}
	case ImageGeneration:
		switch {
		case sctx.ContainsText:
			return "ideogram-v3", "most accurate text rendering inside images"
		case sctx.BudgetSensitive || sctx.FastIteration:
			return "sdxl-turbo", "near-instant drafts at minimal cost"
		case sctx.QualityLevel == "high" || sctx.Artistic:
			return "flux-pro", "highest image fidelity for polished work"
		default:
			return "flux-dev", "good default balance of quality and price"
		}
	case LogoDesign:
		if sctx.ContainsText {
			return "ideogram-v3", "handles wordmarks and lettering reliably"
		}
		return "recraft-v3", "purpose-built for vector-style logo output"
	case MusicGeneration:
		if sctx.BudgetSensitive {
			return "musicgen-large", "solid instrumental tracks at lower cost"
		}
		return "suno-v4", "full songs with vocals and strong structure"
	case SpeechSynthesis:
		if sctx.BudgetSensitive {
			return "openai-tts", "clear narration at the lowest price point"
		}
		return "elevenlabs-v3", "most natural voices and emotion control"
	case ThreeDModel:
		if sctx.FastIteration {
			return "tripo-v2", "quick mesh drafts for early exploration"
		}
		return "meshy-4", "detailed textured models for final assets"
	default:
		return "", "selected as the most economical provider for this task"
	}
}

// pickFallback returns the cheapest provider other than the primary whose
// cost stays within maxFallbackRatio of it. The catalog guarantees at
// least one such entry per family.
func pickFallback(providers []Provider, primary Provider) Provider {
	cap := primary.EstimatedCost * maxFallbackRatio
	var best *Provider
	for i := range providers {
		p := providers[i]
		if p.Name == primary.Name || p.EstimatedCost > cap {
			continue
		}
		if best == nil || p.EstimatedCost < best.EstimatedCost {
			best = &providers[i]
		}
	}
	if best != nil {
		return *best
	}
	// Should not happen with the shipped catalog; keep the invariant by
	// taking the cheapest non-primary entry.
	var cheapest *Provider
	for i := range providers {
		if providers[i].Name == primary.Name {
			continue
		}
		if cheapest == nil || providers[i].EstimatedCost < cheapest.EstimatedCost {
			cheapest = &providers[i]
		}
	}
	if cheapest == nil {
		return primary
	}
	return *cheapest
}
