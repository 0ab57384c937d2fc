// Package capability maps a normalized creative-generation task type to a
// concrete provider descriptor with cost and time estimates. Selection is
// rule-priority, not learned: for each capability family a fixed ordered
// list of conditions picks the primary, and a distinct fallback is always
// produced.
package capability

// Capability is an abstract creative-generation task type.
type Capability string

const (
	ShortFormVideo Capability = "short_form_video"
	LongFormVideo  Capability = "long_form_video"
	ImageGeneration Capability = "image_generation"
	LogoDesign     Capability = "logo_design"
	MusicGeneration Capability = "music_generation"
	SpeechSynthesis Capability = "speech_synthesis"
	ThreeDModel    Capability = "3d_model"
)

// Provider describes one concrete generation provider/model.
type Provider struct {
	Name                 string
	Endpoint             string
	EstimatedCost        float64 // USD for a typical generation with this provider
	EstimatedTimeSeconds int
}

// catalog lists viable providers per capability family, ordered cheapest
// first. The cheapest two entries of every family sit within 1.5x of each
// other so a compliant fallback always exists.
var catalog = map[Capability][]Provider{
	ShortFormVideo: {
		{Name: "pika-2.2", Endpoint: "generation/pika/v2", EstimatedCost: 1.80, EstimatedTimeSeconds: 45},
		{Name: "luma-ray2-flash", Endpoint: "generation/luma/ray2-flash", EstimatedCost: 2.00, EstimatedTimeSeconds: 30},
		{Name: "kling-2.5", Endpoint: "generation/kling/v2.5", EstimatedCost: 2.50, EstimatedTimeSeconds: 90},
		{Name: "runway-gen4", Endpoint: "generation/runway/gen4", EstimatedCost: 3.00, EstimatedTimeSeconds: 60},
		{Name: "veo-3", Endpoint: "generation/google/veo3", EstimatedCost: 4.00, EstimatedTimeSeconds: 120},
	},
	LongFormVideo: {
		{Name: "hailuo-02", Endpoint: "generation/minimax/hailuo02", EstimatedCost: 5.50, EstimatedTimeSeconds: 180},
		{Name: "runway-gen4", Endpoint: "generation/runway/gen4", EstimatedCost: 7.50, EstimatedTimeSeconds: 150},
		{Name: "veo-3", Endpoint: "generation/google/veo3", EstimatedCost: 9.00, EstimatedTimeSeconds: 240},
	},
	ImageGeneration: {
		{Name: "sdxl-turbo", Endpoint: "generation/stability/sdxl-turbo", EstimatedCost: 0.02, EstimatedTimeSeconds: 3},
		{Name: "flux-dev", Endpoint: "generation/bfl/flux-dev", EstimatedCost: 0.025, EstimatedTimeSeconds: 8},
		{Name: "flux-pro", Endpoint: "generation/bfl/flux-pro", EstimatedCost: 0.05, EstimatedTimeSeconds: 12},
		{Name: "ideogram-v3", Endpoint: "generation/ideogram/v3", EstimatedCost: 0.08, EstimatedTimeSeconds: 10},
	},
	LogoDesign: {
		{Name: "recraft-v3", Endpoint: "generation/recraft/v3", EstimatedCost: 0.06, EstimatedTimeSeconds: 10},
		{Name: "ideogram-v3", Endpoint: "generation/ideogram/v3", EstimatedCost: 0.08, EstimatedTimeSeconds: 10},
	},
	MusicGeneration: {
		{Name: "musicgen-large", Endpoint: "generation/meta/musicgen", EstimatedCost: 0.40, EstimatedTimeSeconds: 60},
		{Name: "suno-v4", Endpoint: "generation/suno/v4", EstimatedCost: 0.50, EstimatedTimeSeconds: 90},
	},
	SpeechSynthesis: {
		{Name: "openai-tts", Endpoint: "generation/openai/tts", EstimatedCost: 0.25, EstimatedTimeSeconds: 10},
		{Name: "elevenlabs-v3", Endpoint: "generation/elevenlabs/v3", EstimatedCost: 0.30, EstimatedTimeSeconds: 15},
	},
	ThreeDModel: {
		{Name: "tripo-v2", Endpoint: "generation/tripo/v2", EstimatedCost: 0.30, EstimatedTimeSeconds: 120},
		{Name: "meshy-4", Endpoint: "generation/meshy/v4", EstimatedCost: 0.40, EstimatedTimeSeconds: 180},
	},
}

// Providers returns the catalog entries for a capability.
func Providers(c Capability) []Provider {
	return catalog[c]
}

// find returns the catalog entry with the given name within a family.
func find(c Capability, name string) (Provider, bool) {
	for _, p := range catalog[c] {
		if p.Name == name {
			return p, true
		}
	}
	return Provider{}, false
}
