// Package intent turns raw user turns into structured, confidence-scored
// intent records, and derives technical specs from them by rule so the
// user is never asked for anything the system can infer.
package intent

// Unknown is the sentinel value shared by every enum field. It never
// overwrites a known value during merging.
const Unknown = "unknown"

// Purpose is what the user wants the media for.
type Purpose string

const (
	PurposeBrand     Purpose = "brand"
	PurposeMarketing Purpose = "marketing"
	PurposeSocial    Purpose = "social"
	PurposeEducation Purpose = "education"
	PurposePersonal  Purpose = "personal"
	PurposeProduct   Purpose = "product"
	PurposeUnknown   Purpose = Unknown
)

// Platform is where the media will be published.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformWebsite   Platform = "website"
	PlatformTV        Platform = "tv"
	PlatformUnknown   Platform = Unknown
)

// Style is the requested creative style.
type Style string

const (
	StyleCinematic  Style = "cinematic"
	StyleMinimalist Style = "minimalist"
	StyleVibrant    Style = "vibrant"
	StyleRetro      Style = "retro"
	StyleDocumentary Style = "documentary"
	StyleAnimated   Style = "animated"
	StyleUnknown    Style = Unknown
)

// MediaType is the kind of media to generate.
type MediaType string

const (
	MediaVideo   MediaType = "video"
	MediaImage   MediaType = "image"
	MediaAudio   MediaType = "audio"
	MediaLogo    MediaType = "logo"
	MediaThreeD  MediaType = "3d"
	MediaUnknown MediaType = Unknown
)

// BudgetSensitivity is how price-conscious the user is.
type BudgetSensitivity string

const (
	BudgetLow     BudgetSensitivity = "low"
	BudgetMedium  BudgetSensitivity = "medium"
	BudgetHigh    BudgetSensitivity = "high"
	BudgetUnknown BudgetSensitivity = Unknown
)

// FieldConfidence carries the extraction confidence per enum field,
// clamped to [0,1].
type FieldConfidence struct {
	Purpose           float64 `json:"purpose"`
	Platform          float64 `json:"platform"`
	Style             float64 `json:"style"`
	MediaType         float64 `json:"mediaType"`
	BudgetSensitivity float64 `json:"budgetSensitivity"`
}

// Intent is the structured interpretation of what the user wants.
// It is produced incrementally: each turn's extraction is merged into the
// session's running intent by Merge.
type Intent struct {
	Purpose           Purpose           `json:"purpose"`
	Platform          Platform          `json:"platform"`
	Style             Style             `json:"style"`
	MediaType         MediaType         `json:"mediaType"`
	BudgetSensitivity BudgetSensitivity `json:"budgetSensitivity"`
	HasScript         bool              `json:"hasScript"`
	HasVisuals        bool              `json:"hasVisuals"`
	Confidence        FieldConfidence   `json:"confidence"`
	Overall           float64           `json:"overall"`
}

// Default returns a fully-unknown intent with zero confidence. It is the
// safe fallback whenever extraction fails.
func Default() Intent {
	return Intent{
		Purpose:           PurposeUnknown,
		Platform:          PlatformUnknown,
		Style:             StyleUnknown,
		MediaType:         MediaUnknown,
		BudgetSensitivity: BudgetUnknown,
	}
}

// InferredSpecs are technical parameters derived from the intent by rule.
// They are never asked of the user unless inference fails.
type InferredSpecs struct {
	AspectRatio  string `json:"aspectRatio,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	QualityLevel string `json:"qualityLevel,omitempty"`
}

// normalization tables: anything outside the fixed value set collapses
// to unknown.

func NormalizePurpose(v string) Purpose {
	switch Purpose(v) {
	case PurposeBrand, PurposeMarketing, PurposeSocial, PurposeEducation, PurposePersonal, PurposeProduct:
		return Purpose(v)
	}
	return PurposeUnknown
}

func NormalizePlatform(v string) Platform {
	switch Platform(v) {
	case PlatformInstagram, PlatformTikTok, PlatformYouTube, PlatformLinkedIn, PlatformWebsite, PlatformTV:
		return Platform(v)
	}
	return PlatformUnknown
}

func NormalizeStyle(v string) Style {
	switch Style(v) {
	case StyleCinematic, StyleMinimalist, StyleVibrant, StyleRetro, StyleDocumentary, StyleAnimated:
		return Style(v)
	}
	return StyleUnknown
}

func NormalizeMediaType(v string) MediaType {
	switch MediaType(v) {
	case MediaVideo, MediaImage, MediaAudio, MediaLogo, MediaThreeD:
		return MediaType(v)
	}
	return MediaUnknown
}

func NormalizeBudget(v string) BudgetSensitivity {
	switch BudgetSensitivity(v) {
	case BudgetLow, BudgetMedium, BudgetHigh:
		return BudgetSensitivity(v)
	}
	return BudgetUnknown
}

// clamp01 clamps a confidence score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
