package intent

// platformDefaults maps a platform to its conventional aspect ratio and
// duration range.
var platformDefaults = map[Platform]struct {
	aspectRatio string
	duration    string
}{
	PlatformInstagram: {"9:16", "15-30s"},
	PlatformTikTok:    {"9:16", "15-60s"},
	PlatformYouTube:   {"16:9", "60s"},
	PlatformLinkedIn:  {"1:1", "30-60s"},
	PlatformWebsite:   {"16:9", "30s"},
	PlatformTV:        {"16:9", "30s"},
}

// InferSpecs applies the deterministic spec-inference rules to an intent,
// merging into any previously inferred specs. Rules, in order:
// platform fixes aspect ratio and duration range; brand/marketing purpose
// raises quality; cinematic style raises quality and resolution; low
// budget sensitivity forces fast quality last, overriding the others.
func InferSpecs(in Intent, prior InferredSpecs) InferredSpecs {
	specs := prior

	if d, ok := platformDefaults[in.Platform]; ok {
		if specs.AspectRatio == "" {
			specs.AspectRatio = d.aspectRatio
		}
		if specs.Duration == "" && in.MediaType == MediaVideo {
			specs.Duration = d.duration
		}
	}

	if in.Purpose == PurposeBrand || in.Purpose == PurposeMarketing {
		specs.QualityLevel = "high"
	}

	if in.Style == StyleCinematic {
		specs.QualityLevel = "high"
		if specs.Resolution == "" {
			specs.Resolution = "1080p"
		}
	}

	// Budget sensitivity wins over every other quality inference.
	if in.BudgetSensitivity == BudgetLow {
		specs.QualityLevel = "fast"
	}

	return specs
}
