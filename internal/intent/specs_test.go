package intent

import "testing"

func TestInferSpecsPlatformDefaults(t *testing.T) {
	cases := []struct {
		platform Platform
		aspect   string
		duration string
	}{
		{PlatformInstagram, "9:16", "15-30s"},
		{PlatformTikTok, "9:16", "15-60s"},
		{PlatformYouTube, "16:9", "60s"},
		{PlatformLinkedIn, "1:1", "30-60s"},
		{PlatformWebsite, "16:9", "30s"},
		{PlatformTV, "16:9", "30s"},
	}
	for _, tc := range cases {
		in := Default()
		in.Platform = tc.platform
		in.MediaType = MediaVideo

		specs := InferSpecs(in, InferredSpecs{})
		if specs.AspectRatio != tc.aspect {
			t.Errorf("%s: aspect = %s, want %s", tc.platform, specs.AspectRatio, tc.aspect)
		}
		if specs.Duration != tc.duration {
			t.Errorf("%s: duration = %s, want %s", tc.platform, specs.Duration, tc.duration)
		}
	}
}

func TestInferSpecsDurationOnlyForVideo(t *testing.T) {
	in := Default()
	in.Platform = PlatformInstagram
	in.MediaType = MediaImage

	specs := InferSpecs(in, InferredSpecs{})
	if specs.Duration != "" {
		t.Errorf("image got a duration: %s", specs.Duration)
	}
	if specs.AspectRatio != "9:16" {
		t.Errorf("aspect = %s, want 9:16 regardless of media type", specs.AspectRatio)
	}
}

func TestInferSpecsDoesNotOverwritePrior(t *testing.T) {
	in := Default()
	in.Platform = PlatformInstagram
	in.MediaType = MediaVideo

	prior := InferredSpecs{AspectRatio: "16:9", Duration: "45s"}
	specs := InferSpecs(in, prior)
	if specs.AspectRatio != "16:9" || specs.Duration != "45s" {
		t.Errorf("explicit specs overwritten: %+v", specs)
	}
}

func TestInferSpecsQualityRules(t *testing.T) {
	in := Default()
	in.Purpose = PurposeBrand
	if specs := InferSpecs(in, InferredSpecs{}); specs.QualityLevel != "high" {
		t.Errorf("brand purpose: quality = %s, want high", specs.QualityLevel)
	}

	in = Default()
	in.Style = StyleCinematic
	specs := InferSpecs(in, InferredSpecs{})
	if specs.QualityLevel != "high" || specs.Resolution != "1080p" {
		t.Errorf("cinematic style: got %+v", specs)
	}
}

func TestInferSpecsBudgetWinsLast(t *testing.T) {
	in := Default()
	in.Purpose = PurposeBrand
	in.Style = StyleCinematic
	in.BudgetSensitivity = BudgetLow

	if specs := InferSpecs(in, InferredSpecs{}); specs.QualityLevel != "fast" {
		t.Errorf("low budget should force fast quality, got %s", specs.QualityLevel)
	}
}
