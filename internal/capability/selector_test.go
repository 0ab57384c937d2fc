package capability

import "testing"

func allCapabilities() []Capability {
	return []Capability{ShortFormVideo, LongFormVideo, ImageGeneration, LogoDesign, MusicGeneration, SpeechSynthesis, ThreeDModel}
}

func TestSelectDialoguePicksVeo(t *testing.T) {
	sel, err := NewSelector().Select(ShortFormVideo, Context{HasDialogue: true})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Primary.Name != "veo-3" {
		t.Errorf("primary = %s, want veo-3 for dialogue", sel.Primary.Name)
	}
}

func TestSelectMultiCameraPicksKling(t *testing.T) {
	// Dialogue outranks camera movement; without dialogue, camera wins.
	sel, _ := NewSelector().Select(ShortFormVideo, Context{CameraMovements: 3})
	if sel.Primary.Name != "kling-2.5" {
		t.Errorf("primary = %s, want kling-2.5 for multi-camera", sel.Primary.Name)
	}

	sel, _ = NewSelector().Select(ShortFormVideo, Context{CameraMovements: 3, HasDialogue: true})
	if sel.Primary.Name != "veo-3" {
		t.Errorf("primary = %s, dialogue should outrank camera movement", sel.Primary.Name)
	}
}

func TestSelectBudgetPicksCheapest(t *testing.T) {
	sel, _ := NewSelector().Select(ShortFormVideo, Context{BudgetSensitive: true})
	if sel.Primary.Name != "pika-2.2" {
		t.Errorf("primary = %s, want pika-2.2 on a tight budget", sel.Primary.Name)
	}
}

func TestSelectDefaultsAreStable(t *testing.T) {
	a, _ := NewSelector().Select(ShortFormVideo, Context{})
	b, _ := NewSelector().Select(ShortFormVideo, Context{})
	if a.Primary.Name != b.Primary.Name {
		t.Errorf("selection not deterministic: %s vs %s", a.Primary.Name, b.Primary.Name)
	}
}

func TestSelectUnknownCapability(t *testing.T) {
	if _, err := NewSelector().Select(Capability("teleportation"), Context{}); err == nil {
		t.Error("unknown capability must error")
	}
}

func TestSelectTextInImagePicksIdeogram(t *testing.T) {
	sel, _ := NewSelector().Select(ImageGeneration, Context{ContainsText: true})
	if sel.Primary.Name != "ideogram-v3" {
		t.Errorf("primary = %s, want ideogram-v3 for text rendering", sel.Primary.Name)
	}
}

// Every selection must ship a distinct fallback within 1.5x of the
// primary's cost, and a displayable reason, across all families and a
// spread of contexts.
func TestSelectFallbackInvariants(t *testing.T) {
	contexts := []Context{
		{},
		{HasDialogue: true},
		{CameraMovements: 2},
		{BudgetSensitive: true},
		{FastIteration: true},
		{Cinematic: true, QualityLevel: "high"},
		{ContainsText: true},
		{Enterprise: true},
		{Artistic: true},
	}

	for _, cap := range allCapabilities() {
		for _, sctx := range contexts {
			sel, err := NewSelector().Select(cap, sctx)
			if err != nil {
				t.Fatalf("%s %+v: %v", cap, sctx, err)
			}
			if sel.Fallback.Name == sel.Primary.Name {
				t.Errorf("%s %+v: fallback equals primary (%s)", cap, sctx, sel.Primary.Name)
			}
			if sel.Fallback.EstimatedCost > sel.Primary.EstimatedCost*1.5 {
				t.Errorf("%s %+v: fallback %s costs %.2f, over 1.5x primary %.2f",
					cap, sctx, sel.Fallback.Name, sel.Fallback.EstimatedCost, sel.Primary.EstimatedCost)
			}
			if len(sel.Primary.Reason) <= 10 {
				t.Errorf("%s %+v: reason too short to display: %q", cap, sctx, sel.Primary.Reason)
			}
			if sel.Primary.ProviderEndpoint == "" || sel.Fallback.ProviderEndpoint == "" {
				t.Errorf("%s %+v: missing provider endpoint", cap, sctx)
			}
		}
	}
}

func TestCatalogSupportsCompliantFallbacks(t *testing.T) {
	// The cheapest two providers of every family must sit within 1.5x of
	// each other, or some selection could not produce a compliant fallback.
	for _, cap := range allCapabilities() {
		providers := Providers(cap)
		if len(providers) < 2 {
			t.Fatalf("%s: needs at least 2 providers", cap)
		}
		if providers[1].EstimatedCost > providers[0].EstimatedCost*1.5 {
			t.Errorf("%s: second-cheapest %.2f exceeds 1.5x cheapest %.2f",
				cap, providers[1].EstimatedCost, providers[0].EstimatedCost)
		}
	}
}
