package session

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"reelsmith/internal/intent"
)

func affirmYes(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "yes")
}

func knownIntent() intent.Intent {
	in := intent.Default()
	in.Purpose = intent.PurposeMarketing
	in.Platform = intent.PlatformInstagram
	in.MediaType = intent.MediaVideo
	return in
}

func TestDeterminePhaseDiscoveryByDefault(t *testing.T) {
	c := &ConversationContext{Intent: intent.Default()}
	if got := DeterminePhase(c, affirmYes); got != PhaseDiscovery {
		t.Errorf("phase = %s, want discovery", got)
	}
}

func TestDeterminePhaseRefinement(t *testing.T) {
	c := &ConversationContext{Intent: knownIntent()}
	if got := DeterminePhase(c, affirmYes); got != PhaseRefinement {
		t.Errorf("phase = %s, want refinement", got)
	}
}

func TestDeterminePhaseExecutionNeedsSpecsAndAffirmation(t *testing.T) {
	c := &ConversationContext{
		Intent: knownIntent(),
		Specs:  intent.InferredSpecs{AspectRatio: "9:16", Duration: "15-30s"},
		Messages: []Message{
			{Role: RoleAssistant, Content: "Shall I?"},
			{Role: RoleUser, Content: "yes, go ahead"},
		},
	}
	if got := DeterminePhase(c, affirmYes); got != PhaseExecution {
		t.Errorf("phase = %s, want execution", got)
	}

	// No affirmation yet: stays at refinement.
	c.Messages = []Message{{Role: RoleUser, Content: "make it vibrant"}}
	if got := DeterminePhase(c, affirmYes); got != PhaseRefinement {
		t.Errorf("phase = %s, want refinement without affirmation", got)
	}

	// Affirmation without complete specs: not execution.
	c.Messages = []Message{{Role: RoleUser, Content: "yes"}}
	c.Specs.Duration = ""
	if got := DeterminePhase(c, affirmYes); got != PhaseRefinement {
		t.Errorf("phase = %s, want refinement without duration", got)
	}
}

func TestDeterminePhaseDeliveryOnCompletedMessage(t *testing.T) {
	c := &ConversationContext{
		Intent: intent.Default(),
		Messages: []Message{
			{Role: RoleAssistant, Content: "done", Metadata: map[string]interface{}{MetaStatus: "completed"}},
		},
	}
	if got := DeterminePhase(c, affirmYes); got != PhaseDelivery {
		t.Errorf("phase = %s, want delivery", got)
	}
}

func TestAdvanceNeverRegresses(t *testing.T) {
	if got := advance(PhaseExecution, PhaseDiscovery); got != PhaseExecution {
		t.Errorf("advance regressed to %s", got)
	}
	if got := advance(PhaseRefinement, PhaseDelivery); got != PhaseDelivery {
		t.Errorf("advance blocked a forward move: %s", got)
	}
	if got := advance(PhaseDelivery, PhaseDelivery); got != PhaseDelivery {
		t.Errorf("advance changed a stable phase: %s", got)
	}
}

func TestMissingInfoPriorityOrder(t *testing.T) {
	got := MissingInfo(intent.Default(), intent.InferredSpecs{})
	want := []string{"purpose", "platform", "mediaType", "aspectRatio"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("missing info (-want +got):\n%s", diff)
	}
}

func TestMissingInfoDurationOnlyForVideo(t *testing.T) {
	in := knownIntent()
	got := MissingInfo(in, intent.InferredSpecs{AspectRatio: "9:16"})
	want := []string{"duration"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("missing info (-want +got):\n%s", diff)
	}

	in.MediaType = intent.MediaImage
	if got := MissingInfo(in, intent.InferredSpecs{AspectRatio: "9:16"}); len(got) != 0 {
		t.Errorf("image should not require duration, got %v", got)
	}
}
