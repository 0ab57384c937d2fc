package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/capability"
	convctx "reelsmith/internal/context"
	"reelsmith/internal/intent"
	"reelsmith/internal/llm"
	"reelsmith/internal/pricing"
	"reelsmith/internal/resilience"
	"reelsmith/internal/session"
	"reelsmith/internal/styles"
)

const restaurantExtraction = `{
  "purpose": {"value": "marketing", "confidence": 0.9},
  "platform": {"value": "instagram", "confidence": 0.95},
  "style": {"value": "unknown", "confidence": 0.0},
  "mediaType": {"value": "video", "confidence": 0.85},
  "budgetSensitivity": {"value": "unknown", "confidence": 0.0},
  "hasScript": false,
  "hasVisuals": false
}`

const emptyExtraction = `{
  "purpose": {"value": "unknown", "confidence": 0.0},
  "platform": {"value": "unknown", "confidence": 0.0},
  "style": {"value": "unknown", "confidence": 0.0},
  "mediaType": {"value": "unknown", "confidence": 0.0},
  "budgetSensitivity": {"value": "unknown", "confidence": 0.0},
  "hasScript": false,
  "hasVisuals": false
}`

// scriptedClient answers extraction requests from a queue and everything
// else with a fixed conversational reply.
type scriptedClient struct {
	extractions []string
	reply       string
}

func (s *scriptedClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if strings.Contains(req.System, "extract creative-media production intent") {
		next := emptyExtraction
		if len(s.extractions) > 0 {
			next = s.extractions[0]
			s.extractions = s.extractions[1:]
		}
		return &llm.Response{Text: next}, nil
	}
	return &llm.Response{Text: s.reply}, nil
}

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.RetryConfig{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		Base:       2,
		MaxDelay:   time.Millisecond,
	}, resilience.NewBreakerRegistry(resilience.DefaultBreakerConfig()))
}

func newTestOrchestrator(client llm.Client) *Orchestrator {
	exec := fastExecutor()
	classifier := NewKeywordClassifier()
	tracker := convctx.NewTracker(convctx.DefaultTrackerConfig())
	return New(Deps{
		Store:      session.NewMemoryStore(classifier.IsAffirmative),
		Client:     client,
		Executor:   exec,
		Extractor:  intent.NewExtractor(client, exec),
		Selector:   capability.NewSelector(),
		Estimator:  pricing.NewEstimator(nil),
		Styles:     styles.NewClient("http://127.0.0.1:1", time.Second, exec),
		Tracker:    tracker,
		Compressor: convctx.NewCompressor(client, exec, tracker, convctx.DefaultCompressorConfig()),
		Usage:      convctx.NewRegistry(),
		Classifier: classifier,
	})
}

// Full happy path: one message with purpose and platform yields a priced
// proposal, an affirmation executes it, and a final thumbs-up closes the
// session.
func TestHandleTurnRestaurantScenario(t *testing.T) {
	client := &scriptedClient{
		extractions: []string{restaurantExtraction},
		reply:       "Happy to help with that.",
	}
	o := newTestOrchestrator(client)
	ctx := context.Background()

	// Turn 1: enough information arrives to propose a plan.
	resp, err := o.HandleTurn(ctx, TurnRequest{UserID: "u1", Message: "I need a video for my restaurant's Instagram"})
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("no session id assigned")
	}
	if resp.Phase != session.PhaseRefinement {
		t.Fatalf("turn 1 phase = %s, want refinement", resp.Phase)
	}
	if resp.Estimate == nil || resp.Estimate.Credits <= 0 {
		t.Fatalf("turn 1 estimate = %+v, want a priced proposal", resp.Estimate)
	}
	if resp.Selection == nil || resp.Selection.Primary.Name == resp.Selection.Fallback.Name {
		t.Fatalf("turn 1 selection = %+v", resp.Selection)
	}
	if !strings.Contains(resp.Reply, "credits") {
		t.Errorf("proposal reply does not state the price: %q", resp.Reply)
	}
	if resp.NeedsApproval != pricing.NeedsExplicitApproval(resp.Estimate.Credits) {
		t.Error("approval flag disagrees with the pricing rule")
	}
	if resp.Usage == nil || resp.Usage.Status != convctx.StatusOK {
		t.Errorf("turn 1 usage = %+v", resp.Usage)
	}
	if !resp.NeedsUserInput {
		t.Error("turn 1 proposal waits on the user's go-ahead")
	}
	if resp.ExecutionStatus != ExecutionPending {
		t.Errorf("turn 1 execution status = %q, want pending", resp.ExecutionStatus)
	}
	if len(resp.Styles) == 0 {
		t.Fatal("turn 1 proposal carries no style recommendations")
	}
	if !strings.Contains(resp.Reply, resp.Styles[0].Name) {
		t.Errorf("proposal reply does not mention the recommended style %q: %q", resp.Styles[0].Name, resp.Reply)
	}

	// Turn 2: the go-ahead executes the plan and delivers results.
	resp, err = o.HandleTurn(ctx, TurnRequest{SessionID: resp.SessionID, UserID: "u1", Message: "yes, go ahead"})
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if resp.Phase != session.PhaseDelivery {
		t.Fatalf("turn 2 phase = %s, want delivery after execution", resp.Phase)
	}
	if len(resp.ResultURLs) == 0 {
		t.Fatal("turn 2 produced no result urls")
	}
	if resp.ExecutionStatus != ExecutionCompleted {
		t.Errorf("turn 2 execution status = %q, want completed", resp.ExecutionStatus)
	}
	if resp.NeedsUserInput {
		t.Error("the execution turn does not wait on the user")
	}

	// Turn 3: accepting the result completes the session.
	resp, err = o.HandleTurn(ctx, TurnRequest{SessionID: resp.SessionID, UserID: "u1", Message: "yes"})
	if err != nil {
		t.Fatalf("turn 3: %v", err)
	}
	if resp.Recovered {
		t.Fatalf("turn 3 recovered unexpectedly: %q", resp.Reply)
	}
	if !resp.NeedsUserInput {
		t.Error("delivery turns wait on the user")
	}
}

// countingClient counts completion calls on the way to the wrapped
// client.
type countingClient struct {
	inner llm.Client
	calls int
}

func (c *countingClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	c.calls++
	return c.inner.Complete(ctx, req)
}

// A message that blows the token budget must be refused before any
// completion call goes out.
func TestHandleTurnBlocksOverBudgetMessage(t *testing.T) {
	client := &countingClient{inner: &scriptedClient{reply: "ok"}}
	exec := fastExecutor()
	classifier := NewKeywordClassifier()
	tracker := convctx.NewTracker(convctx.TrackerConfig{MaxContextTokens: 60, ReservedOutputTokens: 50})
	o := New(Deps{
		Store:      session.NewMemoryStore(classifier.IsAffirmative),
		Client:     client,
		Executor:   exec,
		Extractor:  intent.NewExtractor(client, exec),
		Selector:   capability.NewSelector(),
		Estimator:  pricing.NewEstimator(nil),
		Styles:     styles.NewClient("http://127.0.0.1:1", time.Second, exec),
		Tracker:    tracker,
		Compressor: convctx.NewCompressor(client, exec, tracker, convctx.DefaultCompressorConfig()),
		Usage:      convctx.NewRegistry(),
		Classifier: classifier,
	})

	resp, err := o.HandleTurn(context.Background(), TurnRequest{
		UserID:  "u1",
		Message: strings.Repeat("make it longer and add a full product walkthrough ", 4),
	})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("over-budget turn sent %d completion call(s), want none", client.calls)
	}
	if resp.Reply == "" {
		t.Error("a refused turn must still reply")
	}
	if resp.Usage == nil || resp.Usage.Status != convctx.StatusExceeded {
		t.Errorf("usage = %+v, want exceeded", resp.Usage)
	}
	if !resp.NeedsUserInput {
		t.Error("a refused turn waits on the user")
	}
}

func TestTurnResponseContractFields(t *testing.T) {
	raw, err := json.Marshal(TurnResponse{NeedsUserInput: true, ExecutionStatus: ExecutionInProgress})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"needsUserInput":true`, `"executionStatus":"in_progress"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("marshaled response missing %s: %s", want, raw)
		}
	}
}

func TestHandleTurnDiscoveryAsksOneQuestion(t *testing.T) {
	client := &scriptedClient{reply: "What's this for? A brand, a product launch, or something personal?"}
	o := newTestOrchestrator(client)

	resp, err := o.HandleTurn(context.Background(), TurnRequest{UserID: "u1", Message: "I want to make something"})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if resp.Phase != session.PhaseDiscovery {
		t.Errorf("phase = %s, want discovery", resp.Phase)
	}
	if resp.Reply == "" {
		t.Error("discovery must always reply")
	}
	if len(resp.MissingInfo) == 0 || resp.MissingInfo[0] != "purpose" {
		t.Errorf("missing info = %v, want purpose first", resp.MissingInfo)
	}
}

func TestHandleTurnSupportiveBypassesPhases(t *testing.T) {
	client := &scriptedClient{reply: "That sounds rough. Take your time."}
	o := newTestOrchestrator(client)
	ctx := context.Background()

	resp, err := o.HandleTurn(ctx, TurnRequest{UserID: "u1", Message: "I'm stressed about this whole launch"})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if resp.Mode != ModeSupportive {
		t.Errorf("mode = %s, want supportive", resp.Mode)
	}
	if resp.Phase != session.PhaseDiscovery {
		t.Errorf("phase = %s, supportive turns must not advance the lifecycle", resp.Phase)
	}
	if resp.Estimate != nil || resp.Selection != nil {
		t.Error("supportive turns must not propose plans")
	}
}

func TestHandleTurnUnknownSessionStartsFresh(t *testing.T) {
	client := &scriptedClient{reply: "Tell me more."}
	o := newTestOrchestrator(client)

	resp, err := o.HandleTurn(context.Background(), TurnRequest{
		SessionID: "gone-from-the-store",
		UserID:    "u1",
		Message:   "hello again",
	})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if resp.SessionID == "gone-from-the-store" || resp.SessionID == "" {
		t.Errorf("expected a fresh session id, got %q", resp.SessionID)
	}
}

// A refinement that cannot be planned (media type never resolved) must
// degrade to an apology and reset to discovery, never a dead session.
func TestHandleTurnRecoversFromPlanningFailure(t *testing.T) {
	noMedia := `{
	  "purpose": {"value": "marketing", "confidence": 0.9},
	  "platform": {"value": "instagram", "confidence": 0.9},
	  "style": {"value": "unknown", "confidence": 0.0},
	  "mediaType": {"value": "unknown", "confidence": 0.0},
	  "budgetSensitivity": {"value": "unknown", "confidence": 0.0},
	  "hasScript": false,
	  "hasVisuals": false
	}`
	client := &scriptedClient{extractions: []string{noMedia}, reply: "ok"}
	o := newTestOrchestrator(client)

	resp, err := o.HandleTurn(context.Background(), TurnRequest{UserID: "u1", Message: "a campaign for instagram"})
	if err != nil {
		t.Fatalf("recovery must not surface an error: %v", err)
	}
	if !resp.Recovered {
		t.Fatal("expected a recovered turn")
	}
	if resp.Phase != session.PhaseDiscovery {
		t.Errorf("phase = %s, want discovery after reset", resp.Phase)
	}
	if resp.Reply == "" {
		t.Error("recovery must still reply to the user")
	}
}

func TestCapabilityForMapping(t *testing.T) {
	cases := []struct {
		media    intent.MediaType
		script   bool
		duration string
		want     capability.Capability
	}{
		{intent.MediaVideo, false, "15-30s", capability.ShortFormVideo},
		{intent.MediaVideo, false, "2m", capability.LongFormVideo},
		{intent.MediaImage, false, "", capability.ImageGeneration},
		{intent.MediaLogo, false, "", capability.LogoDesign},
		{intent.MediaAudio, false, "", capability.MusicGeneration},
		{intent.MediaAudio, true, "", capability.SpeechSynthesis},
		{intent.MediaThreeD, false, "", capability.ThreeDModel},
	}
	for _, tc := range cases {
		in := intent.Default()
		in.MediaType = tc.media
		in.HasScript = tc.script
		got, err := capabilityFor(in, intent.InferredSpecs{Duration: tc.duration})
		if err != nil {
			t.Errorf("%s: %v", tc.media, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s (script=%v, %s) = %s, want %s", tc.media, tc.script, tc.duration, got, tc.want)
		}
	}

	if _, err := capabilityFor(intent.Default(), intent.InferredSpecs{}); err == nil {
		t.Error("unknown media type must not map to a capability")
	}
}
