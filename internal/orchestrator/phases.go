package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reelsmith/internal/capability"
	"reelsmith/internal/intent"
	"reelsmith/internal/logging"
	"reelsmith/internal/pricing"
	"reelsmith/internal/session"
	"reelsmith/internal/styles"
)

// discoveryQuestions maps the head of the missing-info list to the one
// question this turn asks. Used verbatim when the completion provider is
// unavailable.
var discoveryQuestions = map[string]string{
	"purpose":     "What's this for? A brand, a product launch, marketing, something personal?",
	"platform":    "Where will this live? Instagram, TikTok, YouTube, your website?",
	"mediaType":   "Are you picturing a video, an image, audio, or something else?",
	"aspectRatio": "Any preference on format, like vertical for mobile or widescreen?",
	"duration":    "Roughly how long should it be?",
}

// discoveryTurn asks exactly one targeted question, or shows the style
// gallery when the user asked to browse.
func (o *Orchestrator) discoveryTurn(ctx context.Context, c *session.ConversationContext, working []session.Message, req TurnRequest, resp *TurnResponse) error {
	resp.NeedsUserInput = true
	if o.classifier.WantsStyleGallery(req.Message) {
		gallery := o.styles.GetGallery(ctx, styles.GalleryQuery{Limit: 6})
		resp.Styles = gallery.Styles
		resp.Reply = galleryReply(gallery)
		return o.appendReply(ctx, c.SessionID, resp, nil)
	}

	fallback := "Tell me a bit more about what you'd like to create."
	if len(c.MissingInfo) > 0 {
		if q, ok := discoveryQuestions[c.MissingInfo[0]]; ok {
			fallback = q
		}
	}

	resp.Reply = o.respond(ctx, o.prompts.BuildJoined(c), llmHistory(working), fallback)
	return o.appendReply(ctx, c.SessionID, resp, nil)
}

// refinementTurn fetches style recommendations, then proposes one
// concrete plan: provider, fallback, and an explicit price, phrased by
// budget tier.
func (o *Orchestrator) refinementTurn(ctx context.Context, c *session.ConversationContext, resp *TurnResponse) error {
	cap, err := capabilityFor(c.Intent, c.Specs)
	if err != nil {
		return err
	}
	sel, err := o.selector.Select(cap, selectionContext(c.Intent, c.Specs))
	if err != nil {
		return err
	}
	est, err := o.estimator.Estimate(planFor(cap, sel.Primary.Name, c.Specs))
	if err != nil {
		return err
	}
	recs := o.styles.GetRecommendations(ctx, c.Intent)

	// The fallback is the next-cheapest provider; its price backs the
	// cheaper-alternative offer on expensive proposals.
	var cheaper *pricing.Estimate
	if fb, fbErr := o.estimator.Estimate(planFor(cap, sel.Fallback.Name, c.Specs)); fbErr == nil {
		cheaper = fb
	}

	resp.Selection = sel
	resp.Estimate = est
	resp.Styles = recs
	resp.NeedsApproval = pricing.NeedsExplicitApproval(est.Credits)
	resp.NeedsUserInput = true
	resp.ExecutionStatus = ExecutionPending
	resp.Reply = proposalReply(c, sel, est, resp.NeedsApproval, recs, cheaper)

	logging.RoutingDebug("proposal for %s: %s at %d credits (approval=%v)",
		c.SessionID, sel.Primary.Name, est.Credits, resp.NeedsApproval)

	plan, _ := json.Marshal(sel)
	return o.appendReply(ctx, c.SessionID, resp, map[string]interface{}{
		session.MetaCost:     est.Credits,
		session.MetaToolPlan: string(plan),
	})
}

// executionTurn dispatches the approved plan, falling back to the
// secondary provider when the primary fails. Success records the result
// URLs and tags the message completed, which moves the session to
// delivery.
func (o *Orchestrator) executionTurn(ctx context.Context, c *session.ConversationContext, resp *TurnResponse) error {
	cap, err := capabilityFor(c.Intent, c.Specs)
	if err != nil {
		return err
	}
	sel, err := o.selector.Select(cap, selectionContext(c.Intent, c.Specs))
	if err != nil {
		return err
	}

	urls, provider, err := o.generate(ctx, sel, c.Specs)
	if err != nil {
		return fmt.Errorf("generation failed on both providers: %w", err)
	}

	resp.Selection = sel
	resp.ResultURLs = urls
	resp.NeedsUserInput = false
	resp.ExecutionStatus = ExecutionCompleted
	resp.Reply = fmt.Sprintf("Done! I generated your %s with %s. Take a look: %s",
		mediaNoun(c.Intent.MediaType), provider, strings.Join(urls, ", "))

	fresh, err := o.store.Update(ctx, c.SessionID, session.Update{
		Message: &session.Message{
			Role:    session.RoleAssistant,
			Content: resp.Reply,
			Metadata: map[string]interface{}{
				session.MetaStatus:     "completed",
				session.MetaResultURLs: urls,
			},
		},
		Metadata: map[string]interface{}{session.MetaResultURLs: urls},
	})
	if err != nil {
		return fmt.Errorf("persist reply: %w", err)
	}
	resp.Phase = fresh.Phase
	resp.MissingInfo = fresh.MissingInfo
	return nil
}

// generate runs the primary provider through the resilience executor and
// tries the fallback when the primary is exhausted.
func (o *Orchestrator) generate(ctx context.Context, sel *capability.ModelSelection, specs intent.InferredSpecs) ([]string, string, error) {
	var urls []string
	err := o.exec.Execute(ctx, sel.Primary.Name, func(ctx context.Context) error {
		var genErr error
		urls, genErr = o.generator.Generate(ctx, sel.Primary, specs)
		return genErr
	})
	if err == nil {
		return urls, sel.Primary.Name, nil
	}

	logging.Get(logging.CategoryRouting).Warnf("primary %s failed, trying fallback %s: %v",
		sel.Primary.Name, sel.Fallback.Name, err)
	err = o.exec.Execute(ctx, sel.Fallback.Name, func(ctx context.Context) error {
		var genErr error
		urls, genErr = o.generator.Generate(ctx, sel.Fallback, specs)
		return genErr
	})
	if err != nil {
		return nil, "", err
	}
	return urls, sel.Fallback.Name, nil
}

// deliveryTurn presents the results and invites iteration. An
// affirmative here closes the session out.
func (o *Orchestrator) deliveryTurn(ctx context.Context, c *session.ConversationContext, resp *TurnResponse) error {
	urls := stringSlice(c.Metadata[session.MetaResultURLs])
	resp.ResultURLs = urls
	resp.NeedsUserInput = true
	resp.ExecutionStatus = ExecutionCompleted

	if last := c.LastUserMessage(); last != nil && o.classifier.IsAffirmative(last.Content) {
		if err := o.store.Complete(ctx, c.SessionID); err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		resp.Reply = "Glad you like it! This session is wrapped up. Come back anytime you want to make something new."
		return o.appendReply(ctx, c.SessionID, resp, nil)
	}

	if len(urls) > 0 {
		resp.Reply = fmt.Sprintf("Here's what we made: %s. Want any changes, like a different style, length, or format?",
			strings.Join(urls, ", "))
	} else {
		resp.Reply = "Your results are ready. Want any changes, like a different style, length, or format?"
	}
	return o.appendReply(ctx, c.SessionID, resp, nil)
}

// appendReply persists the assistant message and refreshes the
// response's phase and missing info from the stored state.
func (o *Orchestrator) appendReply(ctx context.Context, sessionID string, resp *TurnResponse, metadata map[string]interface{}) error {
	fresh, err := o.store.Update(ctx, sessionID, session.Update{
		Message: &session.Message{
			Role:     session.RoleAssistant,
			Content:  resp.Reply,
			Metadata: metadata,
		},
	})
	if err != nil {
		return fmt.Errorf("persist reply: %w", err)
	}
	resp.Phase = fresh.Phase
	resp.MissingInfo = fresh.MissingInfo
	return nil
}

// capabilityFor maps the intent to a capability family. Video splits on
// duration at 30 seconds; audio splits on whether a script exists.
func capabilityFor(in intent.Intent, specs intent.InferredSpecs) (capability.Capability, error) {
	switch in.MediaType {
	case intent.MediaVideo:
		if seconds, err := pricing.ParseDurationSeconds(specs.Duration); err == nil && seconds > 30 {
			return capability.LongFormVideo, nil
		}
		return capability.ShortFormVideo, nil
	case intent.MediaImage:
		return capability.ImageGeneration, nil
	case intent.MediaLogo:
		return capability.LogoDesign, nil
	case intent.MediaAudio:
		if in.HasScript {
			return capability.SpeechSynthesis, nil
		}
		return capability.MusicGeneration, nil
	case intent.MediaThreeD:
		return capability.ThreeDModel, nil
	default:
		return "", fmt.Errorf("cannot map media type %q to a capability", in.MediaType)
	}
}

// selectionContext translates intent and specs into the selector's
// contextual flags.
func selectionContext(in intent.Intent, specs intent.InferredSpecs) capability.Context {
	seconds, _ := pricing.ParseDurationSeconds(specs.Duration)
	return capability.Context{
		AspectRatio:     specs.AspectRatio,
		DurationSeconds: seconds,
		Cinematic:       in.Style == intent.StyleCinematic,
		HasDialogue:     in.HasScript,
		QualityLevel:    specs.QualityLevel,
		BudgetSensitive: in.BudgetSensitivity == intent.BudgetLow,
		ContainsText:    in.MediaType == intent.MediaLogo,
	}
}

// planFor builds the pricing plan for the chosen provider.
func planFor(cap capability.Capability, provider string, specs intent.InferredSpecs) pricing.Plan {
	plan := pricing.Plan{Provider: provider}
	switch cap {
	case capability.ShortFormVideo, capability.LongFormVideo:
		plan.Duration = specs.Duration
		if plan.Duration == "" {
			plan.Duration = "15s"
		}
	case capability.MusicGeneration, capability.SpeechSynthesis:
		plan.Duration = specs.Duration
		if plan.Duration == "" {
			plan.Duration = "1m"
		}
	case capability.ImageGeneration, capability.LogoDesign:
		plan.ImageCount = 1
	default:
		plan.GenerationCount = 1
	}
	return plan
}

// proposalReply phrases the plan with the price stated up front. Tier
// shapes the tone; the expensive tier offers the fallback as a cheaper
// alternative, and anything over the approval threshold asks for an
// explicit go-ahead.
func proposalReply(c *session.ConversationContext, sel *capability.ModelSelection, est *pricing.Estimate, needsApproval bool, recs []styles.StyleReference, cheaper *pricing.Estimate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here's my plan: a %s", mediaNoun(c.Intent.MediaType))
	if c.Specs.Duration != "" {
		fmt.Fprintf(&sb, " around %s", c.Specs.Duration)
	}
	if c.Specs.AspectRatio != "" {
		fmt.Fprintf(&sb, " in %s", c.Specs.AspectRatio)
	}
	fmt.Fprintf(&sb, ", generated with %s (%s).", sel.Primary.Name, sel.Primary.Reason)
	if len(recs) > 0 {
		fmt.Fprintf(&sb, " For the look, %s would suit this well.", recs[0].Name)
	}

	switch est.Tier {
	case pricing.TierLow:
		fmt.Fprintf(&sb, " That comes to about %d credits ($%.2f), on the affordable end.", est.Credits, est.USD)
	case pricing.TierMedium:
		fmt.Fprintf(&sb, " This will cost %d credits ($%.2f).", est.Credits, est.USD)
	default:
		fmt.Fprintf(&sb, " Heads up, this is a bigger job: %d credits ($%.2f).", est.Credits, est.USD)
		if cheaper != nil && cheaper.Credits < est.Credits && sel.Fallback.Name != "" {
			fmt.Fprintf(&sb, " If you'd rather keep the cost down, %s could do it for about %d credits instead.",
				sel.Fallback.Name, cheaper.Credits)
		}
	}

	if needsApproval {
		sb.WriteString(" I need your explicit go-ahead before I start. Shall I?")
	} else {
		sb.WriteString(" Want me to go ahead?")
	}
	return sb.String()
}

// galleryReply lists the gallery styles in one compact message.
func galleryReply(g *styles.Gallery) string {
	var sb strings.Builder
	sb.WriteString("Here are some styles to browse:\n")
	for _, s := range g.Styles {
		fmt.Fprintf(&sb, "- %s: %s\n", s.Name, s.Description)
	}
	sb.WriteString("Any of these feel right, or should I keep it open?")
	return sb.String()
}

// mediaNoun returns a user-facing noun for the media type.
func mediaNoun(m intent.MediaType) string {
	switch m {
	case intent.MediaVideo:
		return "video"
	case intent.MediaImage:
		return "image"
	case intent.MediaAudio:
		return "audio track"
	case intent.MediaLogo:
		return "logo"
	case intent.MediaThreeD:
		return "3D model"
	default:
		return "piece"
	}
}

// stringSlice coerces metadata values into a string slice. Values loaded
// from SQLite round-trip through JSON and come back as []interface{}.
func stringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
