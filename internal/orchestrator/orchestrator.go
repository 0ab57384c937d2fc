// Package orchestrator ties the conversation loop together: it routes
// each user turn through mode classification, intent extraction, budget
// management, and the phase machine, and always produces a reply.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"reelsmith/internal/capability"
	convctx "reelsmith/internal/context"
	"reelsmith/internal/intent"
	"reelsmith/internal/llm"
	"reelsmith/internal/logging"
	"reelsmith/internal/pricing"
	"reelsmith/internal/resilience"
	"reelsmith/internal/session"
	"reelsmith/internal/styles"
)

// TurnRequest is one inbound user turn. An empty SessionID starts a new
// session.
type TurnRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId"`
	ProjectID string `json:"projectId,omitempty"`
	Message   string `json:"message"`
}

// Execution status values reported on TurnResponse. A synchronous
// generator only ever reports pending, completed, or failed; in_progress
// is reserved for asynchronous generator implementations.
const (
	ExecutionPending    = "pending"
	ExecutionInProgress = "in_progress"
	ExecutionCompleted  = "completed"
	ExecutionFailed     = "failed"
)

// TurnResponse is the full outcome of one turn.
type TurnResponse struct {
	SessionID       string                     `json:"sessionId"`
	Reply           string                     `json:"reply"`
	Mode            Mode                       `json:"mode"`
	Phase           session.Phase              `json:"phase"`
	NeedsUserInput  bool                       `json:"needsUserInput"`
	ExecutionStatus string                     `json:"executionStatus,omitempty"`
	MissingInfo     []string                   `json:"missingInfo,omitempty"`
	Selection       *capability.ModelSelection `json:"selection,omitempty"`
	Estimate        *pricing.Estimate          `json:"estimate,omitempty"`
	NeedsApproval   bool                       `json:"needsApproval,omitempty"`
	Styles          []styles.StyleReference    `json:"styles,omitempty"`
	ResultURLs      []string                   `json:"resultUrls,omitempty"`
	Usage           *convctx.TokenUsage        `json:"usage,omitempty"`
	Recovered       bool                       `json:"recovered,omitempty"`
}

// Deps are the orchestrator's collaborators. All fields are required
// except Generator and Classifier, which default to the simulated
// generator and the keyword classifier.
type Deps struct {
	Store      session.Store
	Client     llm.Client
	Executor   *resilience.Executor
	Extractor  *intent.Extractor
	Selector   *capability.Selector
	Estimator  *pricing.Estimator
	Styles     *styles.Client
	Tracker    *convctx.Tracker
	Compressor *convctx.Compressor
	Usage      *convctx.Registry
	Generator  Generator
	Classifier Classifier
	Language   string
}

// Orchestrator processes turns. Safe for concurrent use; per-session
// serialization lives in the store.
type Orchestrator struct {
	store      session.Store
	client     llm.Client
	exec       *resilience.Executor
	extractor  *intent.Extractor
	selector   *capability.Selector
	estimator  *pricing.Estimator
	styles     *styles.Client
	tracker    *convctx.Tracker
	compressor *convctx.Compressor
	prompts    *convctx.PromptBuilder
	usage      *convctx.Registry
	generator  Generator
	classifier Classifier
	language   string
}

// New creates an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	if deps.Generator == nil {
		deps.Generator = NewSimulatedGenerator()
	}
	if deps.Classifier == nil {
		deps.Classifier = NewKeywordClassifier()
	}
	if deps.Language == "" {
		deps.Language = "en"
	}
	return &Orchestrator{
		store:      deps.Store,
		client:     deps.Client,
		exec:       deps.Executor,
		extractor:  deps.Extractor,
		selector:   deps.Selector,
		estimator:  deps.Estimator,
		styles:     deps.Styles,
		tracker:    deps.Tracker,
		compressor: deps.Compressor,
		prompts:    convctx.NewPromptBuilder(),
		usage:      deps.Usage,
		generator:  deps.Generator,
		classifier: deps.Classifier,
		language:   deps.Language,
	}
}

// Affirmer returns the classifier's affirmative matcher in the shape the
// session store expects.
func (o *Orchestrator) Affirmer() session.Affirmer {
	return o.classifier.IsAffirmative
}

// HandleTurn processes one user turn end to end. It never returns an
// error to the caller for conversational failures: anything that escapes
// the phase handlers becomes an apology reply, the error is recorded in
// session metadata, and the phase resets to discovery. Only the inability
// to load or create the session itself surfaces as an error.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	timer := logging.StartTimer(logging.CategorySession, "HandleTurn")
	defer timer.Stop()

	c, err := o.loadOrCreate(ctx, req)
	if err != nil {
		return nil, err
	}

	mode := o.classifier.Classify(req.Message)
	logging.SessionDebug("turn for session %s: mode=%s phase=%s", c.SessionID, mode, c.Phase)

	var resp *TurnResponse
	if mode == ModeTask {
		resp, err = o.handleTask(ctx, c, req)
	} else {
		resp, err = o.handleSideChannel(ctx, c, req, mode)
	}
	if err != nil {
		return o.recoverTurn(ctx, c.SessionID, mode, err), nil
	}
	return resp, nil
}

// loadOrCreate resolves the session, creating one when the id is empty
// or unknown. An unknown id must start a fresh session, not crash.
func (o *Orchestrator) loadOrCreate(ctx context.Context, req TurnRequest) (*session.ConversationContext, error) {
	if req.SessionID != "" {
		c, err := o.store.Load(ctx, req.SessionID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("load session %s: %w", req.SessionID, err)
		}
		logging.SessionDebug("session %s not found, starting a new one", req.SessionID)
	}
	c, err := o.store.Create(ctx, req.UserID, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return c, nil
}

// handleTask runs the full task pipeline: gate the token budget,
// extract and merge intent, persist the turn, then dispatch on phase.
func (o *Orchestrator) handleTask(ctx context.Context, c *session.ConversationContext, req TurnRequest) (*TurnResponse, error) {
	if refused := o.gateBudget(ctx, c, req); refused != nil {
		return refused, nil
	}

	extracted := o.extractor.Extract(ctx, req.Message, llmHistory(c.Messages), c.Intent)
	merged := intent.Merge(c.Intent, extracted)
	specs := intent.InferSpecs(merged, c.Specs)

	fresh, err := o.store.Update(ctx, c.SessionID, session.Update{
		Message: &session.Message{Role: session.RoleUser, Content: req.Message},
		Intent:  &merged,
		Specs:   &specs,
	})
	if err != nil {
		return nil, fmt.Errorf("persist user turn: %w", err)
	}

	working, usage := o.manageBudget(ctx, fresh)

	resp := &TurnResponse{
		SessionID:   fresh.SessionID,
		Mode:        ModeTask,
		Phase:       fresh.Phase,
		MissingInfo: fresh.MissingInfo,
		Usage:       &usage,
	}

	switch fresh.Phase {
	case session.PhaseDiscovery:
		err = o.discoveryTurn(ctx, fresh, working, req, resp)
	case session.PhaseRefinement:
		err = o.refinementTurn(ctx, fresh, resp)
	case session.PhaseExecution:
		err = o.executionTurn(ctx, fresh, resp)
	case session.PhaseDelivery:
		err = o.deliveryTurn(ctx, fresh, resp)
	default:
		err = fmt.Errorf("unknown phase %q", fresh.Phase)
	}
	if err != nil {
		return nil, &phaseFailure{phase: fresh.Phase, err: err}
	}
	return resp, nil
}

// gateBudget projects the incoming message against the token budget
// before any completion call goes out. An exceeded projection gets one
// chance at compression; if the message still does not fit, the turn is
// refused and nothing reaches the provider.
func (o *Orchestrator) gateBudget(ctx context.Context, c *session.ConversationContext, req TurnRequest) *TurnResponse {
	system := o.prompts.BuildJoined(c)
	check := o.tracker.CheckBudget(system, c.Messages, req.Message)
	if check.CanAddMessage {
		return nil
	}

	if result := o.compressor.Compress(ctx, c.Messages); result.Applied {
		check = o.tracker.CheckBudget(system, result.Messages, req.Message)
		if check.CanAddMessage {
			// manageBudget re-runs compression on the working copy
			// before any prompt is assembled.
			return nil
		}
	}

	logging.ContextDebug("refusing turn for session %s: projected %d tokens over budget",
		c.SessionID, -check.Projected.Remaining)
	o.usage.Set(c.SessionID, check.Projected)

	reply := "We've hit the size limit of this conversation, so I can't take that message on here. Start a fresh session and we can pick up from a clean slate."
	resp := &TurnResponse{
		SessionID:      c.SessionID,
		Reply:          reply,
		Mode:           ModeTask,
		Phase:          c.Phase,
		MissingInfo:    c.MissingInfo,
		NeedsUserInput: true,
		Usage:          &check.Projected,
	}
	if fresh, err := o.store.Update(ctx, c.SessionID, session.Update{
		Message: &session.Message{Role: session.RoleAssistant, Content: reply},
	}); err == nil {
		resp.Phase = fresh.Phase
		resp.MissingInfo = fresh.MissingInfo
	}
	return resp
}

// phaseFailure tags an error with the phase whose handler raised it, so
// recovery can report execution failures as such.
type phaseFailure struct {
	phase session.Phase
	err   error
}

func (e *phaseFailure) Error() string { return e.err.Error() }
func (e *phaseFailure) Unwrap() error { return e.err }

// manageBudget computes token usage for the working prompt and
// compresses the working history when thresholds fire. The durable
// record is never touched; only the list handed to the provider shrinks.
func (o *Orchestrator) manageBudget(ctx context.Context, c *session.ConversationContext) ([]session.Message, convctx.TokenUsage) {
	system := o.prompts.BuildJoined(c)
	working := c.Messages
	usage := o.tracker.CalculateUsage(system, working, "")

	if o.compressor.ShouldCompress(working, usage) {
		result := o.compressor.Compress(ctx, working)
		if result.Applied {
			working = result.Messages
			usage = o.tracker.CalculateUsage(system, working, "")
		}
	}

	o.usage.Set(c.SessionID, usage)
	return working, usage
}

// handleSideChannel answers supportive and direct-answer turns
// statelessly. The exchange is still recorded, but no intent or spec
// patches are applied and no plan is proposed.
func (o *Orchestrator) handleSideChannel(ctx context.Context, c *session.ConversationContext, req TurnRequest, mode Mode) (*TurnResponse, error) {
	fresh, err := o.store.Update(ctx, c.SessionID, session.Update{
		Message: &session.Message{Role: session.RoleUser, Content: req.Message},
	})
	if err != nil {
		return nil, fmt.Errorf("persist user turn: %w", err)
	}

	instruction := directInstruction
	fallback := "Happy to help with that. Could you say a bit more about what you'd like to know?"
	if mode == ModeSupportive {
		instruction = supportiveInstruction
		fallback = "That sounds genuinely frustrating. Take your time; we can pick this up whenever you're ready."
	}

	reply := o.respond(ctx, instruction, tailHistory(fresh.Messages, 8), fallback)

	fresh, err = o.store.Update(ctx, fresh.SessionID, session.Update{
		Message: &session.Message{
			Role:     session.RoleAssistant,
			Content:  reply,
			Metadata: map[string]interface{}{session.MetaMode: string(mode)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}

	return &TurnResponse{
		SessionID:      fresh.SessionID,
		Reply:          reply,
		Mode:           mode,
		Phase:          fresh.Phase,
		MissingInfo:    fresh.MissingInfo,
		NeedsUserInput: true,
	}, nil
}

// recoverTurn is the last-resort error path: log the failure, record it
// in session metadata, reset the phase to discovery, and hand the user a
// graceful apology matched to the error category.
func (o *Orchestrator) recoverTurn(ctx context.Context, sessionID string, mode Mode, cause error) *TurnResponse {
	classified := resilience.Classify(cause)
	logging.Get(logging.CategorySession).Errorw("turn failed, recovering",
		"session", sessionID, "category", classified.Category, "error", cause)

	um := resilience.MessageFor(classified.Category, o.language)
	reply := um.Message
	if um.Hint != "" {
		reply += " " + um.Hint
	}

	fresh, err := o.store.Update(ctx, sessionID, session.Update{
		Message: &session.Message{
			Role:     session.RoleAssistant,
			Content:  reply,
			Metadata: map[string]interface{}{session.MetaError: cause.Error()},
		},
		Metadata:   map[string]interface{}{session.MetaError: cause.Error()},
		ResetPhase: true,
	})

	resp := &TurnResponse{
		SessionID:      sessionID,
		Reply:          reply,
		Mode:           mode,
		Phase:          session.PhaseDiscovery,
		NeedsUserInput: true,
		Recovered:      true,
	}
	var pf *phaseFailure
	if errors.As(cause, &pf) && pf.phase == session.PhaseExecution {
		resp.ExecutionStatus = ExecutionFailed
	}
	if err == nil {
		resp.MissingInfo = fresh.MissingInfo
	}
	return resp
}
