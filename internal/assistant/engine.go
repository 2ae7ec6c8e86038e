// Package assistant runs the conversational turn pipeline: commands and
// free text are turned into a gated action, a guided flow or a dispatch,
// and the reply is appended to the conversation.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ashureev/teamhub/internal/command"
	"github.com/ashureev/teamhub/internal/dispatch"
	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/flow"
	"github.com/ashureev/teamhub/internal/history"
	"github.com/ashureev/teamhub/internal/intent"
	"github.com/ashureev/teamhub/internal/permission"
	"github.com/ashureev/teamhub/internal/render"
	"github.com/ashureev/teamhub/internal/suggest"
)

var (
	// ErrEmptyInput is returned for blank user input; nothing is recorded.
	ErrEmptyInput = errors.New("assistant: empty input")
	// ErrConversationDeleted is returned for a turn on a deleted conversation.
	ErrConversationDeleted = errors.New("assistant: conversation deleted")
)

// Analytics event names.
const (
	EventTurn             = "turn"
	EventCommand          = "command"
	EventFlowStarted      = "flow_started"
	EventFlowCompleted    = "flow_completed"
	EventFlowCancelled    = "flow_cancelled"
	EventPermissionDenied = "permission_denied"
	EventUnknownIntent    = "unknown_intent"
	EventDomainFailure    = "domain_failure"
)

// Dispatcher executes a gated intent.
type Dispatcher interface {
	Dispatch(ctx context.Context, in domain.Intent, actx domain.AssistantContext) domain.ActionResult
}

// Gate decides whether a role may run an action.
type Gate interface {
	Allowed(action domain.Action, role domain.Role) bool
}

// Engine wires the pipeline stages together. It holds no per-conversation
// state and is safe for concurrent use across conversations.
type Engine struct {
	classifier  *intent.Classifier
	commands    *command.Registry
	gate        Gate
	flows       *flow.Engine
	dispatcher  Dispatcher
	suggestions *suggest.Engine
	renderer    *render.Renderer
	history     *history.Store
	logger      *slog.Logger
	now         func() time.Time
	thinkDelay  time.Duration
	maxMessages int

	dispatchOpts []dispatch.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock shared by the classifier, the flows and message timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHistory persists conversations and analytics through h.
func WithHistory(h *history.Store) Option {
	return func(e *Engine) { e.history = h }
}

// WithThinkDelay delays every reply by d.
func WithThinkDelay(d time.Duration) Option {
	return func(e *Engine) { e.thinkDelay = d }
}

// WithDispatcher replaces the default dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithDispatchOptions configures the default dispatcher.
func WithDispatchOptions(opts ...dispatch.Option) Option {
	return func(e *Engine) { e.dispatchOpts = append(e.dispatchOpts, opts...) }
}

// WithGate replaces the role gate.
func WithGate(g Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithRenderer replaces the template renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithCommands replaces the command registry.
func WithCommands(r *command.Registry) Option {
	return func(e *Engine) { e.commands = r }
}

// WithMaxMessages bounds the in-memory transcript.
func WithMaxMessages(n int) Option {
	return func(e *Engine) { e.maxMessages = n }
}

// New builds an engine with the default tables.
func New(opts ...Option) *Engine {
	e := &Engine{
		gate:        permission.Gate{},
		logger:      slog.Default(),
		now:         time.Now,
		maxMessages: history.DefaultMaxMessages,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.renderer == nil {
		e.renderer = render.MustNew()
	}
	if e.commands == nil {
		e.commands = command.Default()
	}
	e.classifier = intent.New(intent.WithClock(e.now))
	e.flows = flow.NewEngine(flow.WithClock(e.now))
	if e.dispatcher == nil {
		dopts := append([]dispatch.Option{dispatch.WithLogger(e.logger)}, e.dispatchOpts...)
		e.dispatcher = dispatch.New(e.renderer, dopts...)
	}
	e.suggestions = suggest.New(e.gate, e.commands.Commands())
	return e
}

// Turn is the outcome of one user input.
type Turn struct {
	UserMessage domain.ChatMessage  `json:"userMessage"`
	Reply       domain.ChatMessage  `json:"reply"`
	Intent      domain.Intent       `json:"intent"`
	Result      domain.ActionResult `json:"result"`
	Suggestions []domain.Suggestion `json:"suggestions"`
	Flow        *flow.Status        `json:"activeFlow,omitempty"`
}

// HandleTurn processes text in conv. Turns on the same conversation are
// serialized; the reply is recorded before HandleTurn returns and
// persisted asynchronously.
func (e *Engine) HandleTurn(ctx context.Context, conv *Conversation, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyInput
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	if conv.deleted {
		return Turn{}, ErrConversationDeleted
	}

	start := e.now()
	userMsg := e.message(domain.MessageRoleUser, text, nil, false)
	conv.appendLocked(userMsg, e.maxMessages)

	t := e.safeProcess(ctx, conv, text)
	t.UserMessage = userMsg

	if e.thinkDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(e.thinkDelay):
		}
	}

	if fx := t.Result.SideEffects; fx != nil {
		if fx.ClearConversation {
			conv.clearLocked()
		}
		if fx.AdminMode != nil {
			conv.context.AdminMode = *fx.AdminMode
		}
	}

	t.Reply = e.message(domain.MessageRoleAssistant, t.Result.Message, t.Result.Attachment, isError(t.Result))
	conv.appendLocked(t.Reply, e.maxMessages)
	conv.updatedAt = e.now()
	if conv.title == history.DefaultTitle {
		conv.title = history.Title(conv.messages)
	}
	t.Flow = conv.flowStatusLocked()

	if len(t.Suggestions) == 0 {
		t.Suggestions = e.suggestions.Filter(conv.context, t.Result.FollowUpSuggestions)
	}
	if len(t.Suggestions) == 0 {
		t.Suggestions = e.suggestions.FollowUp(conv.lastCategory, conv.context)
	}

	e.logger.Info("assistant turn",
		"conversation_id", conv.id,
		"action", t.Intent.Action,
		"category", t.Intent.Category,
		"confidence", t.Intent.Confidence,
		"error_kind", t.Result.ErrorKind,
		"flow_active", t.Flow != nil,
		"duration_ms", e.now().Sub(start).Milliseconds(),
	)

	if e.history != nil {
		e.history.SaveAsync(conv.snapshotLocked())
		e.history.TrackAsync(EventTurn, map[string]string{
			"conversation_id": conv.id,
			"action":          string(t.Intent.Action),
			"category":        string(t.Intent.Category),
			"confidence":      strconv.FormatFloat(t.Intent.Confidence, 'f', 2, 64),
			"error_kind":      string(t.Result.ErrorKind),
		})
	}
	return t, nil
}

// safeProcess converts a panic anywhere in the pipeline into a domain failure reply.
func (e *Engine) safeProcess(ctx context.Context, conv *Conversation, text string) (t Turn) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recovered panic in assistant turn",
				"conversation_id", conv.id,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			e.track(EventDomainFailure, map[string]string{"conversation_id": conv.id, "reason": "panic"})
			t = Turn{
				Intent: domain.Intent{Category: domain.CategoryUnknown, Action: domain.ActionUnknown, RawText: text},
				Result: domain.Failed(domain.ErrorDomainFailure, e.renderer.Render(domain.ActionUnknown, render.VariantError, nil)),
			}
		}
	}()
	return e.process(ctx, conv, text)
}

func (e *Engine) process(ctx context.Context, conv *Conversation, text string) Turn {
	if conv.activeFlow != nil {
		if command.IsCommand(text) && !flow.IsCancel(text) {
			return e.commandDuringFlow(conv, text)
		}
		return e.continueFlow(ctx, conv, text)
	}
	if command.IsCommand(text) {
		return e.runCommand(ctx, conv, text)
	}

	in := e.classifier.Classify(text)
	if in.IsUnknown() {
		e.track(EventUnknownIntent, map[string]string{"conversation_id": conv.id, "text_length": strconv.Itoa(len(text))})
		return Turn{
			Intent:      in,
			Result:      domain.Failed(domain.ErrorUnknownIntent, e.renderer.Render(domain.ActionUnknown, render.VariantSuccess, nil)),
			Suggestions: e.suggestions.Suggestions(conv.context),
		}
	}
	return e.execute(ctx, conv, in, flow.RequiresFlow(in.Action))
}

// execute gates in, then starts its flow or dispatches it.
func (e *Engine) execute(ctx context.Context, conv *Conversation, in domain.Intent, startFlow bool) Turn {
	if !e.gate.Allowed(in.Action, conv.context.CurrentUserRole) {
		return e.denied(conv, in)
	}
	if flow.RequiresFlow(in.Action) {
		if startFlow {
			return e.startFlow(ctx, conv, in)
		}
		entities, err := e.flows.Prefill(in.Action, in.Entities)
		if err != nil {
			return e.invalidEntities(conv, in, err)
		}
		in.Entities = entities
	}
	return e.dispatch(ctx, conv, in)
}

// invalidEntities answers a direct action whose arguments a flow would
// have refused. Nothing is dispatched.
func (e *Engine) invalidEntities(conv *Conversation, in domain.Intent, err error) Turn {
	reason := err.Error()
	field := ""
	var verr *flow.ValidationError
	if errors.As(err, &verr) {
		reason = verr.Reason
		field = verr.Field
	}
	e.logger.Info("action arguments rejected",
		"conversation_id", conv.id,
		"action", in.Action,
		"field", field,
	)
	msg := e.renderer.Render(render.ActionFlow, render.VariantInvalid, map[string]string{"reason": reason})
	if field != "" {
		msg = flow.FieldLabel(field) + " : " + msg
	}
	return Turn{Intent: in, Result: domain.Failed(domain.ErrorValidation, msg)}
}

func (e *Engine) denied(conv *Conversation, in domain.Intent) Turn {
	e.logger.Info("action denied",
		"conversation_id", conv.id,
		"action", in.Action,
		"role", conv.context.CurrentUserRole,
	)
	e.track(EventPermissionDenied, map[string]string{
		"conversation_id": conv.id,
		"action":          string(in.Action),
		"role":            string(conv.context.CurrentUserRole),
	})
	return Turn{Intent: in, Result: permission.Denied()}
}

func (e *Engine) runCommand(ctx context.Context, conv *Conversation, text string) Turn {
	res := e.commands.Run(text, conv.context)
	e.track(EventCommand, map[string]string{
		"conversation_id": conv.id,
		"command":         res.Command,
		"not_found":       strconv.FormatBool(res.NotFound),
	})

	if !res.HasAction() {
		if res.Reply == nil {
			return Turn{Intent: res.Intent, Result: domain.Failed(domain.ErrorCommandNotFound, e.renderer.Render(domain.ActionUnknown, render.VariantSuccess, nil))}
		}
		return Turn{Intent: res.Intent, Result: *res.Reply}
	}

	if res.Reply != nil {
		if !e.gate.Allowed(res.Intent.Action, conv.context.CurrentUserRole) {
			return e.denied(conv, res.Intent)
		}
		conv.lastCategory = res.Intent.Category
		return Turn{Intent: res.Intent, Result: *res.Reply}
	}
	return e.execute(ctx, conv, res.Intent, res.StartFlow)
}

// commandDuringFlow never feeds a command to the active flow. Commands that
// only reply, such as /aide, answer and repeat the pending question; commands
// that would act are held back until the flow ends.
func (e *Engine) commandDuringFlow(conv *Conversation, text string) Turn {
	res := e.commands.Run(text, conv.context)
	e.track(EventCommand, map[string]string{
		"conversation_id": conv.id,
		"command":         res.Command,
		"not_found":       strconv.FormatBool(res.NotFound),
		"flow_action":     string(conv.activeFlow.Action),
	})
	prompt := flow.Prompt(conv.activeFlow)

	if res.Reply == nil {
		name, _ := command.Parse(text)
		held := prompt
		held.Success = false
		held.ErrorKind = domain.ErrorValidation
		held.Message = e.renderer.Render(render.ActionFlow, render.VariantBusy, map[string]string{"command": command.Prefix + name}) + " " + prompt.Message
		return Turn{Intent: res.Intent, Result: held}
	}
	if res.HasAction() && !e.gate.Allowed(res.Intent.Action, conv.context.CurrentUserRole) {
		return e.denied(conv, res.Intent)
	}

	out := *res.Reply
	out.Message += " " + e.renderer.Render(render.ActionFlow, render.VariantResumed, map[string]string{"prompt": prompt.Message})
	out.FollowUpSuggestions = prompt.FollowUpSuggestions
	return Turn{Intent: res.Intent, Result: out}
}

func (e *Engine) startFlow(ctx context.Context, conv *Conversation, in domain.Intent) Turn {
	f, err := e.flows.Start(in.Action, in.Entities)
	if err != nil {
		e.logger.Warn("flow start failed, dispatching directly", "action", in.Action, "error", err)
		return e.dispatch(ctx, conv, in)
	}
	conv.activeFlow = f
	conv.flowOrigin = in
	conv.lastCategory = in.Category

	e.track(EventFlowStarted, map[string]string{"conversation_id": conv.id, "action": string(in.Action), "flow_id": f.ID})

	res := flow.Prompt(f)
	if e.renderer.Has(in.Action, render.VariantFlowStart) {
		res.Message = e.renderer.Render(in.Action, render.VariantFlowStart, nil) + " " + res.Message
	}
	return Turn{Intent: in, Result: res}
}

func (e *Engine) continueFlow(ctx context.Context, conv *Conversation, text string) Turn {
	f := conv.activeFlow
	origin := conv.flowOrigin

	var out flow.Outcome
	var err error
	if flow.IsCancel(text) {
		out, err = e.flows.Cancel(f)
	} else {
		out, err = e.flows.Advance(f, text)
	}
	if err != nil {
		// Only reachable with a nil flow; drop the broken state.
		conv.activeFlow = nil
		e.logger.Warn("flow state lost", "conversation_id", conv.id, "error", err)
		return Turn{Intent: origin, Result: domain.Failed(domain.ErrorDomainFailure, e.renderer.Render(domain.ActionUnknown, render.VariantError, nil))}
	}

	switch out.State {
	case flow.StateCancelled:
		conv.activeFlow = nil
		conv.flowOrigin = domain.Intent{}
		e.track(EventFlowCancelled, map[string]string{
			"conversation_id": conv.id,
			"action":          string(f.Action),
			"step":            f.Current().Field,
		})
		variantOwner := f.Action
		if !e.renderer.Has(variantOwner, render.VariantCancelled) {
			variantOwner = render.ActionFlow
		}
		return Turn{
			Intent:      origin,
			Result:      domain.ActionResult{Success: true, Message: e.renderer.Render(variantOwner, render.VariantCancelled, nil)},
			Suggestions: e.suggestions.Suggestions(conv.context),
		}

	case flow.StateCompleted:
		conv.activeFlow = nil
		conv.flowOrigin = domain.Intent{}
		e.track(EventFlowCompleted, map[string]string{
			"conversation_id": conv.id,
			"action":          string(f.Action),
			"duration_ms":     strconv.FormatInt(e.now().Sub(f.StartedAt).Milliseconds(), 10),
		})

		in := origin
		in.Action = f.Action
		in.Confidence = 1
		in.Entities = make(map[string]string, len(origin.Entities)+len(out.Payload))
		for k, v := range origin.Entities {
			in.Entities[k] = v
		}
		for k, v := range out.Payload {
			in.Entities[k] = v
		}
		// The role may have changed while the flow was running.
		if !e.gate.Allowed(in.Action, conv.context.CurrentUserRole) {
			return e.denied(conv, in)
		}
		return e.dispatch(ctx, conv, in)

	default:
		res := flow.Prompt(f)
		if out.Invalid != nil {
			res.Success = false
			res.ErrorKind = domain.ErrorValidation
			res.Message = e.renderer.Render(render.ActionFlow, render.VariantInvalid, map[string]string{"reason": out.Invalid.Reason}) + " " + res.Message
		}
		return Turn{Intent: origin, Result: res}
	}
}

func (e *Engine) dispatch(ctx context.Context, conv *Conversation, in domain.Intent) Turn {
	res := e.dispatcher.Dispatch(ctx, in, conv.context)
	conv.lastCategory = in.Category

	if res.ErrorKind == domain.ErrorDomainFailure || res.ErrorKind == domain.ErrorTimeout {
		e.track(EventDomainFailure, map[string]string{
			"conversation_id": conv.id,
			"action":          string(in.Action),
			"error_kind":      string(res.ErrorKind),
		})
	}
	return Turn{Intent: in, Result: res}
}

func (e *Engine) track(event string, metadata map[string]string) {
	if e.history != nil {
		e.history.TrackAsync(event, metadata)
	}
}

func (e *Engine) message(role domain.MessageRole, content string, att domain.Attachment, isErr bool) domain.ChatMessage {
	return domain.ChatMessage{
		ID:         ulid.Make().String(),
		Role:       role,
		Content:    content,
		Timestamp:  e.now(),
		Attachment: att,
		IsError:    isErr,
	}
}

func isError(res domain.ActionResult) bool {
	switch res.ErrorKind {
	case "", domain.ErrorUnknownIntent:
		return false
	default:
		return true
	}
}

// Suggestions returns the chips for the user's current page.
func (e *Engine) Suggestions(actx domain.AssistantContext) []domain.Suggestion {
	return e.suggestions.Suggestions(actx)
}

// Autocomplete completes partial input.
func (e *Engine) Autocomplete(partial string, actx domain.AssistantContext) []domain.Suggestion {
	return e.suggestions.Autocomplete(partial, actx)
}

// Commands lists the registered commands.
func (e *Engine) Commands() []command.Command {
	return e.commands.Commands()
}

// Classify exposes the classifier for diagnostics.
func (e *Engine) Classify(text string) domain.Intent {
	return e.classifier.Classify(text)
}
