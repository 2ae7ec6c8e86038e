// Package flow runs the multi-turn data collection dialogues used by
// actions that need more than one answer.
package flow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/teamhub/internal/domain"
)

var (
	// ErrNoActiveFlow is returned when a reply or cancel arrives with no flow running.
	ErrNoActiveFlow = errors.New("flow: no active flow")
	// ErrFlowActive is returned when a second flow would start in a conversation.
	ErrFlowActive = errors.New("flow: a flow is already active")
	// ErrUnknownFlow is returned for actions outside the requires-flow set.
	ErrUnknownFlow = errors.New("flow: action has no flow")
)

// State of a flow after a reply.
type State string

// Flow states.
const (
	StateAwaiting  State = "awaiting"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// ActiveFlow is the in-progress collection for one conversation.
// CurrentStepIndex always points inside Steps.
type ActiveFlow struct {
	ID               string
	Action           domain.Action
	Steps            []Step
	CurrentStepIndex int
	Collected        map[string]string
	StartedAt        time.Time
}

// Current returns the step awaiting an answer.
func (f *ActiveFlow) Current() Step {
	return f.Steps[f.CurrentStepIndex]
}

// Status is the externally visible progress of a flow.
type Status struct {
	ID     string        `json:"id"`
	Action domain.Action `json:"action"`
	Step   int           `json:"step"`
	Total  int           `json:"total"`
	Field  string        `json:"field"`
	Label  string        `json:"label"`
}

// Status reports the 1-based position of the current step.
func (f *ActiveFlow) Status() Status {
	step := f.Current()
	return Status{
		ID:     f.ID,
		Action: f.Action,
		Step:   f.CurrentStepIndex + 1,
		Total:  len(f.Steps),
		Field:  step.Field,
		Label:  step.Label,
	}
}

// Outcome is the result of feeding one reply to a flow.
type Outcome struct {
	State   State
	Invalid *ValidationError
	// Payload holds every collected field once State is StateCompleted.
	Payload map[string]string
}

// Engine creates and advances flows.
type Engine struct {
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for StartedAt and date validation.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an engine using the wall clock and random UUIDs.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start instantiates the flow for action. Entities that pass their step's
// validation are collected up front and their steps skipped.
func (e *Engine) Start(action domain.Action, entities map[string]string) (*ActiveFlow, error) {
	def, ok := Definitions[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, action)
	}
	f := &ActiveFlow{
		ID:        e.newID(),
		Action:    action,
		Steps:     def.Steps,
		Collected: make(map[string]string),
		StartedAt: e.now(),
	}
	for _, step := range def.Steps {
		if step.Prefill == "" || step.Kind == KindConfirm {
			continue
		}
		raw := strings.TrimSpace(entities[step.Prefill])
		if raw == "" {
			continue
		}
		if value, err := e.accept(step, raw, f.Collected); err == nil && value != "" {
			f.Collected[step.Field] = value
		}
	}
	f.CurrentStepIndex = f.nextOpen(0)
	return f, nil
}

// Prefill checks the entities that feed action's steps with the same rules
// a flow applies to replies, for callers that dispatch without a flow. It
// returns a copy of entities holding canonical values, or a
// *ValidationError naming the first rejected field.
func (e *Engine) Prefill(action domain.Action, entities map[string]string) (map[string]string, error) {
	def, ok := Definitions[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, action)
	}
	out := make(map[string]string, len(entities))
	for k, v := range entities {
		out[k] = v
	}
	collected := make(map[string]string)
	for _, step := range def.Steps {
		if step.Prefill == "" || step.Kind == KindConfirm {
			continue
		}
		raw := strings.TrimSpace(entities[step.Prefill])
		if raw == "" {
			continue
		}
		value, err := e.accept(step, raw, collected)
		if err != nil {
			reason := err.Error()
			var verr *ValidationError
			if errors.As(err, &verr) {
				reason = verr.Reason
			}
			return nil, &ValidationError{Field: step.Field, Reason: reason}
		}
		collected[step.Field] = value
		out[step.Prefill] = value
	}
	return out, nil
}

// Advance validates reply against the current step. A rejected reply
// leaves CurrentStepIndex untouched.
func (e *Engine) Advance(f *ActiveFlow, reply string) (Outcome, error) {
	if f == nil {
		return Outcome{}, ErrNoActiveFlow
	}
	step := f.Current()
	reply = strings.TrimSpace(reply)

	if step.Kind == KindConfirm {
		switch {
		case inSet(affirmative, reply):
			return Outcome{State: StateCompleted, Payload: f.payload()}, nil
		case inSet(negative, reply):
			return Outcome{State: StateCancelled}, nil
		default:
			return rejected(step, "Répondez simplement par « oui » pour confirmer ou « non » pour annuler."), nil
		}
	}

	if reply == "" || inSet(skipWords, reply) {
		if step.Required {
			return rejected(step, "Cette information est obligatoire."), nil
		}
		delete(f.Collected, step.Field)
		f.CurrentStepIndex = f.nextOpen(f.CurrentStepIndex + 1)
		return Outcome{State: StateAwaiting}, nil
	}

	value, err := e.accept(step, reply, f.Collected)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return rejected(step, verr.Reason), nil
		}
		return rejected(step, err.Error()), nil
	}
	f.Collected[step.Field] = value
	f.CurrentStepIndex = f.nextOpen(f.CurrentStepIndex + 1)
	return Outcome{State: StateAwaiting}, nil
}

// Cancel abandons f. The dispatcher is never involved.
func (e *Engine) Cancel(f *ActiveFlow) (Outcome, error) {
	if f == nil {
		return Outcome{}, ErrNoActiveFlow
	}
	return Outcome{State: StateCancelled}, nil
}

func (e *Engine) accept(step Step, raw string, collected map[string]string) (string, error) {
	value := raw
	switch step.Kind {
	case KindSelect:
		opt, ok := resolveOption(raw, step.Options)
		if !ok {
			return "", invalid("Choisissez parmi : %s.", optionLabels(step.Options))
		}
		value = opt.Value
	case KindDate:
		iso, ok := ParseDate(raw, e.now())
		if !ok {
			return "", invalid("Je n'ai pas compris cette date. Essayez JJ/MM/AAAA ou « demain ».")
		}
		value = iso
	}
	if step.Validator != nil {
		return step.Validator(value, Env{Now: e.now(), Collected: collected})
	}
	return value, nil
}

// nextOpen returns the first step at or after from that is not yet
// answered. The confirm step is never prefilled, so the result is in range.
func (f *ActiveFlow) nextOpen(from int) int {
	for i := from; i < len(f.Steps); i++ {
		if _, done := f.Collected[f.Steps[i].Field]; !done {
			return i
		}
	}
	return len(f.Steps) - 1
}

func (f *ActiveFlow) payload() map[string]string {
	out := make(map[string]string, len(f.Collected))
	for k, v := range f.Collected {
		out[k] = v
	}
	return out
}

func rejected(step Step, reason string) Outcome {
	return Outcome{State: StateAwaiting, Invalid: &ValidationError{Field: step.Field, Reason: reason}}
}
