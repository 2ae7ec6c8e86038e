// Package render fills the assistant's message templates.
package render

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/teamhub/internal/domain"
)

// Variants used across the pipeline.
const (
	VariantSuccess       = "success"
	VariantEmpty         = "empty"
	VariantMissingTarget = "missing_target"
	VariantNamed         = "named"
	VariantFlowStart     = "flow_start"
	VariantCancelled     = "cancelled"
	VariantInvalid       = "invalid"
	VariantResumed       = "resumed"
	VariantBusy          = "busy"
	VariantError         = "error"
	VariantTimeout       = "timeout"
	VariantMissingData   = "missing_data"
)

// Pseudo-actions that own templates without being dispatchable.
const (
	ActionFlow    domain.Action = "flow"
	genericAction domain.Action = domain.ActionUnknown
)

//go:embed templates.yaml
var defaultTemplates []byte

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// Table maps action, then variant, to phrasings.
type Table map[string]map[string][]string

// Renderer picks and fills templates. It is safe for concurrent use.
type Renderer struct {
	table Table
	pick  func(n int) int
	err   error
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPicker replaces the uniform random choice, mostly for tests.
func WithPicker(pick func(n int) int) Option {
	return func(r *Renderer) { r.pick = pick }
}

// WithTemplates loads templates from YAML instead of the embedded table.
func WithTemplates(data []byte) Option {
	return func(r *Renderer) {
		var t Table
		if err := yaml.Unmarshal(data, &t); err != nil {
			r.err = fmt.Errorf("parse custom templates: %w", err)
			return
		}
		r.table = t
	}
}

// New parses the embedded template table.
func New(opts ...Option) (*Renderer, error) {
	var t Table
	if err := yaml.Unmarshal(defaultTemplates, &t); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r := &Renderer{table: t, pick: rand.IntN}
	for _, opt := range opts {
		opt(r)
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(r.table[string(genericAction)][VariantSuccess]) == 0 {
		return nil, fmt.Errorf("templates: missing %s/%s fallback", genericAction, VariantSuccess)
	}
	return r, nil
}

// MustNew is New for static tables known to be valid.
func MustNew(opts ...Option) *Renderer {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Render returns a filled phrasing for (action, variant), falling back to
// the action's success variant and then to the generic unknown template.
func (r *Renderer) Render(action domain.Action, variant string, data map[string]string) string {
	return fill(r.choose(r.lookup(action, variant)), data)
}

// Has reports whether (action, variant) exists without fallback.
func (r *Renderer) Has(action domain.Action, variant string) bool {
	return len(r.table[string(action)][variant]) > 0
}

// Variants returns every phrasing of (action, variant) after fallback.
func (r *Renderer) Variants(action domain.Action, variant string) []string {
	return r.lookup(action, variant)
}

func (r *Renderer) lookup(action domain.Action, variant string) []string {
	if phrasings := r.table[string(action)][variant]; len(phrasings) > 0 {
		return phrasings
	}
	if phrasings := r.table[string(action)][VariantSuccess]; len(phrasings) > 0 {
		return phrasings
	}
	return r.table[string(genericAction)][VariantSuccess]
}

func (r *Renderer) choose(phrasings []string) string {
	if len(phrasings) == 1 {
		return phrasings[0]
	}
	i := r.pick(len(phrasings))
	if i < 0 || i >= len(phrasings) {
		i = 0
	}
	return phrasings[i]
}

func fill(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := data[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}
