// Package intent classifies free text into an intent using a weighted
// keyword table, a verb table and regex entity rules.
package intent

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/normalize"
)

const (
	unmatchedConfidence = 0.1
	categoryBoost       = 0.1
	verbBoost           = 0.05
)

// Classifier is safe for concurrent use once built.
type Classifier struct {
	keywords []Keyword
	verbs    []verbWord
	entities extractor
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock sets the clock used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.entities.now = now
		}
	}
}

// WithKeywords replaces the default keyword table.
func WithKeywords(keywords []Keyword) Option {
	return func(c *Classifier) {
		c.keywords = keywords
	}
}

// New builds a classifier, normalizing every table phrase once.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		keywords: DefaultKeywords,
		verbs:    verbWords,
		entities: extractor{now: time.Now},
	}
	for _, opt := range opts {
		opt(c)
	}

	keywords := make([]Keyword, 0, len(c.keywords))
	for _, k := range c.keywords {
		k.Phrase = normalize.Text(k.Phrase)
		if k.Phrase == "" {
			continue
		}
		keywords = append(keywords, k)
	}
	c.keywords = keywords

	verbs := make([]verbWord, len(c.verbs))
	for i, v := range c.verbs {
		verbs[i] = verbWord{phrase: normalize.Text(v.phrase), verb: v.verb}
	}
	c.verbs = verbs
	return c
}

// Classify never fails: unmatched input yields the unknown intent.
func (c *Classifier) Classify(raw string) domain.Intent {
	norm := normalize.Text(raw)
	result := domain.Intent{
		Category: domain.CategoryUnknown,
		Action:   domain.ActionUnknown,
		Entities: map[string]string{},
		RawText:  raw,
	}
	if utf8.RuneCountInString(norm) < 2 {
		return result
	}

	matches := c.match(norm)
	if len(matches) == 0 {
		result.Confidence = unmatchedConfidence
		return result
	}

	top := matches[0]
	result.Category = top.Category
	result.Action = top.Action

	verb, hasVerb := c.detectVerb(norm, top.Category)
	if hasVerb {
		if action, ok := verbActions[top.Category][verb]; ok {
			result.Action = action
		}
	}

	confidence := clamp(top.Weight)
	agreeing := 0
	for _, m := range matches {
		if m.Category == top.Category {
			agreeing++
		}
	}
	if agreeing >= 2 {
		confidence = clamp(confidence + categoryBoost)
	}
	if hasVerb {
		confidence = clamp(confidence + verbBoost)
	}
	result.Confidence = math.Round(confidence*100) / 100

	result.Entities = c.entities.extract(raw, norm, result.Category, result.Action)
	return result
}

// Matches returns every keyword found in the normalized text, best first.
func (c *Classifier) Matches(raw string) []Keyword {
	return c.match(normalize.Text(raw))
}

func (c *Classifier) match(norm string) []Keyword {
	var matches []Keyword
	for _, k := range c.keywords {
		if strings.Contains(norm, k.Phrase) {
			matches = append(matches, k)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Weight != matches[j].Weight {
			return matches[i].Weight > matches[j].Weight
		}
		return len(matches[i].Phrase) > len(matches[j].Phrase)
	})
	return matches
}

// detectVerb reports whether any verb occurs. The returned verb is the
// earliest one that maps to an action in category, falling back to the
// earliest verb overall.
func (c *Classifier) detectVerb(norm string, category domain.Category) (Verb, bool) {
	type hit struct {
		pos  int
		verb Verb
	}
	var hits []hit
	for _, v := range c.verbs {
		if pos := normalize.IndexWord(norm, v.phrase); pos >= 0 {
			hits = append(hits, hit{pos: pos, verb: v.verb})
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	for _, h := range hits {
		if _, ok := verbActions[category][h.verb]; ok {
			return h.verb, true
		}
	}
	return hits[0].verb, true
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
