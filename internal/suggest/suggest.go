// Package suggest derives quick-action chips from the user's context.
// Nothing is stored: every call recomputes from the static catalog.
package suggest

import (
	"strings"

	"github.com/ashureev/teamhub/internal/command"
	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/normalize"
	"github.com/ashureev/teamhub/internal/sitemap"
)

// DefaultLimit caps the number of chips returned by one call.
const DefaultLimit = 6

// Checker reports whether a role may run an action.
type Checker interface {
	Allowed(action domain.Action, role domain.Role) bool
}

// Engine builds suggestions.
type Engine struct {
	gate     Checker
	commands []command.Command
	limit    int
}

// New returns an engine filtering through gate. Commands feed
// autocompletion of "/" input.
func New(gate Checker, commands []command.Command) *Engine {
	return &Engine{gate: gate, commands: commands, limit: DefaultLimit}
}

// Suggestions returns chips for the current page.
func (e *Engine) Suggestions(ctx domain.AssistantContext) []domain.Suggestion {
	key := ""
	if page, ok := sitemap.ForPath(ctx.CurrentPage); ok {
		key = page.Key
	}
	ids, ok := pageSuggestions[key]
	if !ok {
		ids = pageSuggestions[""]
	}
	list := ByID(ids...)
	if ctx.AdminMode {
		list = append(ByID(adminExtras...), list...)
	}
	return e.Filter(ctx, list)
}

// FollowUp returns chips related to the category of the last turn.
func (e *Engine) FollowUp(lastCategory domain.Category, ctx domain.AssistantContext) []domain.Suggestion {
	ids, ok := categoryFollowUps[lastCategory]
	if !ok {
		ids = defaultFollowUps
	}
	return e.Filter(ctx, ByID(ids...))
}

// Autocomplete matches partial against command names when it starts with
// the command prefix, else against catalog labels, queries and descriptions.
func (e *Engine) Autocomplete(partial string, ctx domain.AssistantContext) []domain.Suggestion {
	trimmed := strings.TrimSpace(partial)
	if trimmed == "" {
		return e.Suggestions(ctx)
	}
	if command.IsCommand(trimmed) {
		return e.Filter(ctx, e.commandMatches(trimmed))
	}

	needle := normalize.Text(trimmed)
	if needle == "" {
		return nil
	}
	var matches []domain.Suggestion
	for _, sg := range Catalog {
		if strings.Contains(normalize.Text(sg.Label), needle) ||
			strings.Contains(normalize.Text(sg.Query), needle) ||
			strings.Contains(normalize.Text(sg.Description), needle) {
			matches = append(matches, sg)
		}
	}
	return e.Filter(ctx, matches)
}

func (e *Engine) commandMatches(partial string) []domain.Suggestion {
	name, _ := command.Parse(partial)
	name = strings.ToLower(name)
	var out []domain.Suggestion
	for _, c := range e.commands {
		names := append([]string{c.Name}, c.Aliases...)
		matched := false
		for _, n := range names {
			if strings.HasPrefix(strings.ToLower(n), name) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		out = append(out, domain.Suggestion{
			ID:          "cmd-" + c.Name,
			Label:       command.Prefix + c.Name,
			Icon:        "terminal",
			Query:       command.Prefix + c.Name + " ",
			Category:    c.Category,
			Description: c.Description,
			Action:      c.Action,
		})
	}
	return out
}

// Filter drops chips the role may not use, removes duplicate ids and
// applies the limit. Chips without an action are always kept.
func (e *Engine) Filter(ctx domain.AssistantContext, list []domain.Suggestion) []domain.Suggestion {
	seen := make(map[string]struct{}, len(list))
	out := make([]domain.Suggestion, 0, min(len(list), e.limit))
	for _, sg := range list {
		if _, dup := seen[sg.ID]; dup {
			continue
		}
		if sg.Action != "" && e.gate != nil && !e.gate.Allowed(sg.Action, ctx.CurrentUserRole) {
			continue
		}
		seen[sg.ID] = struct{}{}
		out = append(out, sg)
		if len(out) == e.limit {
			break
		}
	}
	return out
}
