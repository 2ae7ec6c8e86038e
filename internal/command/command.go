// Package command interprets "/name args" shortcuts without going through
// the free-text classifier.
package command

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ashureev/teamhub/internal/domain"
)

// Prefix marks a line as a command.
const Prefix = "/"

// Handler turns the argument text of a command into a Result. Handlers are
// total: empty args produce a usage reply, never a panic.
type Handler func(args string, ctx domain.AssistantContext) Result

// Command is one registry entry.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Category    domain.Category
	Action      domain.Action
	Handler     Handler
}

// Result is what a command produced.
//
// When Intent.Action is set the caller gates it and either starts a flow
// (StartFlow) or dispatches it directly. Reply, when set, is returned to the
// user as is.
type Result struct {
	Command   string
	Intent    domain.Intent
	StartFlow bool
	Reply     *domain.ActionResult
	NotFound  bool
}

// HasAction reports whether the result carries an action to execute.
func (r Result) HasAction() bool {
	return r.Intent.Action != "" && r.Intent.Action != domain.ActionUnknown
}

// Registry resolves command names and aliases case-insensitively.
type Registry struct {
	commands []Command
	index    map[string]int
}

// NewRegistry indexes commands. A name or alias registered twice is a
// programming error and panics.
func NewRegistry(commands []Command) *Registry {
	r := &Registry{commands: commands, index: make(map[string]int)}
	for i, c := range commands {
		for _, name := range append([]string{c.Name}, c.Aliases...) {
			key := strings.ToLower(name)
			if prev, dup := r.index[key]; dup {
				panic(fmt.Sprintf("command: %q registered by both %q and %q", key, commands[prev].Name, c.Name))
			}
			r.index[key] = i
		}
	}
	return r
}

// IsCommand reports whether text, once trimmed, starts with Prefix.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), Prefix)
}

// Parse splits "/name rest of line" into name and trimmed args.
func Parse(text string) (name, args string) {
	body := strings.TrimPrefix(strings.TrimSpace(text), Prefix)
	idx := strings.IndexFunc(body, unicode.IsSpace)
	if idx < 0 {
		return body, ""
	}
	return body[:idx], strings.TrimSpace(body[idx:])
}

// Find looks a command up by primary name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	i, ok := r.index[strings.ToLower(strings.TrimPrefix(name, Prefix))]
	if !ok {
		return Command{}, false
	}
	return r.commands[i], true
}

// Commands returns the registry sorted by name.
func (r *Registry) Commands() []Command {
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the named command. Unknown names yield a NotFound result
// with a help suggestion.
func (r *Registry) Execute(name, args string, ctx domain.AssistantContext) Result {
	cmd, ok := r.Find(name)
	if !ok {
		reply := notFound(name)
		return Result{Command: name, NotFound: true, Reply: &reply}
	}
	res := cmd.Handler(strings.TrimSpace(args), ctx)
	res.Command = cmd.Name
	if res.HasAction() {
		if res.Intent.Category == "" {
			res.Intent.Category = cmd.Category
		}
		if res.Intent.Entities == nil {
			res.Intent.Entities = map[string]string{}
		}
		res.Intent.Confidence = 1
		res.Intent.RawText = strings.TrimSpace(Prefix + name + " " + args)
	}
	return res
}

// Run parses and executes a full command line.
func (r *Registry) Run(text string, ctx domain.AssistantContext) Result {
	name, args := Parse(text)
	return r.Execute(name, args, ctx)
}

// HelpSuggestion points at the help command.
func HelpSuggestion() domain.Suggestion {
	return domain.Suggestion{
		ID:       "cmd-aide",
		Label:    "Voir les commandes",
		Icon:     "help-circle",
		Query:    Prefix + "aide",
		Category: domain.CategoryHelp,
	}
}

func notFound(name string) domain.ActionResult {
	res := domain.Failed(domain.ErrorCommandNotFound,
		fmt.Sprintf("Je ne connais pas la commande %s%s. Tapez %saide pour voir les commandes disponibles.", Prefix, name, Prefix))
	res.FollowUpSuggestions = []domain.Suggestion{HelpSuggestion()}
	return res
}

func usage(cmd string, usageText string) Result {
	reply := domain.Failed(domain.ErrorValidation, "Utilisation : "+usageText)
	reply.FollowUpSuggestions = []domain.Suggestion{HelpSuggestion()}
	return Result{Command: cmd, Reply: &reply}
}

func intentResult(action domain.Action, entities map[string]string) Result {
	return Result{Intent: domain.Intent{Action: action, Entities: entities}}
}
