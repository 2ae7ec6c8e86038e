package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/teamhub/internal/assistant"
	"github.com/ashureev/teamhub/internal/dispatch"
	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/render"
)

const cliSessionID = "cli"

type chatOptions struct {
	role         string
	page         string
	group        string
	newConv      bool
	conversation string
}

func newChatCmd(opts *options) *cobra.Command {
	co := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant",
		Long: "Reads one message per line from stdin and prints the assistant's replies.\n" +
			"Resumes the active conversation unless --new or --conversation is given. End with Ctrl-D or \"exit\".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts, co)
		},
	}

	cmd.Flags().StringVarP(&co.role, "role", "r", string(domain.RoleOwner), "Team role: owner, admin, manager, collaborator or guest")
	cmd.Flags().StringVarP(&co.page, "page", "p", "/dashboard", "Current page of the hub")
	cmd.Flags().StringVar(&co.group, "group", "", "Current group id")
	cmd.Flags().BoolVar(&co.newConv, "new", false, "Start a new conversation")
	cmd.Flags().StringVarP(&co.conversation, "conversation", "c", "", "Resume the conversation with this id")
	return cmd
}

func runChat(cmd *cobra.Command, opts *options, co *chatOptions) (err error) {
	role := domain.ParseRole(co.role)
	if role == "" {
		return fmt.Errorf("unknown role %q", co.role)
	}

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.closeWith(cmd, &err)

	engine := assistant.New(
		assistant.WithLogger(s.logger),
		assistant.WithHistory(s.history),
		assistant.WithMaxMessages(s.cfg.History.MaxMessages),
		assistant.WithDispatchOptions(dispatch.WithTimeout(s.cfg.Assistant.ActionTimeout)),
	)
	sessions := assistant.NewSessions(s.history, assistant.WithSessionLogger(s.logger))

	ctx := cmd.Context()
	actx := domain.AssistantContext{
		CurrentPage:     co.page,
		CurrentGroupID:  co.group,
		UserID:          opts.user,
		CurrentUserRole: role,
	}

	var conv *assistant.Conversation
	switch {
	case co.conversation != "":
		var ok bool
		conv, ok = sessions.Open(ctx, opts.user, cliSessionID, co.conversation)
		if !ok {
			return fmt.Errorf("conversation %s not found", co.conversation)
		}
	case co.newConv:
		conv = sessions.Start(ctx, opts.user, cliSessionID, actx)
	default:
		conv = sessions.Current(ctx, opts.user, cliSessionID, actx)
	}
	conv.SetContext(actx)

	out := cmd.OutOrStdout()
	view := conv.View()
	fmt.Fprintf(out, "Conversation %s (%s)\n", view.ID, view.Title)
	for _, msg := range view.Messages {
		printMessage(out, msg)
	}
	printSuggestions(out, engine.Suggestions(actx))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" {
			break
		}

		turn, err := engine.HandleTurn(ctx, conv, line)
		if errors.Is(err, assistant.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}
		printMessage(out, turn.Reply)
		if turn.Result.NavigateTo != "" {
			actx = conv.Context()
			actx.CurrentPage = turn.Result.NavigateTo
			conv.SetContext(actx)
			fmt.Fprintf(out, "  [page: %s]\n", turn.Result.NavigateTo)
		}
		if fx := turn.Result.SideEffects; fx != nil && fx.Theme != "" {
			fmt.Fprintf(out, "  [theme: %s]\n", fx.Theme)
		}
		if turn.Flow != nil {
			fmt.Fprintf(out, "  [%s %d/%d]\n", turn.Flow.Action, turn.Flow.Step, turn.Flow.Total)
		}
		printSuggestions(out, turn.Suggestions)
	}
	return scanner.Err()
}

func printMessage(w io.Writer, msg domain.ChatMessage) {
	prefix := "assistant"
	if msg.Role == domain.MessageRoleUser {
		prefix = "vous"
	}
	if msg.IsError {
		prefix += " (!)"
	}
	fmt.Fprintf(w, "%s: %s\n", prefix, msg.Content)
	if msg.Attachment != nil {
		for _, line := range strings.Split(render.Text(msg.Attachment), "\n") {
			if line != "" {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
}

func printSuggestions(w io.Writer, suggestions []domain.Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	labels := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		labels = append(labels, s.Label)
	}
	fmt.Fprintf(w, "  suggestions: %s\n", strings.Join(labels, " | "))
}
