package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/teamhub/internal/domain"
)

func newHistoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect saved conversations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List conversations, most recent first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runHistoryList(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "show <conversation-id>",
			Short: "Print a conversation transcript",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runHistoryShow(cmd, opts, args[0])
			},
		},
		&cobra.Command{
			Use:   "rm <conversation-id>",
			Short: "Delete a conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runHistoryRm(cmd, opts, args[0])
			},
		},
	)
	return cmd
}

type listedConversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func runHistoryList(cmd *cobra.Command, opts *options) (err error) {
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.closeWith(cmd, &err)

	ctx := cmd.Context()
	active := s.history.Active(ctx, opts.user)
	out := []listedConversation{}
	for _, c := range s.history.List(ctx, opts.user) {
		out = append(out, listedConversation{
			ID:           c.ID,
			Title:        c.Title,
			MessageCount: len(c.Messages),
			Active:       c.ID == active,
			UpdatedAt:    c.UpdatedAt,
		})
	}

	if opts.format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	if len(out) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no conversations")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tUPDATED\tMESSAGES\tTITLE")
	for _, c := range out {
		marker := ""
		if c.Active {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", marker, c.ID, c.UpdatedAt.Local().Format("2006-01-02 15:04"), c.MessageCount, c.Title)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, opts *options, id string) (err error) {
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.closeWith(cmd, &err)

	conv, ok := s.history.Load(cmd.Context(), id)
	if !ok || conv.OwnerID != opts.user {
		return fmt.Errorf("conversation %s not found", id)
	}

	if opts.format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), conv)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n%s\n\n", conv.Title, conv.ID)
	for _, msg := range conv.Messages {
		fmt.Fprintf(out, "[%s] ", msg.Timestamp.Local().Format("15:04:05"))
		printMessage(out, msg)
	}
	return nil
}

func runHistoryRm(cmd *cobra.Command, opts *options, id string) (err error) {
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.closeWith(cmd, &err)

	if !s.history.Delete(cmd.Context(), opts.user, id) {
		return fmt.Errorf("conversation %s not found", id)
	}
	if opts.format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"ok": true, "id": id})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	return nil
}

func newEventsCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print recent analytics events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.closeWith(cmd, &err)

			events := s.history.Events(cmd.Context(), limit)
			if events == nil {
				events = []domain.Event{}
			}
			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), events)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, ev := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ev.Timestamp.Local().Format(time.RFC3339), ev.Event, formatMetadata(ev.Metadata))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Max events")
	return cmd
}

func formatMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+meta[k])
	}
	return strings.Join(pairs, " ")
}
