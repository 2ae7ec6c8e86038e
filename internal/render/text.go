package render

import (
	"fmt"
	"strings"

	"github.com/ashureev/teamhub/internal/domain"
)

// Text renders an attachment for a plain-text surface such as the CLI.
// A nil attachment renders as "".
func Text(a domain.Attachment) string {
	switch v := a.(type) {
	case nil:
		return ""
	case domain.ListAttachment:
		return listText(v)
	case domain.CardAttachment:
		return cardText(v)
	case domain.FormAttachment:
		return formText(v)
	case domain.ConfirmAttachment:
		return confirmText(v)
	case domain.StatsAttachment:
		return statsText(v)
	case domain.NavigationAttachment:
		return navigationText(v)
	default:
		return ""
	}
}

func listText(l domain.ListAttachment) string {
	var b strings.Builder
	if l.Title != "" {
		fmt.Fprintf(&b, "%s\n", l.Title)
	}
	if len(l.Items) == 0 {
		if l.EmptyText != "" {
			fmt.Fprintf(&b, "  %s\n", l.EmptyText)
		}
		return b.String()
	}
	for _, item := range l.Items {
		fmt.Fprintf(&b, "  • %s", item.Title)
		if item.Status != "" {
			fmt.Fprintf(&b, " [%s]", item.Status)
		}
		if item.Subtitle != "" {
			fmt.Fprintf(&b, " · %s", item.Subtitle)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func cardText(c domain.CardAttachment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "┌ %s\n", c.Title)
	if c.Subtitle != "" {
		fmt.Fprintf(&b, "│ %s\n", c.Subtitle)
	}
	for _, f := range c.Fields {
		fmt.Fprintf(&b, "│ %s : %s\n", f.Label, f.Value)
	}
	if c.Link != "" {
		fmt.Fprintf(&b, "└ %s\n", c.Link)
	}
	return b.String()
}

func formText(f domain.FormAttachment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%d/%d)", f.Step, f.Total)
	if !f.Required {
		b.WriteString(" facultatif")
	}
	b.WriteByte('\n')
	for i, o := range f.Options {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, o.Label)
	}
	return b.String()
}

func confirmText(c domain.ConfirmAttachment) string {
	var b strings.Builder
	for _, f := range c.Summary {
		fmt.Fprintf(&b, "  %s : %s\n", f.Label, f.Value)
	}
	fmt.Fprintf(&b, "[%s] / [%s]\n", c.ConfirmLabel, c.CancelLabel)
	return b.String()
}

func statsText(s domain.StatsAttachment) string {
	var b strings.Builder
	if s.Title != "" {
		fmt.Fprintf(&b, "%s\n", s.Title)
	}
	for _, st := range s.Stats {
		fmt.Fprintf(&b, "  %-24s %d\n", st.Label, st.Value)
	}
	return b.String()
}

func navigationText(n domain.NavigationAttachment) string {
	var b strings.Builder
	for _, l := range n.Links {
		fmt.Fprintf(&b, "  → %s (%s)\n", l.Label, l.Path)
	}
	return b.String()
}
