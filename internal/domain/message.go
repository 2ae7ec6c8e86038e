package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageRole identifies the author of a chat message.
type MessageRole string

// Message authors.
const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ChatMessage is one entry of a conversation transcript.
type ChatMessage struct {
	ID         string      `json:"id"`
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	Attachment Attachment  `json:"-"`
	IsError    bool        `json:"isError,omitempty"`
}

type chatMessageJSON struct {
	ID         string          `json:"id"`
	Role       MessageRole     `json:"role"`
	Content    string          `json:"content"`
	Timestamp  time.Time       `json:"timestamp"`
	Attachment json.RawMessage `json:"attachment,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

// MarshalJSON encodes the attachment as a tagged envelope.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	out := chatMessageJSON{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		IsError:   m.IsError,
	}
	if m.Attachment != nil {
		raw, err := MarshalAttachment(m.Attachment)
		if err != nil {
			return nil, err
		}
		out.Attachment = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a message and its tagged attachment.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var in chatMessageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = ChatMessage{
		ID:        in.ID,
		Role:      in.Role,
		Content:   in.Content,
		Timestamp: in.Timestamp,
		IsError:   in.IsError,
	}
	if len(in.Attachment) > 0 && string(in.Attachment) != "null" {
		att, err := UnmarshalAttachment(in.Attachment)
		if err != nil {
			return err
		}
		m.Attachment = att
	}
	return nil
}

// AttachmentKind tags the attachment variants.
type AttachmentKind string

// Attachment kinds.
const (
	AttachmentList       AttachmentKind = "list"
	AttachmentCard       AttachmentKind = "card"
	AttachmentForm       AttachmentKind = "form"
	AttachmentConfirm    AttachmentKind = "confirm"
	AttachmentStats      AttachmentKind = "stats"
	AttachmentNavigation AttachmentKind = "navigationLinks"
)

// Attachment is the rich payload optionally carried by a message.
// Only the variants declared in this package implement it.
type Attachment interface {
	Kind() AttachmentKind
	isAttachment()
}

// ListItem is one row of a list attachment.
type ListItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Status   string `json:"status,omitempty"`
	Link     string `json:"link,omitempty"`
}

// ListAttachment shows a collection of records.
type ListAttachment struct {
	Title     string     `json:"title"`
	Items     []ListItem `json:"items"`
	EmptyText string     `json:"emptyText,omitempty"`
}

// Field is a label/value pair.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CardAttachment shows a single record.
type CardAttachment struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
	Link     string  `json:"link,omitempty"`
}

// Option is one choice of a select input.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormAttachment asks for the value of one flow step.
type FormAttachment struct {
	Action    Action   `json:"action"`
	Field     string   `json:"field"`
	Label     string   `json:"label"`
	InputKind string   `json:"inputKind"`
	Options   []Option `json:"options,omitempty"`
	Required  bool     `json:"required"`
	Step      int      `json:"step"`
	Total     int      `json:"total"`
}

// ConfirmAttachment asks the user to confirm collected values.
type ConfirmAttachment struct {
	Action       Action  `json:"action"`
	Summary      []Field `json:"summary"`
	ConfirmLabel string  `json:"confirmLabel"`
	CancelLabel  string  `json:"cancelLabel"`
}

// Stat is one figure of a stats attachment.
type Stat struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Icon  string `json:"icon,omitempty"`
}

// StatsAttachment shows aggregate figures.
type StatsAttachment struct {
	Title string `json:"title"`
	Stats []Stat `json:"stats"`
}

// NavLink is a page the user can jump to.
type NavLink struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// NavigationAttachment offers a set of destinations.
type NavigationAttachment struct {
	Links []NavLink `json:"links"`
}

func (ListAttachment) Kind() AttachmentKind       { return AttachmentList }
func (CardAttachment) Kind() AttachmentKind       { return AttachmentCard }
func (FormAttachment) Kind() AttachmentKind       { return AttachmentForm }
func (ConfirmAttachment) Kind() AttachmentKind    { return AttachmentConfirm }
func (StatsAttachment) Kind() AttachmentKind      { return AttachmentStats }
func (NavigationAttachment) Kind() AttachmentKind { return AttachmentNavigation }

func (ListAttachment) isAttachment()       {}
func (CardAttachment) isAttachment()       {}
func (FormAttachment) isAttachment()       {}
func (ConfirmAttachment) isAttachment()    {}
func (StatsAttachment) isAttachment()      {}
func (NavigationAttachment) isAttachment() {}

type attachmentEnvelope struct {
	Kind AttachmentKind  `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalAttachment encodes an attachment as {"kind": ..., "data": ...}.
func MarshalAttachment(a Attachment) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal %s attachment: %w", a.Kind(), err)
	}
	return json.Marshal(attachmentEnvelope{Kind: a.Kind(), Data: data})
}

// UnmarshalAttachment decodes an envelope produced by MarshalAttachment.
func UnmarshalAttachment(raw []byte) (Attachment, error) {
	var env attachmentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode attachment envelope: %w", err)
	}
	switch env.Kind {
	case AttachmentList:
		return decodeAttachment[ListAttachment](env.Data)
	case AttachmentCard:
		return decodeAttachment[CardAttachment](env.Data)
	case AttachmentForm:
		return decodeAttachment[FormAttachment](env.Data)
	case AttachmentConfirm:
		return decodeAttachment[ConfirmAttachment](env.Data)
	case AttachmentStats:
		return decodeAttachment[StatsAttachment](env.Data)
	case AttachmentNavigation:
		return decodeAttachment[NavigationAttachment](env.Data)
	default:
		return nil, fmt.Errorf("unknown attachment kind %q", env.Kind)
	}
}

func decodeAttachment[T Attachment](data []byte) (Attachment, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode attachment data: %w", err)
	}
	return v, nil
}
