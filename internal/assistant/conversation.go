package assistant

import (
	"sync"
	"time"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/flow"
	"github.com/ashureev/teamhub/internal/history"
)

// Conversation is one transcript with its context and optional active flow.
// Its mutex serializes turns: a turn holds it from input to reply.
type Conversation struct {
	mu sync.Mutex

	id        string
	ownerID   string
	title     string
	messages  []domain.ChatMessage
	context   domain.AssistantContext
	createdAt time.Time
	updatedAt time.Time

	activeFlow   *flow.ActiveFlow
	flowOrigin   domain.Intent
	lastCategory domain.Category

	// deleted is set once under mu; later turns are refused.
	deleted bool
}

// NewConversation starts an empty conversation.
func NewConversation(id, ownerID string, actx domain.AssistantContext, now time.Time) *Conversation {
	return &Conversation{
		id:        id,
		ownerID:   ownerID,
		title:     history.DefaultTitle,
		context:   actx,
		createdAt: now,
		updatedAt: now,
	}
}

// FromSaved rebuilds a conversation from its persisted form. Flows are not
// persisted, so a restored conversation never has one running.
func FromSaved(saved *domain.SavedConversation) *Conversation {
	messages := make([]domain.ChatMessage, len(saved.Messages))
	copy(messages, saved.Messages)
	return &Conversation{
		id:        saved.ID,
		ownerID:   saved.OwnerID,
		title:     saved.Title,
		messages:  messages,
		context:   saved.Context,
		createdAt: saved.CreatedAt,
		updatedAt: saved.UpdatedAt,
	}
}

// ID returns the conversation id.
func (c *Conversation) ID() string { return c.id }

// OwnerID returns the id of the user owning the conversation.
func (c *Conversation) OwnerID() string { return c.ownerID }

// SetContext replaces the host context. Missing identity fields keep their
// previous values so that partial pushes do not log the user out.
func (c *Conversation) SetContext(actx domain.AssistantContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if actx.UserID == "" {
		actx.UserID = c.context.UserID
	}
	c.context = actx
}

// Context returns the current host context.
func (c *Conversation) Context() domain.AssistantContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.context
}

// FlowStatus reports the running flow, or nil.
func (c *Conversation) FlowStatus() *flow.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flowStatusLocked()
}

func (c *Conversation) flowStatusLocked() *flow.Status {
	if c.activeFlow == nil {
		return nil
	}
	st := c.activeFlow.Status()
	return &st
}

// Snapshot returns the persisted form of the conversation.
func (c *Conversation) Snapshot() domain.SavedConversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() domain.SavedConversation {
	messages := make([]domain.ChatMessage, len(c.messages))
	copy(messages, c.messages)
	return domain.SavedConversation{
		ID:        c.id,
		OwnerID:   c.ownerID,
		Title:     c.title,
		Messages:  messages,
		Context:   c.context,
		CreatedAt: c.createdAt,
		UpdatedAt: c.updatedAt,
	}
}

// View is the conversation as shown to the host.
type View struct {
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Messages  []domain.ChatMessage    `json:"messages"`
	Context   domain.AssistantContext `json:"context"`
	Flow      *flow.Status            `json:"activeFlow,omitempty"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// View returns a copy of the conversation for display.
func (c *Conversation) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snapshotLocked()
	return View{
		ID:        snap.ID,
		Title:     snap.Title,
		Messages:  snap.Messages,
		Context:   snap.Context,
		Flow:      c.flowStatusLocked(),
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
}

func (c *Conversation) appendLocked(msg domain.ChatMessage, maxMessages int) {
	c.messages = append(c.messages, msg)
	if maxMessages > 0 && len(c.messages) > maxMessages {
		kept := make([]domain.ChatMessage, maxMessages)
		copy(kept, c.messages[len(c.messages)-maxMessages:])
		c.messages = kept
	}
}

func (c *Conversation) clearLocked() {
	c.messages = nil
	c.activeFlow = nil
	c.flowOrigin = domain.Intent{}
	c.title = history.DefaultTitle
}
