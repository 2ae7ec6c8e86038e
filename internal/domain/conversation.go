package domain

import "time"

// SavedConversation is a persisted transcript.
type SavedConversation struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"ownerId"`
	Title     string           `json:"title"`
	Messages  []ChatMessage    `json:"messages"`
	Context   AssistantContext `json:"context"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// TrimMessages keeps only the max most recent messages, preserving order.
func (c *SavedConversation) TrimMessages(maxMessages int) {
	if maxMessages <= 0 || len(c.Messages) <= maxMessages {
		return
	}
	kept := make([]ChatMessage, maxMessages)
	copy(kept, c.Messages[len(c.Messages)-maxMessages:])
	c.Messages = kept
}

// Event is one usage analytics record.
type Event struct {
	Event     string            `json:"event"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
