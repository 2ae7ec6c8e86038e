// Package history applies the conversation retention policy on top of a
// store.Repository and records usage analytics. Every operation is
// best-effort: failures are logged and degrade to empty results.
package history

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/store"
)

// Default retention limits.
const (
	DefaultMaxConversations = 20
	DefaultMaxMessages      = 100
	DefaultMaxEvents        = 1000

	// DefaultTitle names a conversation before the user has said anything.
	DefaultTitle = "Nouvelle conversation"

	titleRunes  = 40
	pruneEvery  = 32
	saveTimeout = 5 * time.Second
)

// Limits bounds what the store retains.
type Limits struct {
	Conversations int
	Messages      int
	Events        int
}

// Store persists conversations and events through a Repository.
type Store struct {
	repo   store.Repository
	writer *AsyncWriter
	limits Limits
	logger *slog.Logger
	now    func() time.Time

	appended atomic.Int64
}

// Option configures a Store.
type Option func(*Store)

// WithLimits overrides the retention limits. Non-positive values keep the defaults.
func WithLimits(l Limits) Option {
	return func(s *Store) {
		if l.Conversations > 0 {
			s.limits.Conversations = l.Conversations
		}
		if l.Messages > 0 {
			s.limits.Messages = l.Messages
		}
		if l.Events > 0 {
			s.limits.Events = l.Events
		}
	}
}

// WithWriter makes SaveAsync and TrackAsync go through w.
func WithWriter(w *AsyncWriter) Option {
	return func(s *Store) { s.writer = w }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over repo.
func New(repo store.Repository, opts ...Option) *Store {
	s := &Store{
		repo: repo,
		limits: Limits{
			Conversations: DefaultMaxConversations,
			Messages:      DefaultMaxMessages,
			Events:        DefaultMaxEvents,
		},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limits returns the effective retention limits.
func (s *Store) Limits() Limits { return s.limits }

// Save stores a snapshot of conv, keeping its last M messages, then evicts
// the owner's least recently updated conversations beyond N.
// It reports whether the write succeeded.
func (s *Store) Save(ctx context.Context, conv domain.SavedConversation) bool {
	if conv.ID == "" {
		s.logger.Warn("refusing to save conversation without id", "owner_id", conv.OwnerID)
		return false
	}
	s.prepare(&conv)

	if err := s.repo.UpsertConversation(ctx, &conv); err != nil {
		s.logger.Warn("failed to save conversation",
			"conversation_id", conv.ID,
			"owner_id", conv.OwnerID,
			"error", err,
		)
		return false
	}

	removed, err := s.repo.PruneConversations(ctx, conv.OwnerID, s.limits.Conversations)
	if err != nil {
		s.logger.Warn("failed to prune conversations", "owner_id", conv.OwnerID, "error", err)
	} else if removed > 0 {
		s.logger.Debug("evicted old conversations", "owner_id", conv.OwnerID, "count", removed)
	}
	return true
}

// SaveAsync schedules Save on the writer, or saves inline when there is none.
func (s *Store) SaveAsync(conv domain.SavedConversation) {
	messages := make([]domain.ChatMessage, len(conv.Messages))
	copy(messages, conv.Messages)
	conv.Messages = messages

	if s.writer == nil {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		s.Save(ctx, conv)
		return
	}
	s.writer.Replace("save:"+conv.ID, func(ctx context.Context) error {
		if !s.Save(ctx, conv) {
			return errSaveFailed
		}
		return nil
	})
}

var errSaveFailed = errors.New("save failed")

func (s *Store) prepare(conv *domain.SavedConversation) {
	conv.TrimMessages(s.limits.Messages)
	now := s.now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}
	if strings.TrimSpace(conv.Title) == "" || conv.Title == DefaultTitle {
		conv.Title = Title(conv.Messages)
	}
}

// Load returns the conversation, or false when it is missing or unreadable.
func (s *Store) Load(ctx context.Context, id string) (*domain.SavedConversation, bool) {
	conv, err := s.repo.GetConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("failed to load conversation", "conversation_id", id, "error", err)
		return nil, false
	}
	return conv, true
}

// List returns the owner's conversations, most recently updated first.
func (s *Store) List(ctx context.Context, ownerID string) []*domain.SavedConversation {
	convs, err := s.repo.ListConversations(ctx, ownerID)
	if err != nil {
		s.logger.Warn("failed to list conversations", "owner_id", ownerID, "error", err)
		return nil
	}
	if len(convs) > s.limits.Conversations {
		convs = convs[:s.limits.Conversations]
	}
	return convs
}

// Delete removes a conversation owned by ownerID. It reports whether one was removed.
func (s *Store) Delete(ctx context.Context, ownerID, id string) bool {
	conv, ok := s.Load(ctx, id)
	if !ok || conv.OwnerID != ownerID {
		return false
	}
	if err := s.repo.DeleteConversation(ctx, id); err != nil {
		s.logger.Warn("failed to delete conversation", "conversation_id", id, "error", err)
		return false
	}
	return true
}

// SetActive records the owner's active conversation. An empty id clears it.
func (s *Store) SetActive(ctx context.Context, ownerID, id string) {
	if err := s.repo.SetActiveConversation(ctx, ownerID, id); err != nil {
		s.logger.Warn("failed to set active conversation",
			"owner_id", ownerID,
			"conversation_id", id,
			"error", err,
		)
	}
}

// Active returns the owner's active conversation id, or "".
func (s *Store) Active(ctx context.Context, ownerID string) string {
	id, err := s.repo.GetActiveConversation(ctx, ownerID)
	if err != nil {
		s.logger.Warn("failed to read active conversation", "owner_id", ownerID, "error", err)
		return ""
	}
	return id
}

// Track appends an analytics event and periodically trims the log.
func (s *Store) Track(ctx context.Context, event string, metadata map[string]string) {
	ev := domain.Event{Event: event, Timestamp: s.now(), Metadata: metadata}
	if err := s.appendEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to track event", "event", event, "error", err)
	}
}

// TrackAsync schedules Track on the writer, or tracks inline when there is none.
func (s *Store) TrackAsync(event string, metadata map[string]string) {
	if s.writer == nil {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		s.Track(ctx, event, metadata)
		return
	}
	ev := domain.Event{Event: event, Timestamp: s.now(), Metadata: metadata}
	s.writer.EnqueueBestEffort("event:"+event, func(ctx context.Context) error {
		return s.appendEvent(ctx, ev)
	})
}

func (s *Store) appendEvent(ctx context.Context, ev domain.Event) error {
	if err := s.repo.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if s.appended.Add(1)%pruneEvery != 0 {
		return nil
	}
	if _, err := s.repo.PruneEvents(ctx, s.limits.Events); err != nil {
		s.logger.Warn("failed to prune events", "error", err)
	}
	return nil
}

// Events returns up to limit of the most recent events, oldest first.
func (s *Store) Events(ctx context.Context, limit int) []domain.Event {
	if limit <= 0 || limit > s.limits.Events {
		limit = s.limits.Events
	}
	events, err := s.repo.ListEvents(ctx, limit)
	if err != nil {
		s.logger.Warn("failed to list events", "error", err)
		return nil
	}
	return events
}

// Flush waits for pending asynchronous writes.
func (s *Store) Flush(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Flush(ctx)
}

// Ping checks the backing repository.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Title derives a conversation title from its first user message.
func Title(messages []domain.ChatMessage) string {
	for _, m := range messages {
		if m.Role != domain.MessageRoleUser {
			continue
		}
		text := strings.Join(strings.Fields(m.Content), " ")
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) <= titleRunes {
			return text
		}
		runes := []rune(text)
		return strings.TrimSpace(string(runes[:titleRunes])) + "…"
	}
	return DefaultTitle
}
