package assistant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/history"
)

// DefaultIdleTTL is how long an untouched conversation stays in memory.
const DefaultIdleTTL = 30 * time.Minute

const sweepInterval = time.Minute

type cached struct {
	conv     *Conversation
	lastUsed time.Time
}

// Sessions keeps the live conversations of every user and tab. Each
// (user, tab session) pair is bound to one conversation; tabs bound to the
// same conversation share one *Conversation and therefore one turn lock.
type Sessions struct {
	mu            sync.Mutex
	conversations map[string]*cached
	bindings      map[string]map[string]string

	history *history.Store
	ttl     time.Duration
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithIdleTTL sets the in-memory eviction delay.
func WithIdleTTL(ttl time.Duration) SessionsOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSessionClock sets the time source.
func WithSessionClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) { s.now = now }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *slog.Logger) SessionsOption {
	return func(s *Sessions) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSessions creates a registry. hist may be nil, in which case nothing
// survives eviction.
func NewSessions(hist *history.Store, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		conversations: make(map[string]*cached),
		bindings:      make(map[string]map[string]string),
		history:       hist,
		ttl:           DefaultIdleTTL,
		now:           time.Now,
		newID:         uuid.NewString,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the conversation bound to the user's tab. An unbound tab
// resumes the user's active conversation, or starts a new one.
func (s *Sessions) Current(ctx context.Context, userID, sessionID string, actx domain.AssistantContext) *Conversation {
	s.mu.Lock()
	if id, ok := s.bindings[userID][sessionID]; ok {
		if c, ok := s.conversations[id]; ok {
			c.lastUsed = s.now()
			s.mu.Unlock()
			return c.conv
		}
	}
	s.mu.Unlock()

	if s.history != nil {
		if id := s.history.Active(ctx, userID); id != "" {
			if conv, ok := s.Open(ctx, userID, sessionID, id); ok {
				return conv
			}
		}
	}
	return s.Start(ctx, userID, sessionID, actx)
}

// Start binds the tab to a fresh conversation and makes it the user's active one.
func (s *Sessions) Start(ctx context.Context, userID, sessionID string, actx domain.AssistantContext) *Conversation {
	if actx.UserID == "" {
		actx.UserID = userID
	}
	conv := NewConversation(s.newID(), userID, actx, s.now())

	s.mu.Lock()
	s.conversations[conv.id] = &cached{conv: conv, lastUsed: s.now()}
	s.bindLocked(userID, sessionID, conv.id)
	s.mu.Unlock()

	if s.history != nil {
		s.history.SetActive(ctx, userID, conv.id)
	}
	s.logger.Info("conversation started", "user_id", userID, "session_id", sessionID, "conversation_id", conv.id)
	return conv
}

// Open binds the tab to an existing conversation of the user. It reports
// false when the conversation does not exist or belongs to someone else.
func (s *Sessions) Open(ctx context.Context, userID, sessionID, conversationID string) (*Conversation, bool) {
	s.mu.Lock()
	if c, ok := s.conversations[conversationID]; ok {
		if c.conv.ownerID != userID {
			s.mu.Unlock()
			return nil, false
		}
		c.lastUsed = s.now()
		s.bindLocked(userID, sessionID, conversationID)
		s.mu.Unlock()
		if s.history != nil {
			s.history.SetActive(ctx, userID, conversationID)
		}
		return c.conv, true
	}
	s.mu.Unlock()

	if s.history == nil {
		return nil, false
	}
	saved, ok := s.history.Load(ctx, conversationID)
	if !ok || saved.OwnerID != userID {
		return nil, false
	}

	s.mu.Lock()
	// Another tab may have loaded it meanwhile.
	c, ok := s.conversations[conversationID]
	if !ok {
		c = &cached{conv: FromSaved(saved)}
		s.conversations[conversationID] = c
	}
	c.lastUsed = s.now()
	s.bindLocked(userID, sessionID, conversationID)
	s.mu.Unlock()

	s.history.SetActive(ctx, userID, conversationID)
	return c.conv, true
}

// Forget drops a conversation from memory and unbinds its tabs.
func (s *Sessions) Forget(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(conversationID)
}

// Delete removes one of the user's conversations from memory and history.
// It waits for an in-flight turn and for queued saves, and marks the
// conversation deleted so a caller still holding it cannot save it again.
func (s *Sessions) Delete(ctx context.Context, userID, conversationID string) bool {
	s.mu.Lock()
	c, inMemory := s.conversations[conversationID]
	if inMemory && c.conv.ownerID != userID {
		s.mu.Unlock()
		return false
	}
	if inMemory {
		s.evictLocked(conversationID)
	}
	s.mu.Unlock()

	if inMemory {
		c.conv.mu.Lock()
		defer c.conv.mu.Unlock()
		c.conv.deleted = true
	}

	deleted := false
	if s.history != nil {
		if err := s.history.Flush(ctx); err != nil {
			s.logger.Warn("history flush before delete failed", "conversation_id", conversationID, "error", err)
		}
		deleted = s.history.Delete(ctx, userID, conversationID)
	}
	if inMemory || deleted {
		s.logger.Info("conversation deleted", "user_id", userID, "conversation_id", conversationID)
		return true
	}
	return false
}

func (s *Sessions) bindLocked(userID, sessionID, conversationID string) {
	tabs, ok := s.bindings[userID]
	if !ok {
		tabs = make(map[string]string)
		s.bindings[userID] = tabs
	}
	tabs[sessionID] = conversationID
}

func (s *Sessions) evictLocked(conversationID string) {
	c, ok := s.conversations[conversationID]
	if !ok {
		return
	}
	delete(s.conversations, conversationID)
	owner := c.conv.ownerID
	for sid, id := range s.bindings[owner] {
		if id == conversationID {
			delete(s.bindings[owner], sid)
		}
	}
	if len(s.bindings[owner]) == 0 {
		delete(s.bindings, owner)
	}
}

// Len returns the number of conversations held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Sweep evicts conversations idle for longer than the TTL. A conversation
// in the middle of a turn is skipped. It returns the number evicted.
func (s *Sessions) Sweep() int {
	threshold := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, c := range s.conversations {
		if c.lastUsed.After(threshold) {
			continue
		}
		if !c.conv.mu.TryLock() {
			continue
		}
		c.conv.mu.Unlock()
		s.evictLocked(id)
		evicted++
	}
	return evicted
}

// RunSweeper evicts idle conversations every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = sweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("session sweeper started", "interval", interval, "ttl", s.ttl)

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("session sweeper evicted idle conversations", "count", n)
			}
		case <-ctx.Done():
			s.logger.Info("session sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}
