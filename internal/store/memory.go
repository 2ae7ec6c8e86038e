package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ashureev/teamhub/internal/domain"
)

// MemoryStore implements Repository in process memory. Conversations are
// deep-copied through JSON so callers never share state with the store.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]byte
	owners        map[string]string
	active        map[string]string
	events        []domain.Event
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string][]byte),
		owners:        make(map[string]string),
		active:        make(map[string]string),
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) UpsertConversation(_ context.Context, conv *domain.SavedConversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = raw
	s.owners[conv.ID] = conv.OwnerID
	return nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (*domain.SavedConversation, error) {
	s.mu.RLock()
	raw, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeConversation(raw)
}

func decodeConversation(raw []byte) (*domain.SavedConversation, error) {
	var conv domain.SavedConversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

func (s *MemoryStore) ListConversations(_ context.Context, ownerID string) ([]*domain.SavedConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []*domain.SavedConversation
	for id, owner := range s.owners {
		if owner != ownerID {
			continue
		}
		conv, err := decodeConversation(s.conversations[id])
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	sortMostRecent(convs)
	return convs, nil
}

func sortMostRecent(convs []*domain.SavedConversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if !convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
		}
		return convs[i].ID > convs[j].ID
	})
}

func (s *MemoryStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(id)
	return nil
}

func (s *MemoryStore) deleteLocked(id string) {
	owner, ok := s.owners[id]
	if !ok {
		return
	}
	delete(s.conversations, id)
	delete(s.owners, id)
	if s.active[owner] == id {
		delete(s.active, owner)
	}
}

func (s *MemoryStore) PruneConversations(ctx context.Context, ownerID string, keep int) (int64, error) {
	convs, err := s.ListConversations(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(convs) <= keep {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range convs[keep:] {
		s.deleteLocked(conv.ID)
	}
	return int64(len(convs) - keep), nil
}

func (s *MemoryStore) SetActiveConversation(_ context.Context, ownerID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID == "" {
		delete(s.active, ownerID)
		return nil
	}
	s.active[ownerID] = conversationID
	return nil
}

func (s *MemoryStore) GetActiveConversation(_ context.Context, ownerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[ownerID], nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.events)-limit, 0)
	out := make([]domain.Event, len(s.events)-start)
	copy(out, s.events[start:])
	return out, nil
}

func (s *MemoryStore) PruneEvents(_ context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	if len(s.events) <= keep {
		return 0, nil
	}
	removed := len(s.events) - keep
	kept := make([]domain.Event, keep)
	copy(kept, s.events[removed:])
	s.events = kept
	return int64(removed), nil
}
