package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBackend = errors.New("quota exceeded")

// failingRepo fails every operation.
type failingRepo struct{ store.MemoryStore }

func (failingRepo) UpsertConversation(context.Context, *domain.SavedConversation) error {
	return errBackend
}
func (failingRepo) GetConversation(context.Context, string) (*domain.SavedConversation, error) {
	return nil, errBackend
}
func (failingRepo) ListConversations(context.Context, string) ([]*domain.SavedConversation, error) {
	return nil, errBackend
}
func (failingRepo) AppendEvent(context.Context, domain.Event) error { return errBackend }
func (failingRepo) ListEvents(context.Context, int) ([]domain.Event, error) {
	return nil, errBackend
}
func (failingRepo) GetActiveConversation(context.Context, string) (string, error) {
	return "", errBackend
}
func (failingRepo) SetActiveConversation(context.Context, string, string) error { return errBackend }

func messages(n int) []domain.ChatMessage {
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	out := make([]domain.ChatMessage, n)
	for i := range out {
		role := domain.MessageRoleUser
		if i%2 == 1 {
			role = domain.MessageRoleAssistant
		}
		out[i] = domain.ChatMessage{
			ID:        fmt.Sprintf("m%03d", i),
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

func TestSaveLoadKeepsLastMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(store.NewMemory(), WithLimits(Limits{Messages: 5}))

	msgs := messages(12)
	require.True(t, s.Save(ctx, domain.SavedConversation{ID: "c1", OwnerID: "u1", Messages: msgs}))

	got, ok := s.Load(ctx, "c1")
	require.True(t, ok)
	require.Len(t, got.Messages, 5)
	for i, m := range got.Messages {
		assert.Equal(t, msgs[7+i].ID, m.ID)
		assert.Equal(t, msgs[7+i].Content, m.Content)
	}
	assert.Equal(t, "message 8", got.Title, "title comes from the first retained user message")
}

func TestSaveKeepsShortTranscriptIntact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(store.NewMemory())
	msgs := messages(3)
	require.True(t, s.Save(ctx, domain.SavedConversation{ID: "c1", OwnerID: "u1", Title: "Planning", Messages: msgs}))

	got, ok := s.Load(ctx, "c1")
	require.True(t, ok)
	assert.Equal(t, "Planning", got.Title)
	assert.Len(t, got.Messages, 3)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveEvictsBeyondCapacity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(store.NewMemory(), WithLimits(Limits{Conversations: 3}))

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := range 7 {
		ok := s.Save(ctx, domain.SavedConversation{
			ID:        fmt.Sprintf("c%d", i),
			OwnerID:   "u1",
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.True(t, ok)
	}

	convs := s.List(ctx, "u1")
	require.Len(t, convs, 3)
	assert.Equal(t, []string{"c6", "c5", "c4"}, []string{convs[0].ID, convs[1].ID, convs[2].ID})

	_, ok := s.Load(ctx, "c0")
	assert.False(t, ok)
}

func TestCapacityIsPerOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(store.NewMemory(), WithLimits(Limits{Conversations: 1}))
	require.True(t, s.Save(ctx, domain.SavedConversation{ID: "a", OwnerID: "u1"}))
	require.True(t, s.Save(ctx, domain.SavedConversation{ID: "b", OwnerID: "u2"}))

	assert.Len(t, s.List(ctx, "u1"), 1)
	assert.Len(t, s.List(ctx, "u2"), 1)
}

func TestSaveWithoutIDIsRejected(t *testing.T) {
	t.Parallel()

	s := New(store.NewMemory())
	assert.False(t, s.Save(context.Background(), domain.SavedConversation{OwnerID: "u1"}))
}

func TestFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(&failingRepo{})

	assert.False(t, s.Save(ctx, domain.SavedConversation{ID: "c1", OwnerID: "u1"}))
	_, ok := s.Load(ctx, "c1")
	assert.False(t, ok)
	assert.Nil(t, s.List(ctx, "u1"))
	assert.Empty(t, s.Active(ctx, "u1"))
	assert.Nil(t, s.Events(ctx, 10))
	assert.NotPanics(t, func() {
		s.Track(ctx, "turn", nil)
		s.SetActive(ctx, "u1", "c1")
		s.SaveAsync(domain.SavedConversation{ID: "c1", OwnerID: "u1"})
		s.TrackAsync("turn", nil)
	})
}

func TestDeleteChecksOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(store.NewMemory())
	require.True(t, s.Save(ctx, domain.SavedConversation{ID: "c1", OwnerID: "u1"}))
	s.SetActive(ctx, "u1", "c1")

	assert.False(t, s.Delete(ctx, "intruder", "c1"))
	assert.True(t, s.Delete(ctx, "u1", "c1"))
	assert.False(t, s.Delete(ctx, "u1", "c1"))
	assert.Empty(t, s.Active(ctx, "u1"))
}

func TestTrackAndPruneEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	s := New(store.NewMemory(), WithLimits(Limits{Events: 10}), WithClock(func() time.Time { return fixed }))

	for i := range pruneEvery {
		s.Track(ctx, "turn", map[string]string{"seq": fmt.Sprint(i)})
	}

	events := s.Events(ctx, 0)
	require.Len(t, events, 10)
	assert.Equal(t, fmt.Sprint(pruneEvery-1), events[9].Metadata["seq"])
	assert.True(t, fixed.Equal(events[0].Timestamp))
}

func TestAsyncSavesKeepOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := NewAsyncWriter(64, nil)
	s := New(store.NewMemory(), WithWriter(w))

	conv := domain.SavedConversation{ID: "c1", OwnerID: "u1"}
	all := messages(10)
	for i := 1; i <= len(all); i++ {
		conv.Messages = all[:i]
		s.SaveAsync(conv)
	}
	s.TrackAsync("turn", map[string]string{"action": "greet"})

	require.NoError(t, s.Flush(ctx))
	got, ok := s.Load(ctx, "c1")
	require.True(t, ok)
	assert.Len(t, got.Messages, 10)
	assert.Equal(t, "m009", got.Messages[9].ID)

	events := s.Events(ctx, 5)
	require.Len(t, events, 1)
	assert.Equal(t, "greet", events[0].Metadata["action"])

	require.NoError(t, w.Close(ctx))
}

func TestTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultTitle, Title(nil))
	assert.Equal(t, "Créer une tâche", Title([]domain.ChatMessage{
		{Role: domain.MessageRoleAssistant, Content: "Bonjour !"},
		{Role: domain.MessageRoleUser, Content: "  Créer   une tâche "},
	}))

	long := Title([]domain.ChatMessage{{
		Role:    domain.MessageRoleUser,
		Content: "Planifier une réunion avec toute l'équipe produit la semaine prochaine",
	}})
	assert.True(t, len([]rune(long)) <= titleRunes+1)
	assert.Contains(t, long, "…")
}
