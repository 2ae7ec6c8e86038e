package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/history"
	"github.com/ashureev/teamhub/internal/store"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var guestCtx = domain.AssistantContext{CurrentPage: "/dashboard", CurrentUserRole: domain.RoleGuest}

func TestSessions_CurrentIsStablePerTab(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewSessions(nil)

	a := s.Current(ctx, "u1", "tab-1", guestCtx)
	b := s.Current(ctx, "u1", "tab-1", guestCtx)
	c := s.Current(ctx, "u1", "tab-2", guestCtx)

	assert.Same(t, a, b)
	assert.NotEqual(t, a.ID(), c.ID())
	assert.Equal(t, "u1", a.Context().UserID)
	assert.Equal(t, 2, s.Len())
}

func TestSessions_ResumeActiveConversationFromHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hist := history.New(store.NewMemory())
	engine := New(WithHistory(hist))

	first := NewSessions(hist)
	conv := first.Current(ctx, "u1", "tab-1", guestCtx)
	_, err := engine.HandleTurn(ctx, conv, "bonjour")
	require.NoError(t, err)

	// A fresh registry, as after a restart, resumes the same conversation.
	second := NewSessions(hist)
	resumed := second.Current(ctx, "u1", "tab-9", guestCtx)
	assert.Equal(t, conv.ID(), resumed.ID())
	assert.Len(t, resumed.View().Messages, 2)
	assert.Nil(t, resumed.FlowStatus())
}

func TestSessions_OpenChecksOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hist := history.New(store.NewMemory())
	s := NewSessions(hist)

	conv := s.Start(ctx, "u1", "tab-1", guestCtx)
	require.True(t, hist.Save(ctx, conv.Snapshot()))

	_, ok := s.Open(ctx, "intruder", "tab-1", conv.ID())
	assert.False(t, ok)

	opened, ok := s.Open(ctx, "u1", "tab-2", conv.ID())
	require.True(t, ok)
	assert.Same(t, conv, opened, "tabs share one conversation")

	_, ok = s.Open(ctx, "u1", "tab-2", "missing")
	assert.False(t, ok)
}

func TestSessions_StartSetsActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hist := history.New(store.NewMemory())
	s := NewSessions(hist)

	conv := s.Start(ctx, "u1", "tab-1", guestCtx)
	assert.Equal(t, conv.ID(), hist.Active(ctx, "u1"))

	next := s.Start(ctx, "u1", "tab-1", guestCtx)
	assert.Equal(t, next.ID(), hist.Active(ctx, "u1"))
	assert.Same(t, next, s.Current(ctx, "u1", "tab-1", guestCtx))
}

func TestSessions_SweepEvictsIdle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := &manualClock{now: fixedClock()}
	s := NewSessions(nil, WithIdleTTL(10*time.Minute), WithSessionClock(clock.Now))

	old := s.Current(ctx, "u1", "tab-1", guestCtx)
	clock.Advance(8 * time.Minute)
	fresh := s.Current(ctx, "u2", "tab-1", guestCtx)
	clock.Advance(5 * time.Minute)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
	assert.Same(t, fresh, s.Current(ctx, "u2", "tab-1", guestCtx))
	assert.NotSame(t, old, s.Current(ctx, "u1", "tab-1", guestCtx))
}

func TestSessions_SweepSkipsBusyConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := &manualClock{now: fixedClock()}
	s := NewSessions(nil, WithIdleTTL(time.Minute), WithSessionClock(clock.Now))

	conv := s.Current(ctx, "u1", "tab-1", guestCtx)
	clock.Advance(time.Hour)

	conv.mu.Lock()
	assert.Zero(t, s.Sweep())
	conv.mu.Unlock()
	assert.Equal(t, 1, s.Sweep())
}

func TestSessions_Forget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewSessions(nil)

	conv := s.Current(ctx, "u1", "tab-1", guestCtx)
	s.Forget(conv.ID())
	assert.Zero(t, s.Len())
	assert.NotEqual(t, conv.ID(), s.Current(ctx, "u1", "tab-1", guestCtx).ID())
}

func TestSessions_RunSweeperStops(t *testing.T) {
	t.Parallel()
	s := NewSessions(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.RunSweeper(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestConversation_SetContextKeepsUser(t *testing.T) {
	t.Parallel()
	conv := NewConversation("c1", "u1", domain.AssistantContext{UserID: "u1", CurrentUserRole: domain.RoleOwner}, fixedClock())

	conv.SetContext(domain.AssistantContext{CurrentPage: "/tasks", CurrentUserRole: domain.RoleGuest})

	got := conv.Context()
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "/tasks", got.CurrentPage)
	assert.Equal(t, domain.RoleGuest, got.CurrentUserRole)
}

func TestSessions_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	writer := history.NewAsyncWriter(8, nil)
	t.Cleanup(func() { _ = writer.Close(context.Background()) })
	hist := history.New(store.NewMemory(), history.WithWriter(writer))
	engine := New(WithHistory(hist))
	s := NewSessions(hist)

	conv := s.Current(ctx, "u1", "tab-1", guestCtx)
	_, err := engine.HandleTurn(ctx, conv, "bonjour")
	require.NoError(t, err)

	assert.False(t, s.Delete(ctx, "intruder", conv.ID()))
	assert.Equal(t, 1, s.Len())

	require.True(t, s.Delete(ctx, "u1", conv.ID()))
	assert.Zero(t, s.Len())
	_, ok := hist.Load(ctx, conv.ID())
	assert.False(t, ok, "queued save must not resurrect the conversation")
	assert.Empty(t, hist.Active(ctx, "u1"))

	assert.False(t, s.Delete(ctx, "u1", conv.ID()))
}

func TestSessions_DeleteRefusesLaterTurnsOnHeldConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	writer := history.NewAsyncWriter(8, nil)
	t.Cleanup(func() { _ = writer.Close(context.Background()) })
	hist := history.New(store.NewMemory(), history.WithWriter(writer))
	engine := New(WithHistory(hist))
	s := NewSessions(hist)

	conv := s.Current(ctx, "u1", "tab-1", guestCtx)
	_, err := engine.HandleTurn(ctx, conv, "bonjour")
	require.NoError(t, err)
	require.True(t, s.Delete(ctx, "u1", conv.ID()))

	// A request that resolved conv before the delete still holds it.
	_, err = engine.HandleTurn(ctx, conv, "merci")
	require.ErrorIs(t, err, ErrConversationDeleted)

	require.NoError(t, hist.Flush(ctx))
	_, ok := hist.Load(ctx, conv.ID())
	assert.False(t, ok)
	assert.Empty(t, hist.List(ctx, "u1"))
}

func TestSessions_DeleteUnsavedConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewSessions(history.New(store.NewMemory()))

	conv := s.Start(ctx, "u1", "tab-1", guestCtx)
	assert.True(t, s.Delete(ctx, "u1", conv.ID()))
	assert.NotEqual(t, conv.ID(), s.Current(ctx, "u1", "tab-1", guestCtx).ID())
}
