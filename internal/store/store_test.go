package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/teamhub/internal/domain"
)

type backend struct {
	name string
	open func(t *testing.T) Repository
}

func backends(t *testing.T) []backend {
	t.Helper()
	return []backend{
		{name: "memory", open: func(*testing.T) Repository { return NewMemory() }},
		{name: "sqlite", open: func(t *testing.T) Repository {
			repo, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "assistant.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		}},
		{name: "redis", open: openRedis},
	}
}

// openRedis uses the instance named by TEAMHUB_TEST_REDIS_ADDR when set and an
// in-process miniredis otherwise.
func openRedis(t *testing.T) Repository {
	t.Helper()

	addr := os.Getenv("TEAMHUB_TEST_REDIS_ADDR")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	prefix := fmt.Sprintf("teamhub-test:%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = client.Close()
	})
	return NewRedisFromClient(client, prefix)
}

func conversation(id, owner string, updated time.Time, contents ...string) *domain.SavedConversation {
	conv := &domain.SavedConversation{
		ID:        id,
		OwnerID:   owner,
		Title:     "Conversation " + id,
		Context:   domain.AssistantContext{CurrentPage: "/dashboard", CurrentUserRole: domain.RoleManager},
		CreatedAt: updated.Add(-time.Minute),
		UpdatedAt: updated,
	}
	for i, c := range contents {
		conv.Messages = append(conv.Messages, domain.ChatMessage{
			ID:        fmt.Sprintf("%s-%d", id, i),
			Role:      domain.MessageRoleUser,
			Content:   c,
			Timestamp: updated,
		})
	}
	return conv
}

func TestConversationRoundTrip(t *testing.T) {
	t.Parallel()

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := b.open(t)

			now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
			conv := conversation("c1", "u1", now, "bonjour")
			conv.Messages = append(conv.Messages, domain.ChatMessage{
				ID:        "c1-reply",
				Role:      domain.MessageRoleAssistant,
				Content:   "Voici vos tâches (1) :",
				Timestamp: now,
				Attachment: domain.ListAttachment{
					Title: "Tâches",
					Items: []domain.ListItem{{ID: "t1", Title: "Préparer la démo", Status: "todo"}},
				},
			})
			require.NoError(t, repo.UpsertConversation(ctx, conv))

			got, err := repo.GetConversation(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, "u1", got.OwnerID)
			assert.Equal(t, conv.Title, got.Title)
			assert.Equal(t, domain.RoleManager, got.Context.CurrentUserRole)
			assert.True(t, now.Equal(got.UpdatedAt))
			require.Len(t, got.Messages, 2)
			assert.Equal(t, "bonjour", got.Messages[0].Content)

			list, ok := got.Messages[1].Attachment.(domain.ListAttachment)
			require.True(t, ok, "attachment type %T", got.Messages[1].Attachment)
			assert.Equal(t, "Préparer la démo", list.Items[0].Title)

			conv.Title = "Renamed"
			conv.UpdatedAt = now.Add(time.Minute)
			require.NoError(t, repo.UpsertConversation(ctx, conv))
			got, err = repo.GetConversation(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, "Renamed", got.Title)
		})
	}
}

func TestGetMissingConversation(t *testing.T) {
	t.Parallel()

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			_, err := b.open(t).GetConversation(context.Background(), "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	t.Parallel()

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := b.open(t)

			base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
			require.NoError(t, repo.UpsertConversation(ctx, conversation("a", "u1", base)))
			require.NoError(t, repo.UpsertConversation(ctx, conversation("b", "u1", base.Add(2*time.Minute))))
			require.NoError(t, repo.UpsertConversation(ctx, conversation("c", "u1", base.Add(time.Minute))))
			require.NoError(t, repo.UpsertConversation(ctx, conversation("other", "u2", base.Add(time.Hour))))

			convs, err := repo.ListConversations(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, convs, 3)
			assert.Equal(t, []string{"b", "c", "a"}, []string{convs[0].ID, convs[1].ID, convs[2].ID})

			none, err := repo.ListConversations(ctx, "nobody")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestPruneConversationsKeepsNewest(t *testing.T) {
	t.Parallel()

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := b.open(t)

			base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
			for i := range 5 {
				id := fmt.Sprintf("c%d", i)
				require.NoError(t, repo.UpsertConversation(ctx, conversation(id, "u1", base.Add(time.Duration(i)*time.Minute))))
			}
			require.NoError(t, repo.SetActiveConversation(ctx, "u1", "c0"))

			removed, err := repo.PruneConversations(ctx, "u1", 3)
			require.NoError(t, err)
			assert.EqualValues(t, 2, removed)

			convs, err := repo.ListConversations(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, convs, 3)
			assert.Equal(t, "c4", convs[0].ID)
			assert.Equal(t, "c2", convs[2].ID)

			active, err := repo.GetActiveConversation(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, active, "pruned conversation must not stay active")

			removed, err = repo.PruneConversations(ctx, "u1", 3)
			require.NoError(t, err)
			assert.Zero(t, removed)
		})
	}
}

func TestDeleteConversationClearsActive(t *testing.T) {
	t.Parallel()

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := b.open(t)

			now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
			require.NoError(t, repo.UpsertConversation(ctx, conversation("c1", "u1", now)))
			require.NoError(t, repo.UpsertConversation(ctx, conversation("c2", "u1", now)))
			require.NoError(t, repo.SetActiveConversation(ctx, "u1", "c1"))

			active, err := repo.GetActiveConversation(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "c1", active)

			require.NoError(t, repo.DeleteConversation(ctx, "c2"))
			active, err = repo.GetActiveConversation(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "c1", active)

			require.NoError(t, repo.DeleteConversation(ctx, "c1"))
			_, err = repo.GetConversation(ctx, "c1")
			assert.ErrorIs(t, err, ErrNotFound)
			active, err = repo.GetActiveConversation(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, active)

			require.NoError(t, repo.DeleteConversation(ctx, "never-existed"))
		})
	}
}

func TestActiveConversationSetAndClear(t *testing.T) {
	t.Parallel()

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := b.open(t)

			active, err := repo.GetActiveConversation(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, active)

			require.NoError(t, repo.SetActiveConversation(ctx, "u1", "c1"))
			require.NoError(t, repo.SetActiveConversation(ctx, "u1", "c2"))
			active, err = repo.GetActiveConversation(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "c2", active)

			require.NoError(t, repo.SetActiveConversation(ctx, "u1", ""))
			active, err = repo.GetActiveConversation(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, active)
		})
	}
}

func TestEventLog(t *testing.T) {
	t.Parallel()

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := b.open(t)

			base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
			for i := range 5 {
				require.NoError(t, repo.AppendEvent(ctx, domain.Event{
					Event:     "turn",
					Timestamp: base.Add(time.Duration(i) * time.Second),
					Metadata:  map[string]string{"seq": fmt.Sprint(i)},
				}))
			}

			events, err := repo.ListEvents(ctx, 3)
			require.NoError(t, err)
			require.Len(t, events, 3)
			assert.Equal(t, "2", events[0].Metadata["seq"])
			assert.Equal(t, "4", events[2].Metadata["seq"])
			assert.True(t, base.Add(4*time.Second).Equal(events[2].Timestamp))

			removed, err := repo.PruneEvents(ctx, 2)
			require.NoError(t, err)
			assert.EqualValues(t, 3, removed)

			events, err = repo.ListEvents(ctx, 10)
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, "3", events[0].Metadata["seq"])

			none, err := repo.ListEvents(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestEventWithoutMetadata(t *testing.T) {
	t.Parallel()

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := b.open(t)

			require.NoError(t, repo.AppendEvent(ctx, domain.Event{Event: "unknown_intent", Timestamp: time.Now()}))
			events, err := repo.ListEvents(ctx, 1)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, "unknown_intent", events[0].Event)
			assert.Empty(t, events[0].Metadata)
		})
	}
}

func TestSQLitePing(t *testing.T) {
	t.Parallel()

	repo, err := NewSQLite(filepath.Join(t.TempDir(), "ping.db"))
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Ping(context.Background()))
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	repo, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, repo.UpsertConversation(ctx, conversation("c1", "u1", time.Now(), "salut")))
	require.NoError(t, repo.SetActiveConversation(ctx, "u1", "c1"))
	require.NoError(t, repo.Close())

	repo, err = NewSQLite(path)
	require.NoError(t, err)
	defer repo.Close()

	active, err := repo.GetActiveConversation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c1", active)
	conv, err := repo.GetConversation(ctx, active)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "salut", conv.Messages[0].Content)
}

func TestOpenSelectsBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, repo)

	repo, err = Open(ctx, Options{Backend: BackendSQLite, DBPath: filepath.Join(t.TempDir(), "assistant.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	assert.IsType(t, &SQLiteStore{}, repo)
	assert.NoError(t, repo.Ping(ctx))

	srv := miniredis.RunT(t)
	repo, err = Open(ctx, Options{Backend: BackendRedis, Redis: RedisOptions{Addr: srv.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	assert.IsType(t, &RedisStore{}, repo)
	assert.NoError(t, repo.Ping(ctx))

	srv.Close()
	_, err = Open(ctx, Options{Backend: BackendRedis, Redis: RedisOptions{Addr: srv.Addr()}})
	assert.ErrorContains(t, err, "ping redis")

	_, err = Open(ctx, Options{Backend: "postgres"})
	assert.ErrorContains(t, err, "postgres")
}
