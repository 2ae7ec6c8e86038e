package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ashureev/teamhub/internal/domain"
)

// DefaultRedisPrefix namespaces every key written by RedisStore.
const DefaultRedisPrefix = "teamhub:"

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore implements Repository on Redis.
//
// Layout:
//
//	{prefix}conv:{id}        JSON SavedConversation
//	{prefix}convs:{owner}    ZSET of conversation ids scored by updatedAt (ms)
//	{prefix}active:{owner}   active conversation id
//	{prefix}events           LIST of JSON events, oldest at the head
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewRedisFromClient(client, opts.Prefix), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) convKey(id string) string { return s.prefix + "conv:" + id }
func (s *RedisStore) ownerKey(owner string) string { return s.prefix + "convs:" + owner }
func (s *RedisStore) activeKey(owner string) string { return s.prefix + "active:" + owner }
func (s *RedisStore) eventsKey() string { return s.prefix + "events" }

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

// UpsertConversation stores the conversation and bumps it in the owner's index.
func (s *RedisStore) UpsertConversation(ctx context.Context, conv *domain.SavedConversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.convKey(conv.ID), raw, 0)
		pipe.ZAdd(ctx, s.ownerKey(conv.OwnerID), redis.Z{
			Score:  float64(conv.UpdatedAt.UnixMilli()),
			Member: conv.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by id.
func (s *RedisStore) GetConversation(ctx context.Context, id string) (*domain.SavedConversation, error) {
	raw, err := s.client.Get(ctx, s.convKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	var conv domain.SavedConversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

// ListConversations returns the owner's conversations, most recently updated first.
func (s *RedisStore) ListConversations(ctx context.Context, ownerID string) ([]*domain.SavedConversation, error) {
	ids, err := s.client.ZRevRange(ctx, s.ownerKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversation ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.convKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	convs := make([]*domain.SavedConversation, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Index entry outlived its document.
			slog.Warn("dangling conversation index entry", "owner_id", ownerID, "conversation_id", ids[i])
			continue
		}
		var conv domain.SavedConversation
		if err := json.Unmarshal([]byte(str), &conv); err != nil {
			return nil, fmt.Errorf("decode conversation %s: %w", ids[i], err)
		}
		convs = append(convs, &conv)
	}
	return convs, nil
}

// DeleteConversation removes a conversation and any active pointer to it.
func (s *RedisStore) DeleteConversation(ctx context.Context, id string) error {
	conv, err := s.GetConversation(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	active, err := s.GetActiveConversation(ctx, conv.OwnerID)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.convKey(id))
		pipe.ZRem(ctx, s.ownerKey(conv.OwnerID), id)
		if active == id {
			pipe.Del(ctx, s.activeKey(conv.OwnerID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// PruneConversations keeps the owner's keep most recent conversations.
func (s *RedisStore) PruneConversations(ctx context.Context, ownerID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	stale, err := s.client.ZRevRange(ctx, s.ownerKey(ownerID), int64(keep), -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list stale conversations: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	active, err := s.GetActiveConversation(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	keys := make([]string, len(stale))
	members := make([]any, len(stale))
	clearActive := false
	for i, id := range stale {
		keys[i] = s.convKey(id)
		members[i] = id
		if id == active {
			clearActive = true
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.ownerKey(ownerID), members...)
		if clearActive {
			pipe.Del(ctx, s.activeKey(ownerID))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune conversations: %w", err)
	}
	return int64(len(stale)), nil
}

// SetActiveConversation records the owner's active conversation. An empty id clears it.
func (s *RedisStore) SetActiveConversation(ctx context.Context, ownerID, conversationID string) error {
	var err error
	if conversationID == "" {
		err = s.client.Del(ctx, s.activeKey(ownerID)).Err()
	} else {
		err = s.client.Set(ctx, s.activeKey(ownerID), conversationID, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("set active conversation: %w", err)
	}
	return nil
}

// GetActiveConversation returns the owner's active conversation id.
func (s *RedisStore) GetActiveConversation(ctx context.Context, ownerID string) (string, error) {
	id, err := s.client.Get(ctx, s.activeKey(ownerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active conversation: %w", err)
	}
	return id, nil
}

// AppendEvent pushes an event onto the tail of the log.
func (s *RedisStore) AppendEvent(ctx context.Context, event domain.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.client.RPush(ctx, s.eventsKey(), raw).Err(); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEvents returns up to limit of the most recent events, oldest first.
func (s *RedisStore) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	values, err := s.client.LRange(ctx, s.eventsKey(), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]domain.Event, 0, len(values))
	for _, v := range values {
		var ev domain.Event
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// PruneEvents keeps the keep most recent events.
func (s *RedisStore) PruneEvents(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	key := s.eventsKey()
	before, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	if before <= int64(keep) {
		return 0, nil
	}

	if keep <= 0 {
		err = s.client.Del(ctx, key).Err()
	} else {
		err = s.client.LTrim(ctx, key, int64(-keep), -1).Err()
	}
	if err != nil {
		return 0, fmt.Errorf("trim events: %w", err)
	}
	return before - int64(keep), nil
}
