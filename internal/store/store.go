// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/teamhub/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Repository defines the interface for persisting conversations and usage events.
type Repository interface {
	// UpsertConversation creates or replaces a saved conversation.
	UpsertConversation(ctx context.Context, conv *domain.SavedConversation) error

	// GetConversation retrieves a conversation by id. Returns ErrNotFound when absent.
	GetConversation(ctx context.Context, id string) (*domain.SavedConversation, error)

	// ListConversations returns the owner's conversations, most recently updated first.
	ListConversations(ctx context.Context, ownerID string) ([]*domain.SavedConversation, error)

	// DeleteConversation removes a conversation and clears the active pointer if it referenced it.
	DeleteConversation(ctx context.Context, id string) error

	// PruneConversations keeps the owner's keep most recent conversations and deletes the rest.
	PruneConversations(ctx context.Context, ownerID string, keep int) (int64, error)

	// SetActiveConversation records which conversation the owner last had open.
	SetActiveConversation(ctx context.Context, ownerID, conversationID string) error

	// GetActiveConversation returns the owner's active conversation id, or "" when none is set.
	GetActiveConversation(ctx context.Context, ownerID string) (string, error)

	// AppendEvent adds an analytics event to the log.
	AppendEvent(ctx context.Context, event domain.Event) error

	// ListEvents returns up to limit of the most recent events in chronological order.
	ListEvents(ctx context.Context, limit int) ([]domain.Event, error)

	// PruneEvents keeps the keep most recent events.
	PruneEvents(ctx context.Context, keep int) (int64, error)

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Backends accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	DBPath  string
	Redis   RedisOptions
}

// Open returns the Repository named by opts.Backend.
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		repo, err := NewSQLite(opts.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, nil
	case BackendRedis:
		repo, err := NewRedis(ctx, opts.Redis)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return repo, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", opts.Backend)
	}
}
