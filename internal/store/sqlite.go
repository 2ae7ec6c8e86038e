package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		context_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_owner_updated ON conversations(owner_id, updated_at);

	CREATE TABLE IF NOT EXISTS active_conversations (
		owner_id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event TEXT NOT NULL,
		metadata_json TEXT,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func withRetry(ctx context.Context, op string, fn func() error) error {
	return shared.SQLiteBackoff.Do(ctx, op, fn)
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// UpsertConversation creates or replaces a saved conversation.
func (s *SQLiteStore) UpsertConversation(ctx context.Context, conv *domain.SavedConversation) error {
	messagesJSON, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	contextJSON, err := json.Marshal(conv.Context)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}

	query := `
	INSERT INTO conversations (id, owner_id, title, messages_json, context_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		messages_json = excluded.messages_json,
		context_json = excluded.context_json,
		updated_at = excluded.updated_at`

	return withRetry(ctx, "upsert conversation", func() error {
		_, err := s.db.ExecContext(ctx, query,
			conv.ID, conv.OwnerID, conv.Title,
			string(messagesJSON), string(contextJSON),
			conv.CreatedAt.UnixMilli(), conv.UpdatedAt.UnixMilli(),
		)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*domain.SavedConversation, error) {
	var conv domain.SavedConversation
	var messagesJSON, contextJSON string
	var createdAt, updatedAt int64

	if err := row.Scan(
		&conv.ID, &conv.OwnerID, &conv.Title,
		&messagesJSON, &contextJSON, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messagesJSON), &conv.Messages); err != nil {
		return nil, fmt.Errorf("decode messages of %s: %w", conv.ID, err)
	}
	if err := json.Unmarshal([]byte(contextJSON), &conv.Context); err != nil {
		return nil, fmt.Errorf("decode context of %s: %w", conv.ID, err)
	}
	conv.CreatedAt = time.UnixMilli(createdAt)
	conv.UpdatedAt = time.UnixMilli(updatedAt)
	return &conv, nil
}

// GetConversation retrieves a conversation by id.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*domain.SavedConversation, error) {
	query := `
		SELECT id, owner_id, title, messages_json, context_json, created_at, updated_at
		FROM conversations WHERE id = ?`

	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the owner's conversations, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context, ownerID string) ([]*domain.SavedConversation, error) {
	query := `
		SELECT id, owner_id, title, messages_json, context_json, created_at, updated_at
		FROM conversations WHERE owner_id = ?
		ORDER BY updated_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close conversation rows", "error", closeErr)
		}
	}()

	var convs []*domain.SavedConversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return convs, nil
}

// DeleteConversation removes a conversation and any active pointer to it.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	return withRetry(ctx, "delete conversation", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM active_conversations WHERE conversation_id = ?`, id); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// PruneConversations keeps the owner's keep most recent conversations.
func (s *SQLiteStore) PruneConversations(ctx context.Context, ownerID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	query := `
	DELETE FROM conversations
	WHERE owner_id = ? AND id NOT IN (
		SELECT id FROM conversations WHERE owner_id = ?
		ORDER BY updated_at DESC, id DESC LIMIT ?
	)`

	var removed int64
	err := withRetry(ctx, "prune conversations", func() error {
		result, err := s.db.ExecContext(ctx, query, ownerID, ownerID, keep)
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		if _, err := s.db.ExecContext(ctx, `
			DELETE FROM active_conversations
			WHERE owner_id = ? AND conversation_id NOT IN (SELECT id FROM conversations WHERE owner_id = ?)`,
			ownerID, ownerID); err != nil {
			slog.Warn("failed to clear dangling active conversation", "owner_id", ownerID, "error", err)
		}
	}
	return removed, nil
}

// SetActiveConversation records the owner's active conversation.
func (s *SQLiteStore) SetActiveConversation(ctx context.Context, ownerID, conversationID string) error {
	if conversationID == "" {
		return withRetry(ctx, "clear active conversation", func() error {
			_, err := s.db.ExecContext(ctx, `DELETE FROM active_conversations WHERE owner_id = ?`, ownerID)
			return err
		})
	}

	query := `
	INSERT INTO active_conversations (owner_id, conversation_id, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(owner_id) DO UPDATE SET
		conversation_id = excluded.conversation_id,
		updated_at = excluded.updated_at`

	return withRetry(ctx, "set active conversation", func() error {
		_, err := s.db.ExecContext(ctx, query, ownerID, conversationID, time.Now().UnixMilli())
		return err
	})
}

// GetActiveConversation returns the owner's active conversation id.
func (s *SQLiteStore) GetActiveConversation(ctx context.Context, ownerID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id FROM active_conversations WHERE owner_id = ?`, ownerID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active conversation: %w", err)
	}
	return id, nil
}

// AppendEvent adds an analytics event to the log.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event domain.Event) error {
	var metadata any
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		metadata = string(raw)
	}

	return withRetry(ctx, "append event", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO events (event, metadata_json, created_at) VALUES (?, ?, ?)`,
			event.Event, metadata, event.Timestamp.UnixMilli(),
		)
		return err
	})
}

// ListEvents returns up to limit of the most recent events, oldest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event, metadata_json, created_at FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close event rows", "error", closeErr)
		}
	}()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var metadata sql.NullString
		var createdAt int64
		if err := rows.Scan(&ev.Event, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("decode event metadata: %w", err)
			}
		}
		ev.Timestamp = time.UnixMilli(createdAt)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// PruneEvents keeps the keep most recent events.
func (s *SQLiteStore) PruneEvents(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	query := `DELETE FROM events WHERE id NOT IN (SELECT id FROM events ORDER BY id DESC LIMIT ?)`

	var removed int64
	err := withRetry(ctx, "prune events", func() error {
		result, err := s.db.ExecContext(ctx, query, keep)
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	return removed, err
}
