// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: One row per conversation reference with automatic schema creation

package refstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single-file SQLite database. Useful for
// deployments that want durability without running a cache engine.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a SQLite store at the given path. The schema is
// created if it doesn't exist; parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "sqlitestore")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("sqlite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversation_refs (
			conversation_id TEXT PRIMARY KEY,
			activity_id     TEXT NOT NULL DEFAULT '',
			bot_id          TEXT NOT NULL DEFAULT '',
			bot_name        TEXT NOT NULL DEFAULT '',
			channel_id      TEXT NOT NULL DEFAULT '',
			is_group        TEXT NOT NULL DEFAULT '',
			service_url     TEXT NOT NULL DEFAULT '',
			user_id         TEXT NOT NULL DEFAULT '',
			user_name       TEXT NOT NULL DEFAULT '',
			updated_at      DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert writes or fully replaces the row for conversationID in one statement.
func (s *SQLiteStore) Upsert(ctx context.Context, conversationID string, ref *ConversationReference) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_refs
			(conversation_id, activity_id, bot_id, bot_name, channel_id, is_group, service_url, user_id, user_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			activity_id = excluded.activity_id,
			bot_id      = excluded.bot_id,
			bot_name    = excluded.bot_name,
			channel_id  = excluded.channel_id,
			is_group    = excluded.is_group,
			service_url = excluded.service_url,
			user_id     = excluded.user_id,
			user_name   = excluded.user_name,
			updated_at  = excluded.updated_at`,
		conversationID, ref.ActivityID, ref.Bot.ID, ref.Bot.Name, ref.ChannelID,
		encodeGroupFlag(ref.Conversation.IsGroup), ref.ServiceURL, ref.User.ID, ref.User.Name,
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing conversation reference %s: %w", conversationID, err)
	}
	return nil
}

// Get returns the record or ErrNotFound. Engine failures degrade to
// ErrNotFound after logging.
func (s *SQLiteStore) Get(ctx context.Context, conversationID string) (*ConversationReference, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT activity_id, bot_id, bot_name, channel_id, is_group, service_url, user_id, user_name
		FROM conversation_refs WHERE conversation_id = ?`, conversationID)

	ref, err := scanReference(row, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to read conversation reference", "conversation_id", conversationID, "error", err)
		return nil, ErrNotFound
	}
	return ref, nil
}

// ListAll returns a snapshot of every row. Engine failures degrade to an
// empty snapshot after logging.
func (s *SQLiteStore) ListAll(ctx context.Context) (map[string]*ConversationReference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, activity_id, bot_id, bot_name, channel_id, is_group, service_url, user_id, user_name
		FROM conversation_refs`)
	if err != nil {
		s.logger.Error("failed to enumerate conversation references", "error", err)
		return map[string]*ConversationReference{}, nil
	}
	defer rows.Close()

	out := make(map[string]*ConversationReference)
	for rows.Next() {
		var id, isGroup string
		ref := &ConversationReference{}
		if err := rows.Scan(&id, &ref.ActivityID, &ref.Bot.ID, &ref.Bot.Name, &ref.ChannelID,
			&isGroup, &ref.ServiceURL, &ref.User.ID, &ref.User.Name); err != nil {
			s.logger.Error("failed to scan conversation reference", "error", err)
			continue
		}
		ref.Conversation = ConversationAccount{ID: id, IsGroup: decodeGroupFlag(isGroup)}
		out[id] = ref
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("failed to enumerate conversation references", "error", err)
		return map[string]*ConversationReference{}, nil
	}
	return out, nil
}

// Delete removes the row; unknown ids are a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, conversationID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_refs WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("deleting conversation reference %s: %w", conversationID, err)
	}
	return nil
}

// Clear removes every row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_refs`); err != nil {
		return fmt.Errorf("clearing conversation references: %w", err)
	}
	return nil
}

// Diagnostics reports the sqlite version, database size and row count.
func (s *SQLiteStore) Diagnostics(ctx context.Context) (*EngineStatus, error) {
	status := &EngineStatus{Engine: "sqlite"}

	if err := s.db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&status.Version); err != nil {
		return nil, fmt.Errorf("querying sqlite version: %w", err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err == nil {
			status.UsedMemory = fmt.Sprintf("%dB", pageCount*pageSize)
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversation_refs`).Scan(&status.TotalRecords); err != nil {
		return nil, fmt.Errorf("counting conversation references: %w", err)
	}
	return status, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanReference(row *sql.Row, conversationID string) (*ConversationReference, error) {
	var isGroup string
	ref := &ConversationReference{}
	if err := row.Scan(&ref.ActivityID, &ref.Bot.ID, &ref.Bot.Name, &ref.ChannelID,
		&isGroup, &ref.ServiceURL, &ref.User.ID, &ref.User.Name); err != nil {
		return nil, err
	}
	ref.Conversation = ConversationAccount{ID: conversationID, IsGroup: decodeGroupFlag(isGroup)}
	return ref, nil
}
