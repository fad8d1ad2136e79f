// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mgrindal/inkwell-tui/internal/model"
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq            INTEGER NOT NULL,
	role           TEXT NOT NULL,
	content        TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	token_count    INTEGER NOT NULL DEFAULT 0,
	ttft_ns        INTEGER NOT NULL DEFAULT 0,
	total_ns       INTEGER NOT NULL DEFAULT 0,
	tokens_per_sec REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
`

// =============================================================================
// SQLITE REPOSITORY
// =============================================================================

// SQLiteRepository persists sessions in a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	// busy_timeout covers writer contention between the engine goroutine
	// and UI-triggered reads; foreign_keys enables cascade deletes.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc.org/sqlite is single-writer; serialize access through one
	// connection to avoid SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CreateSession inserts a new session row.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.Title, s.CreatedAt.UnixNano(), s.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// SaveSession updates session metadata.
func (r *SQLiteRepository) SaveSession(ctx context.Context, s *model.Session) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`,
		s.Title, s.UpdatedAt.UnixNano(), s.ID)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session; messages cascade.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListSessions returns metadata for all sessions, most recently updated
// first. Previews come from each session's first user message.
func (r *SQLiteRepository) ListSessions(ctx context.Context) ([]model.SessionMeta, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
			COALESCE((SELECT m.content FROM messages m
				WHERE m.session_id = s.id AND m.role = 'user'
				ORDER BY m.seq LIMIT 1), '')
		FROM sessions s
		ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var metas []model.SessionMeta
	for rows.Next() {
		var m model.SessionMeta
		var created, updated int64
		var preview string
		if err := rows.Scan(&m.ID, &m.Title, &created, &updated, &m.MessageCount, &preview); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		m.CreatedAt = time.Unix(0, created)
		m.UpdatedAt = time.Unix(0, updated)
		m.Preview = preview
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// LoadSession loads a full session with messages in sequence order.
func (r *SQLiteRepository) LoadSession(ctx context.Context, id string) (*model.Session, error) {
	s := &model.Session{ID: id}
	var created, updated int64
	err := r.db.QueryRowContext(ctx,
		`SELECT title, created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&s.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.CreatedAt = time.Unix(0, created)
	s.UpdatedAt = time.Unix(0, updated)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, role, content, created_at, token_count, ttft_ns, total_ns, tokens_per_sec
		FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg := &model.Message{}
		var ts, ttft, total int64
		var role string
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &ts,
			&msg.TokenCount, &ttft, &total, &msg.TokensPerSec); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.Unix(0, ts)
		msg.TTFT = time.Duration(ttft)
		msg.TotalDuration = time.Duration(total)
		// Persisted messages are never streaming, whatever state the
		// process died in.
		msg.IsStreaming = false
		s.Messages = append(s.Messages, msg)
	}
	return s, rows.Err()
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AppendMessage inserts a message with the next sequence number and bumps
// the session's updated_at.
func (r *SQLiteRepository) AppendMessage(ctx context.Context, sessionID string, msg *model.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, seq, role, content, created_at,
			token_count, ttft_ns, total_ns, tokens_per_sec)
		VALUES (?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?),
			?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, sessionID,
		msg.Role.String(), msg.Content, msg.Timestamp.UnixNano(),
		msg.TokenCount, int64(msg.TTFT), int64(msg.TotalDuration), msg.TokensPerSec)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UnixNano(), sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return tx.Commit()
}

// UpdateMessage rewrites a message's content and statistics and bumps the
// session's updated_at.
func (r *SQLiteRepository) UpdateMessage(ctx context.Context, sessionID string, msg *model.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE messages SET content = ?, token_count = ?, ttft_ns = ?, total_ns = ?, tokens_per_sec = ?
		WHERE id = ? AND session_id = ?`,
		msg.Content, msg.TokenCount, int64(msg.TTFT), int64(msg.TotalDuration), msg.TokensPerSec,
		msg.ID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMessageNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UnixNano(), sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return tx.Commit()
}

// DeleteMessage removes one message and bumps the session's updated_at.
func (r *SQLiteRepository) DeleteMessage(ctx context.Context, sessionID, messageID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ? AND session_id = ?`, messageID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMessageNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UnixNano(), sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return tx.Commit()
}
