// Package history provides a SQLite-backed store for chat sessions: the
// session registry, each session's message transcript (with source
// citations), and the list of files uploaded to each session. The file list
// is what makes re-ingestion after a file removal possible. Data persists
// across server restarts.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrSessionNotFound is returned when the requested session does not exist.
var ErrSessionNotFound = errors.New("history: session not found")

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser is a message sent by the human user.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the model.
	RoleAssistant Role = "assistant"
)

// Session is one chat session.
type Session struct {
	// ID is the session's unique identifier.
	ID string `json:"id"`
	// Title is a short human-readable label, derived from the first question.
	Title string `json:"title"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single turn in a session's transcript.
type Message struct {
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the text of the message.
	Content string `json:"content"`
	// Sources is the JSON-encoded source citations for assistant messages,
	// nil for user messages.
	Sources json.RawMessage `json:"sources,omitempty"`
	// CreatedAt is when the message was persisted.
	CreatedAt time.Time `json:"created_at"`
}

// File is one uploaded file tracked for a session.
type File struct {
	// Name is the original file name.
	Name string `json:"name"`
	// Path is where the upload is stored on disk.
	Path string `json:"path"`
	// UploadedAt is when the file was uploaded.
	UploadedAt time.Time `json:"uploaded_at"`
}

// Store is the SQLite-backed session store. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the session database.
// It resolves to ~/.documind/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".documind")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("history: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
    id           TEXT    PRIMARY KEY,
    title        TEXT    NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE TABLE IF NOT EXISTS messages (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id   TEXT    NOT NULL,
    role         TEXT    NOT NULL CHECK(role IN ('user','assistant')),
    content      TEXT    NOT NULL,
    sources      TEXT,             -- JSON array of citations, NULL for user turns
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session_created
    ON messages (session_id, created_at);
CREATE TABLE IF NOT EXISTS session_files (
    session_id   TEXT    NOT NULL,
    name         TEXT    NOT NULL,
    path         TEXT    NOT NULL,
    uploaded_at  INTEGER NOT NULL,
    PRIMARY KEY (session_id, name)
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// CreateSession registers a new session with the given ID and title.
func (s *Store) CreateSession(ctx context.Context, id, title string) error {
	const q = `INSERT INTO sessions (id, title, created_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, id, title, time.Now().Unix()); err != nil {
		return fmt.Errorf("history: create session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given ID, or ErrSessionNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	const q = `SELECT id, title, created_at FROM sessions WHERE id = ?`
	var sess Session
	var ts int64
	err := s.db.QueryRowContext(ctx, q, id).Scan(&sess.ID, &sess.Title, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("history: get session: %w", err)
	}
	sess.CreatedAt = time.Unix(ts, 0)
	return sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	const q = `SELECT id, title, created_at FROM sessions ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("history: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var ts int64
		if err := rows.Scan(&sess.ID, &sess.Title, &ts); err != nil {
			return nil, fmt.Errorf("history: list sessions scan: %w", err)
		}
		sess.CreatedAt = time.Unix(ts, 0)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list sessions rows: %w", err)
	}
	return sessions, nil
}

// SetTitle updates the session's title.
func (s *Store) SetTitle(ctx context.Context, id, title string) error {
	const q = `UPDATE sessions SET title = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, title, id); err != nil {
		return fmt.Errorf("history: set title: %w", err)
	}
	return nil
}

// DeleteSession removes the session with all its messages and file records.
// Deleting a missing session is a no-op.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: delete session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, q := range []string{
		`DELETE FROM messages WHERE session_id = ?`,
		`DELETE FROM session_files WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("history: delete session: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: delete session commit: %w", err)
	}
	return nil
}

// AppendMessage persists a single message for the session. sources may be
// nil (user turns) or a JSON array of citations (assistant turns).
func (s *Store) AppendMessage(ctx context.Context, sessionID string, role Role, content string, sources json.RawMessage) error {
	const q = `INSERT INTO messages (session_id, role, content, sources, created_at) VALUES (?, ?, ?, ?, ?)`
	var src any
	if len(sources) > 0 {
		src = string(sources)
	}
	if _, err := s.db.ExecContext(ctx, q, sessionID, string(role), content, src, time.Now().Unix()); err != nil {
		return fmt.Errorf("history: append message: %w", err)
	}
	return nil
}

// Messages returns the session's full transcript, oldest first.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	const q = `
SELECT role, content, sources, created_at
FROM   messages
WHERE  session_id = ?
ORDER  BY created_at ASC, id ASC`
	return s.queryMessages(ctx, q, sessionID)
}

// Recent returns the most recent n messages for the session, ordered
// oldest-first so they can be prepended to the LLM message slice directly.
func (s *Store) Recent(ctx context.Context, sessionID string, n int) ([]Message, error) {
	const q = `
SELECT role, content, sources, created_at FROM (
    SELECT id, role, content, sources, created_at
    FROM   messages
    WHERE  session_id = ?
    ORDER  BY created_at DESC, id DESC
    LIMIT  ?
) ORDER BY created_at ASC, id ASC`
	return s.queryMessages(ctx, q, sessionID, n)
}

func (s *Store) queryMessages(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var ts int64
		var role string
		var sources sql.NullString
		if err := rows.Scan(&role, &m.Content, &sources, &ts); err != nil {
			return nil, fmt.Errorf("history: messages scan: %w", err)
		}
		m.Role = Role(role)
		if sources.Valid {
			m.Sources = json.RawMessage(sources.String)
		}
		m.CreatedAt = time.Unix(ts, 0)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: messages rows: %w", err)
	}
	return msgs, nil
}

// AddFile records an uploaded file for the session. Re-uploading a file with
// the same name replaces the record.
func (s *Store) AddFile(ctx context.Context, sessionID, name, path string) error {
	const q = `INSERT OR REPLACE INTO session_files (session_id, name, path, uploaded_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, sessionID, name, path, time.Now().Unix()); err != nil {
		return fmt.Errorf("history: add file: %w", err)
	}
	return nil
}

// RemoveFile drops the file record from the session. Removing an unknown
// file is a no-op.
func (s *Store) RemoveFile(ctx context.Context, sessionID, name string) error {
	const q = `DELETE FROM session_files WHERE session_id = ? AND name = ?`
	if _, err := s.db.ExecContext(ctx, q, sessionID, name); err != nil {
		return fmt.Errorf("history: remove file: %w", err)
	}
	return nil
}

// Files returns the session's uploaded files in upload order.
func (s *Store) Files(ctx context.Context, sessionID string) ([]File, error) {
	const q = `SELECT name, path, uploaded_at FROM session_files WHERE session_id = ? ORDER BY uploaded_at ASC, name ASC`
	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("history: files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var ts int64
		if err := rows.Scan(&f.Name, &f.Path, &ts); err != nil {
			return nil, fmt.Errorf("history: files scan: %w", err)
		}
		f.UploadedAt = time.Unix(ts, 0)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: files rows: %w", err)
	}
	return files, nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}
