// Package sqlitestore provides SQLite-based persistence for session
// transcripts.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/internal/logging"
	"github.com/fastnlabs/fastn-agent/persistence"
)

var logger = logging.Logger().With("component", "sqlitestore")

// SQLiteStore implements persistence.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ persistence.Store = &SQLiteStore{}

// New creates a new SQLite-based store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS messages (
    session_id TEXT NOT NULL,
    position   INTEGER NOT NULL,
    role       TEXT NOT NULL,
    contents   TEXT NOT NULL,
    PRIMARY KEY (session_id, position)
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`
	_, err := s.db.Exec(schema)
	return err
}

func encodeContents(contents []chat.Content) (string, error) {
	if len(contents) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(contents)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Load retrieves the transcript for a session in message order. Rows whose
// contents cannot be decoded cause the whole session to be treated as empty,
// matching the file store's recovery behavior.
func (s *SQLiteStore) Load(sessionID string) (chat.Transcript, error) {
	rows, err := s.db.Query(
		`SELECT role, contents FROM messages WHERE session_id = ? ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var transcript chat.Transcript
	for rows.Next() {
		var roleStr, contentsJSON string
		if err := rows.Scan(&roleStr, &contentsJSON); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		var contents []chat.Content
		if err := json.Unmarshal([]byte(contentsJSON), &contents); err != nil {
			logger.Warn("session row is corrupt, starting fresh", "session", sessionID, "error", err)
			return chat.Transcript{}, nil
		}

		transcript = append(transcript, chat.Message{
			Role:     chat.Role(roleStr),
			Contents: contents,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	if transcript == nil {
		transcript = chat.Transcript{}
	}
	return transcript, nil
}

// Save replaces the stored transcript for a session in a single transaction.
func (s *SQLiteStore) Save(sessionID string, transcript chat.Transcript) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO messages (session_id, position, role, contents) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range transcript {
		contentsJSON, err := encodeContents(msg.Contents)
		if err != nil {
			return fmt.Errorf("encode message %d: %w", i, err)
		}
		if _, err := stmt.Exec(sessionID, i, string(msg.Role), contentsJSON); err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes all data for a session.
func (s *SQLiteStore) Delete(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListSessions returns all session IDs in the store, sorted.
func (s *SQLiteStore) ListSessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT session_id FROM messages ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
