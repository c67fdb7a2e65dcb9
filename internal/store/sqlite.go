// ABOUTME: SQLite implementation of MessageLog using modernc.org/sqlite or mattn/go-sqlite3
// ABOUTME: Provides the append-only messages table with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements MessageLog on a single SQLite database
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	// mu orders id assignment with timestamp stamping so ids and timestamps agree
	mu     sync.Mutex
	clock  monotonicClock
	closed bool
}

// NewSQLiteStore creates a new SQLite store at the given path using the pure Go driver.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithDriver(DriverSQLite, path)
}

// NewSQLiteStoreWithDriver creates a SQLite store with the named database/sql driver
// ("sqlite" for modernc.org/sqlite, "sqlite3" for mattn/go-sqlite3).
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStoreWithDriver(driver, path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer connection: appends are serialized and :memory: stays a single database
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.loadClock(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading last timestamp: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path, "driver", driver)
	return s, nil
}

// createSchema creates the messages table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role       TEXT NOT NULL,
			message    TEXT NOT NULL,
			timestamp  TEXT NOT NULL,

			CHECK (role IN ('user', 'bot'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session
			ON messages(session_id, id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// loadClock seeds the monotonic clock from the newest persisted row so a restart
// never logs a timestamp older than what is already on disk.
func (s *SQLiteStore) loadClock() error {
	var ts sql.NullString
	if err := s.db.QueryRow(`SELECT timestamp FROM messages ORDER BY id DESC LIMIT 1`).Scan(&ts); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}
	if !ts.Valid {
		return nil
	}
	last, err := time.Parse(time.RFC3339Nano, ts.String)
	if err != nil {
		return fmt.Errorf("parsing timestamp %q: %w", ts.String, err)
	}
	s.clock.stamp(last)
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}

// Append inserts msg as a new row and records the assigned id and timestamp on it.
func (s *SQLiteStore) Append(ctx context.Context, msg *Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	ts := s.clock.stamp(msg.Timestamp)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, message, timestamp) VALUES (?, ?, ?, ?)`,
		msg.SessionID,
		string(msg.Role),
		msg.Text,
		ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading message id: %w", err)
	}
	msg.ID = id
	msg.Timestamp = ts

	s.logger.Debug("message appended",
		"id", id,
		"session_id", msg.SessionID,
		"role", msg.Role,
	)
	return nil
}

// ListMessages retrieves messages for a session, limited to the most recent `limit` messages.
// Messages are returned in insertion order (oldest first).
// If limit is 0 or negative, all messages are returned.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	var query string
	var args []any

	if limit > 0 {
		// Take the N newest rows, then flip them back to ascending order
		query = `
			SELECT id, session_id, role, message, timestamp
			FROM (
				SELECT id, session_id, role, message, timestamp
				FROM messages
				WHERE session_id = ?
				ORDER BY id DESC
				LIMIT ?
			)
			ORDER BY id ASC
		`
		args = []any{sessionID, limit}
	} else {
		query = `
			SELECT id, session_id, role, message, timestamp
			FROM messages
			WHERE session_id = ?
			ORDER BY id ASC
		`
		args = []any{sessionID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var role, tsStr string

		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Text, &tsStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.Role = Role(role)
		msg.Timestamp, err = time.Parse(time.RFC3339Nano, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message timestamp: %w", err)
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}
