// ABOUTME: MessageLog interface and data types for chatbot-gateway persistence
// ABOUTME: Defines the append-only Message row and the driver switch used by the gateway

package store

//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_message_log.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidMessage is returned when a message is missing its session or has an unknown role
var ErrInvalidMessage = errors.New("invalid message")

// ErrClosed is returned when appending to a store that has been closed
var ErrClosed = errors.New("store closed")

// ErrUnknownDriver is returned by Open for an unsupported database driver
var ErrUnknownDriver = errors.New("unknown database driver")

// Role identifies who authored a logged message
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// Database drivers accepted by Open
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverBadger  = "badger"  // github.com/dgraph-io/badger/v4 on disk
	DriverMemory  = "memory"  // in-memory badger, lost on exit
)

// Message is one logged utterance. Rows are immutable once appended.
type Message struct {
	ID        int64 // assigned by the store, increases with every append
	SessionID string
	Role      Role
	Text      string
	Timestamp time.Time // UTC, never earlier than the previously appended row
}

// MessageLog is an append-only store of every exchanged message, keyed by session.
type MessageLog interface {
	// Append writes msg atomically and fills in its ID and (possibly adjusted) Timestamp.
	Append(ctx context.Context, msg *Message) error

	// ListMessages returns the most recent limit messages of a session, oldest first.
	// A limit of 0 or less returns the full history.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)

	// Close releases any resources held by the store
	Close() error
}

// Open creates the MessageLog for the given driver name.
func Open(driver, path string) (MessageLog, error) {
	switch driver {
	case "", DriverSQLite, DriverSQLite3:
		if driver == "" {
			driver = DriverSQLite
		}
		return NewSQLiteStoreWithDriver(driver, path)
	case DriverBadger:
		return NewBadgerStore(path)
	case DriverMemory:
		return NewBadgerStore("")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// validateMessage checks the fields every backend requires before writing.
func validateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if msg.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidMessage)
	}
	if !msg.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, msg.Role)
	}
	return nil
}

// monotonicClock keeps appended timestamps from going backwards when the
// wall clock steps back or two turns race for the same instant.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
}

// stamp returns t in UTC, raised to the last issued timestamp if it would precede it.
// A zero t means "now".
func (c *monotonicClock) stamp(t time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
