// ABOUTME: Mock MessageLog implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject append failures

package store

import (
	"context"
	"sync"
)

// MockStore is an in-memory MessageLog implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	messages []*Message // all rows in append order
	nextID   int64
	clock    monotonicClock
	closed   bool

	// failAppend, when set, is consulted before every append; a non-nil
	// return aborts that append without writing the row.
	failAppend func(msg *Message) error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// FailAppendWhen installs a hook that can reject individual appends.
// Pass nil to clear it.
func (m *MockStore) FailAppendWhen(fn func(msg *Message) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAppend = fn
}

// Append stores a copy of msg.
func (m *MockStore) Append(ctx context.Context, msg *Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.failAppend != nil {
		if err := m.failAppend(msg); err != nil {
			return err
		}
	}

	m.nextID++
	msg.ID = m.nextID
	msg.Timestamp = m.clock.stamp(msg.Timestamp)

	// Make a copy to avoid external modification
	row := *msg
	m.messages = append(m.messages, &row)
	return nil
}

// ListMessages returns copies of the most recent limit rows for a session.
func (m *MockStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			row := *msg
			out = append(out, &row)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// All returns copies of every stored row across sessions, in append order.
func (m *MockStore) All() []*Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Message, 0, len(m.messages))
	for _, msg := range m.messages {
		row := *msg
		out = append(out, &row)
	}
	return out
}

// Close marks the store closed; later appends fail with ErrClosed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
