// ABOUTME: Badger implementation of MessageLog for deployments without SQLite
// ABOUTME: Rows are JSON values under msg/<session>/<id>, ids come from a badger sequence

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	badgerSeqKey       = "seq/messages"
	badgerMsgPrefix    = "msg/"
	badgerSeqBandwidth = 256
)

// badgerRow is the on-disk value for one message
type badgerRow struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// BadgerStore implements MessageLog on top of a badger key-value database.
// An empty path opens an in-memory database.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger

	mu     sync.Mutex
	clock  monotonicClock
	closed bool
}

// NewBadgerStore opens (or creates) a badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	logger := slog.Default().With("component", "store")

	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(badgerSeqKey), badgerSeqBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating message sequence: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		seq:    seq,
		logger: logger,
	}

	if err := s.loadClock(); err != nil {
		_ = seq.Release()
		db.Close()
		return nil, fmt.Errorf("reading last timestamp: %w", err)
	}

	logger.Info("badger store initialized", "path", path, "in_memory", path == "")
	return s, nil
}

// sessionPrefix escapes the session id so "a" never prefix-matches "a/b".
func sessionPrefix(sessionID string) []byte {
	return []byte(badgerMsgPrefix + url.PathEscape(sessionID) + "/")
}

func messageKey(sessionID string, id int64) []byte {
	return append(sessionPrefix(sessionID), []byte(fmt.Sprintf("%020d", id))...)
}

// loadClock seeds the monotonic clock with the newest timestamp on disk.
func (s *BadgerStore) loadClock() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(badgerMsgPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			row, err := decodeBadgerRow(it.Item())
			if err != nil {
				return err
			}
			s.clock.stamp(row.Timestamp)
		}
		return nil
	})
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.seq.Release(); err != nil {
		s.logger.Warn("failed to release message sequence", "error", err)
	}
	return s.db.Close()
}

// Append writes msg under the next sequence id in a single transaction.
func (s *BadgerStore) Append(ctx context.Context, msg *Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("allocating message id: %w", err)
	}
	id := int64(next) + 1 // sequences start at zero, row ids start at one
	ts := s.clock.stamp(msg.Timestamp)

	value, err := json.Marshal(badgerRow{
		ID:        id,
		SessionID: msg.SessionID,
		Role:      string(msg.Role),
		Message:   msg.Text,
		Timestamp: ts.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg.SessionID, id), value)
	}); err != nil {
		return fmt.Errorf("writing message: %w", err)
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

// ListMessages walks the session prefix newest-first so only limit rows are decoded.
func (s *BadgerStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	var messages []*Message

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := sessionPrefix(sessionID)
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			msg, err := decodeBadgerRow(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, msg)
			if limit > 0 && len(messages) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	// Collected newest-first; callers expect oldest-first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func decodeBadgerRow(item *badger.Item) (*Message, error) {
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", item.Key(), err)
	}

	var row badgerRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", item.Key(), err)
	}

	ts, err := time.Parse(time.RFC3339Nano, row.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp of %s: %w", item.Key(), err)
	}

	return &Message{
		ID:        row.ID,
		SessionID: row.SessionID,
		Role:      Role(row.Role),
		Text:      row.Message,
		Timestamp: ts,
	}, nil
}
