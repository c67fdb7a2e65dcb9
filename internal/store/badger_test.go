// ABOUTME: Tests for the badger-backed MessageLog
// ABOUTME: Covers on-disk reopen, sequence continuity and close semantics

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore_ReopenContinuesSequence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	ctx := context.Background()

	s, err := NewBadgerStore(dir)
	require.NoError(t, err)
	first := &Message{SessionID: "s1", Role: RoleUser, Text: "hello"}
	require.NoError(t, s.Append(ctx, first))
	require.NoError(t, s.Close())

	reopened, err := NewBadgerStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	second := &Message{SessionID: "s1", Role: RoleBot, Text: "hi"}
	require.NoError(t, reopened.Append(ctx, second))
	assert.Greater(t, second.ID, first.ID)
	assert.False(t, second.Timestamp.Before(first.Timestamp))

	msgs, err := reopened.ListMessages(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, RoleBot, msgs[1].Role)
}

func TestBadgerStore_CloseIsIdempotent(t *testing.T) {
	s, err := NewBadgerStore("")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.Append(context.Background(), &Message{SessionID: "s1", Role: RoleUser})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBadgerStore_CancelledContext(t *testing.T) {
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Append(ctx, &Message{SessionID: "s1", Role: RoleUser, Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
