// ABOUTME: Tests for the MockStore test double
// ABOUTME: Verifies failure injection and copy-on-read semantics

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_FailAppendWhen(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	diskFull := errors.New("disk full")

	m.FailAppendWhen(func(msg *Message) error {
		if msg.Role == RoleBot {
			return diskFull
		}
		return nil
	})

	require.NoError(t, m.Append(ctx, &Message{SessionID: "s1", Role: RoleUser, Text: "hi"}))
	err := m.Append(ctx, &Message{SessionID: "s1", Role: RoleBot, Text: "hello"})
	assert.ErrorIs(t, err, diskFull)

	rows := m.All()
	require.Len(t, rows, 1)
	assert.Equal(t, RoleUser, rows[0].Role)

	m.FailAppendWhen(nil)
	require.NoError(t, m.Append(ctx, &Message{SessionID: "s1", Role: RoleBot, Text: "hello"}))
	assert.Len(t, m.All(), 2)
}

func TestMockStore_ReturnsCopies(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	msg := &Message{SessionID: "s1", Role: RoleUser, Text: "original"}
	require.NoError(t, m.Append(ctx, msg))
	msg.Text = "mutated by caller"

	msgs, err := m.ListMessages(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "original", msgs[0].Text)

	msgs[0].Text = "mutated by reader"
	assert.Equal(t, "original", m.All()[0].Text)
}

func TestMockStore_Close(t *testing.T) {
	m := NewMockStore()
	require.NoError(t, m.Close())
	err := m.Append(context.Background(), &Message{SessionID: "s1", Role: RoleUser})
	assert.ErrorIs(t, err, ErrClosed)
}
