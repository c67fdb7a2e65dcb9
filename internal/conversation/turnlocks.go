// ABOUTME: Per-session turn serialization with reference-counted lock entries
// ABOUTME: Entries exist only while a turn holds or waits for them

package conversation

import (
	"context"
	"sync"
)

type turnLock struct {
	sem  chan struct{}
	refs int
}

// turnLocks is a keyed mutex. Waiting for a key honours context cancellation.
type turnLocks struct {
	mu    sync.Mutex
	locks map[string]*turnLock
}

func newTurnLocks() *turnLocks {
	return &turnLocks{locks: make(map[string]*turnLock)}
}

// lock blocks until key is free or ctx is done. The returned func releases it.
func (t *turnLocks) lock(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &turnLock{sem: make(chan struct{}, 1)}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	default:
		// contended: wait, but give up with the caller
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			t.release(key, l)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			t.release(key, l)
		})
	}, nil
}

func (t *turnLocks) release(key string, l *turnLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, key)
	}
}

// size reports how many keys currently have an entry.
func (t *turnLocks) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
