// ABOUTME: Tracks the live streaming connection for each session id
// ABOUTME: A newer connection replaces the old one; leases keep stale connections from touching it

package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultCloseGrace bounds how long a replaced or disconnected handle may take
// to close cleanly before it is dropped.
const DefaultCloseGrace = 2 * time.Second

// Handle is the write side of one live connection.
type Handle interface {
	// Send writes one payload to the peer.
	Send(ctx context.Context, payload []byte) error
	// Close terminates the connection, waiting for a clean close until ctx is
	// done and dropping the connection after that. Safe to call more than once.
	Close(ctx context.Context, reason string) error
}

type entry struct {
	handle Handle
	gen    uint64
}

// Registry maps session ids to their current connection handle.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]entry
	nextGen  uint64
	logger   *slog.Logger

	// closeGrace is the budget for closing handles removed by Connect or Disconnect
	closeGrace time.Duration
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions:   make(map[string]entry),
		logger:     logger.With("component", "sessions"),
		closeGrace: DefaultCloseGrace,
	}
}

// Connect makes h the current handle for sessionID. Any previous handle for the
// same id is closed in the background, so a silent old peer never delays the new
// connection. The returned Lease identifies this particular connection.
func (r *Registry) Connect(sessionID string, h Handle) *Lease {
	r.mu.Lock()
	r.nextGen++
	gen := r.nextGen
	old, replaced := r.sessions[sessionID]
	r.sessions[sessionID] = entry{handle: h, gen: gen}
	total := len(r.sessions)
	r.mu.Unlock()

	if replaced {
		r.logger.Info("session connection replaced", "session_id", sessionID)
		r.retire(sessionID, old.handle, "replaced by a newer connection")
	}

	r.logger.Info("=== SESSION CONNECTED ===",
		"session_id", sessionID,
		"replaced", replaced,
		"total_sessions", total,
	)

	return &Lease{registry: r, sessionID: sessionID, gen: gen}
}

// Disconnect removes whatever handle is registered for sessionID and closes it
// in the background. The connection's lease goes inert immediately.
func (r *Registry) Disconnect(sessionID string) {
	r.mu.Lock()
	e, exists := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	total := len(r.sessions)
	r.mu.Unlock()

	if exists {
		r.logDisconnect(sessionID, total)
		r.retire(sessionID, e.handle, "session disconnected")
	}
}

// Send writes payload to the current handle of sessionID.
// It reports whether a handle was found; a failing write is logged and still returns true.
func (r *Registry) Send(ctx context.Context, sessionID string, payload []byte) bool {
	r.mu.RLock()
	e, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	r.write(ctx, sessionID, e.handle, payload)
	return true
}

// Len returns the number of connected sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns the connected session ids, sorted.
func (r *Registry) Sessions() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Close removes every registered handle and closes them concurrently.
// It returns once all handles are closed or ctx is done, whichever comes first.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	handles := make(map[string]Handle, len(r.sessions))
	for id, e := range r.sessions {
		handles[id] = e.handle
	}
	r.sessions = make(map[string]entry)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for id, h := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.closeHandle(ctx, id, h, "server shutting down")
		}()
	}
	wg.Wait()

	if len(handles) > 0 {
		r.logger.Info("closed all sessions", "count", len(handles))
	}
}

// retire closes a handle that is no longer registered without blocking the caller.
func (r *Registry) retire(sessionID string, h Handle, reason string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.closeGrace)
		defer cancel()
		r.closeHandle(ctx, sessionID, h, reason)
	}()
}

func (r *Registry) closeHandle(ctx context.Context, sessionID string, h Handle, reason string) {
	if err := h.Close(ctx, reason); err != nil {
		r.logger.Debug("closing handle", "session_id", sessionID, "reason", reason, "error", err)
	}
}

func (r *Registry) write(ctx context.Context, sessionID string, h Handle, payload []byte) {
	if err := h.Send(ctx, payload); err != nil {
		r.logger.Warn("failed to send to session", "session_id", sessionID, "error", err)
	}
}

func (r *Registry) logDisconnect(sessionID string, total int) {
	r.logger.Info("=== SESSION DISCONNECTED ===",
		"session_id", sessionID,
		"total_sessions", total,
	)
}

// current returns the handle for sessionID if it still belongs to generation gen.
func (r *Registry) current(sessionID string, gen uint64) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sessionID]
	if !ok || e.gen != gen {
		return nil, false
	}
	return e.handle, true
}

// Lease is one connection's claim on a session id.
// Once a newer connection takes over the id the lease goes inert.
type Lease struct {
	registry  *Registry
	sessionID string
	gen       uint64
}

// SessionID returns the id this lease was issued for.
func (l *Lease) SessionID() string { return l.sessionID }

// Current reports whether this lease still owns its session id.
func (l *Lease) Current() bool {
	_, ok := l.registry.current(l.sessionID, l.gen)
	return ok
}

// Send writes payload through the registry if this lease is still current.
func (l *Lease) Send(ctx context.Context, payload []byte) bool {
	h, ok := l.registry.current(l.sessionID, l.gen)
	if !ok {
		return false
	}
	l.registry.write(ctx, l.sessionID, h, payload)
	return true
}

// Release removes the registry entry if it still belongs to this lease.
// Calling it more than once is harmless.
func (l *Lease) Release() {
	r := l.registry
	r.mu.Lock()
	e, ok := r.sessions[l.sessionID]
	owned := ok && e.gen == l.gen
	if owned {
		delete(r.sessions, l.sessionID)
	}
	total := len(r.sessions)
	r.mu.Unlock()

	if owned {
		r.logDisconnect(l.sessionID, total)
	}
}
