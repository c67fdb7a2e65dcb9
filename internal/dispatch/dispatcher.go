// ABOUTME: Maps intent labels to reply handlers, falling back for unknown labels
// ABOUTME: Dispatch is total: a lookup miss is answered by the fallback handler

package dispatch

import (
	"sort"
	"sync"

	"github.com/PAVANISAGAR17/student-bot/internal/intent"
)

// Context is a caller-supplied key/value bag for one handler invocation.
// Handlers must treat it as read-only. The core reserves no keys.
type Context map[string]any

// Handler produces reply text for one intent.
type Handler interface {
	Reply(text string, ctx Context) string
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(text string, ctx Context) string

// Reply calls f(text, ctx).
func (f HandlerFunc) Reply(text string, ctx Context) string {
	return f(text, ctx)
}

// Dispatcher holds the label -> handler registrations.
// It is safe for concurrent use; registration may happen while serving.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a Dispatcher whose fallback label is served by fallback.
func New(fallback Handler) *Dispatcher {
	if fallback == nil {
		panic("dispatch: fallback handler is required")
	}
	return &Dispatcher{
		handlers: map[string]Handler{intent.Fallback: fallback},
	}
}

// Register binds label to h, replacing any previous handler for label.
// A nil handler is ignored, so the fallback registration can never be removed.
func (d *Dispatcher) Register(label string, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[label] = h
}

// Dispatch returns the reply of the handler registered for label,
// or of the fallback handler if there is none.
func (d *Dispatcher) Dispatch(label, text string, ctx Context) string {
	if ctx == nil {
		ctx = Context{}
	}

	d.mu.RLock()
	h, ok := d.handlers[label]
	if !ok {
		h = d.handlers[intent.Fallback]
	}
	d.mu.RUnlock()

	return h.Reply(text, ctx)
}

// Labels returns the registered labels in sorted order.
func (d *Dispatcher) Labels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	labels := make([]string, 0, len(d.handlers))
	for l := range d.handlers {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
