// ABOUTME: WebSocket transport: one connection per session id at /ws/{session_id}
// ABOUTME: Each inbound frame is one chat turn; replies go back through the session lease

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/PAVANISAGAR17/student-bot/internal/dispatch"
	"github.com/PAVANISAGAR17/student-bot/internal/session"
)

// WelcomeResponse is pushed once when a stream opens.
type WelcomeResponse struct {
	Reply string `json:"reply"`
}

// wsHandle adapts a WebSocket connection to session.Handle.
type wsHandle struct {
	conn *websocket.Conn
	// abortRead cancels the read loop's context; the websocket library tears
	// the connection down when a pending read is canceled.
	abortRead context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

func newWSHandle(conn *websocket.Conn, abortRead context.CancelFunc) *wsHandle {
	return &wsHandle{conn: conn, abortRead: abortRead, closed: make(chan struct{})}
}

func (h *wsHandle) Send(ctx context.Context, payload []byte) error {
	return h.conn.Write(ctx, websocket.MessageText, payload)
}

// Close starts the close handshake once and waits for it until ctx is done.
// A peer that does not answer in time is dropped without a handshake.
func (h *wsHandle) Close(ctx context.Context, reason string) error {
	h.closeOnce.Do(func() {
		go func() {
			h.closeErr = h.conn.Close(websocket.StatusNormalClosure, reason)
			close(h.closed)
		}()
	})

	select {
	case <-h.closed:
		return h.closeErr
	case <-ctx.Done():
		h.abortRead()
		return ctx.Err()
	}
}

// handleStream handles GET /ws/{session_id} WebSocket upgrades.
// The handler goroutine reads frames in a loop, so turns on one connection
// are processed in arrival order.
func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	conn, err := websocket.Accept(w, r, g.acceptOptions())
	if err != nil {
		// Accept has already written the HTTP error response
		g.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	if g.config.Sessions.ReadLimit > 0 {
		conn.SetReadLimit(g.config.Sessions.ReadLimit)
	}

	readCtx, abortRead := context.WithCancel(r.Context())
	defer abortRead()

	handle := newWSHandle(conn, abortRead)
	lease := g.sessions.Connect(sessionID, handle)
	defer func() {
		lease.Release()
		closeCtx, cancel := context.WithTimeout(context.Background(), session.DefaultCloseGrace)
		defer cancel()
		_ = handle.Close(closeCtx, "session closed")
	}()

	logger := g.logger.With("session_id", sessionID, "conn_id", uuid.New().String())

	// Detached from the request so a turn in flight can still reply while the
	// reader is torn down; bounded by the write timeout per frame.
	ctx := context.WithoutCancel(r.Context())

	welcome, _ := json.Marshal(WelcomeResponse{
		Reply: "Connected to " + g.config.Server.Name + " as " + sessionID + ". Say hi!",
	})
	if !g.push(ctx, lease, welcome) {
		return
	}

	for {
		_, data, err := conn.Read(readCtx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Debug("client closed stream", "status", status)
			} else if !errors.Is(err, context.Canceled) {
				logger.Debug("stream read ended", "error", err)
			}
			return
		}

		// Disconnected or replaced: frames still in flight are not turns
		if !lease.Current() {
			logger.Debug("dropping frame for superseded connection")
			return
		}

		text := parseFrame(data)
		env, err := g.conversation.Process(ctx, text, sessionID, dispatch.Context{})
		if err != nil {
			logger.Error("stream turn failed", "error", err)
			payload, _ := json.Marshal(map[string]string{"error": "failed to record message"})
			g.push(ctx, lease, payload)
			continue
		}

		payload, err := json.Marshal(toChatResponse(env))
		if err != nil {
			logger.Error("encoding reply", "error", err)
			continue
		}
		if !g.push(ctx, lease, payload) {
			// A newer connection took over this session id
			return
		}
	}
}

// push writes payload through lease with the configured write timeout.
// It reports false once the lease has been superseded.
func (g *Gateway) push(ctx context.Context, lease *session.Lease, payload []byte) bool {
	timeout := g.config.Sessions.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return lease.Send(writeCtx, payload)
}

func (g *Gateway) acceptOptions() *websocket.AcceptOptions {
	origins := g.config.Server.AllowedOrigins
	opts := &websocket.AcceptOptions{}
	for _, o := range origins {
		if o == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
	}
	opts.OriginPatterns = origins
	return opts
}

// inboundFrame is the structured form of a stream frame.
type inboundFrame struct {
	Message *string `json:"message"`
}

// parseFrame extracts the message text from one inbound frame.
// A JSON object with a string "message" field yields that field;
// anything else is used verbatim as the message text.
func parseFrame(data []byte) string {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err == nil && f.Message != nil {
		return *f.Message
	}
	return string(data)
}
