// ABOUTME: Gateway orchestrator that wires the message log, conversation engine and HTTP server
// ABOUTME: Manages the store, session registry and health endpoints lifecycle

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/PAVANISAGAR17/student-bot/internal/config"
	"github.com/PAVANISAGAR17/student-bot/internal/conversation"
	"github.com/PAVANISAGAR17/student-bot/internal/session"
	"github.com/PAVANISAGAR17/student-bot/internal/store"
)

// Gateway serves the chat transports on top of one conversation engine.
type Gateway struct {
	config       *config.Config
	store        store.MessageLog
	conversation *conversation.Engine
	sessions     *session.Registry
	httpServer   *http.Server
	logger       *slog.Logger
}

// New opens the configured message log and creates a Gateway around it.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	log, err := store.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return NewWithLog(cfg, log, logger), nil
}

// NewWithLog creates a Gateway over an already opened message log.
// The gateway takes ownership of log and closes it on Shutdown.
func NewWithLog(cfg *config.Config, log store.MessageLog, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	gw := &Gateway{
		config: cfg,
		store:  log,
		conversation: conversation.New(conversation.Options{
			Log:          log,
			WriteTimeout: cfg.Sessions.WriteTimeout,
			Logger:       logger,
		}),
		sessions: session.NewRegistry(logger),
		logger:   logger.With("component", "gateway"),
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw
}

// Handler returns the HTTP handler with every route registered.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	// Chat transports
	mux.HandleFunc("/chat", g.handleChat)
	mux.HandleFunc("GET /ws/{session_id}", g.handleStream)

	// Inspection API
	mux.HandleFunc("/api/sessions", g.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{session_id}/messages", g.handleSessionMessages)

	return withLogging(g.logger, corsMiddleware(g.config.Server.AllowedOrigins, mux))
}

// Sessions exposes the live session registry.
func (g *Gateway) Sessions() *session.Registry {
	return g.sessions
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return g.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until ctx is canceled, then shuts down.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() since the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	timeout := g.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown closes live sessions, stops the HTTP server and closes the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	// Hijacked WebSocket connections are not tracked by http.Server. Streams get
	// one shared close grace so the server and store still close within ctx.
	closeCtx, cancel := context.WithTimeout(ctx, session.DefaultCloseGrace)
	g.sessions.Close(closeCtx)
	cancel()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ReadyResponse is the JSON response for GET /health/ready.
type ReadyResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// handleHealth reports liveness. It does not touch the store or the registry.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// handleReady reports readiness with the number of live stream sessions.
// Zero sessions is a normal idle state, so this never returns 503.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ReadyResponse{
		Status:   "ready",
		Sessions: g.sessions.Len(),
	})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
