// ABOUTME: Engine runs one chat turn: log the user message, classify, dispatch, log the reply
// ABOUTME: The message log is the source of truth; a turn is only answered once both rows are written

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/PAVANISAGAR17/student-bot/internal/dispatch"
	"github.com/PAVANISAGAR17/student-bot/internal/intent"
	"github.com/PAVANISAGAR17/student-bot/internal/store"
)

// ErrLogWrite indicates a turn could not be recorded in the message log.
var ErrLogWrite = errors.New("message log write failed")

// defaultWriteTimeout bounds each log append once a turn has started.
const defaultWriteTimeout = 10 * time.Second

// Classifier labels user text.
type Classifier interface {
	Classify(text string) intent.Intent
}

// Dispatcher turns a label into reply text.
type Dispatcher interface {
	Dispatch(label, text string, ctx dispatch.Context) string
}

// Envelope is the answer to one user message.
type Envelope struct {
	Reply     string        `json:"reply"`
	Intent    intent.Intent `json:"intent"`
	Timestamp time.Time     `json:"timestamp"`
}

// Options configures an Engine. Log is required; the rest have defaults.
type Options struct {
	Log          store.MessageLog
	Classifier   Classifier
	Dispatcher   Dispatcher
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Engine is the conversation core shared by every transport.
// It is safe for concurrent use.
type Engine struct {
	log          store.MessageLog
	classifier   Classifier
	dispatcher   Dispatcher
	writeTimeout time.Duration
	locks        *turnLocks
	logger       *slog.Logger
}

// New creates an Engine. A nil classifier or dispatcher uses the built-in tables.
func New(opts Options) *Engine {
	if opts.Log == nil {
		panic("conversation: message log is required")
	}
	if opts.Classifier == nil {
		opts.Classifier = intent.Default()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = dispatch.Default()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		log:          opts.Log,
		classifier:   opts.Classifier,
		dispatcher:   opts.Dispatcher,
		writeTimeout: opts.WriteTimeout,
		locks:        newTurnLocks(),
		logger:       opts.Logger.With("component", "conversation"),
	}
}

// Process handles one user message for sessionID and returns the reply.
//
// The user message is recorded BEFORE classification, so there is a record even
// when the reply cannot be logged. In that case the user row stays in the log
// without a reply and ErrLogWrite is returned. Turns of one session never overlap.
func (e *Engine) Process(ctx context.Context, text, sessionID string, hctx dispatch.Context) (*Envelope, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: %w", ErrLogWrite, store.ErrInvalidMessage)
	}

	unlock, err := e.locks.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	turnID := uuid.New().String()
	logger := e.logger.With("session_id", sessionID, "turn_id", turnID)

	// From here on the turn runs to completion even if the caller goes away
	turnCtx := context.WithoutCancel(ctx)

	// 1. Record user message FIRST
	userMsg := &store.Message{SessionID: sessionID, Role: store.RoleUser, Text: text}
	if err := e.append(turnCtx, userMsg); err != nil {
		logger.Error("failed to record user message", "error", err)
		return nil, fmt.Errorf("%w: recording user message: %w", ErrLogWrite, err)
	}

	// 2-3. Classify and build the reply
	in := e.classifier.Classify(text)
	if hctx == nil {
		hctx = dispatch.Context{}
	}
	reply := e.dispatcher.Dispatch(in.Label, text, hctx)

	// 4. Record the reply
	botMsg := &store.Message{SessionID: sessionID, Role: store.RoleBot, Text: reply}
	if err := e.append(turnCtx, botMsg); err != nil {
		logger.Error("failed to record reply; user message left without answer",
			"error", err,
			"user_message_id", userMsg.ID)
		return nil, fmt.Errorf("%w: recording reply: %w", ErrLogWrite, err)
	}

	logger.Debug("turn complete",
		"intent", in.Label,
		"confidence", in.Confidence,
		"user_message_id", userMsg.ID,
		"bot_message_id", botMsg.ID)

	return &Envelope{
		Reply:     reply,
		Intent:    in,
		Timestamp: botMsg.Timestamp,
	}, nil
}

// History returns up to limit logged messages of sessionID, oldest first.
// A limit <= 0 returns everything.
func (e *Engine) History(ctx context.Context, sessionID string, limit int) ([]*store.Message, error) {
	msgs, err := e.log.ListMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages for %q: %w", sessionID, err)
	}
	return msgs, nil
}

// append writes msg with its own timeout context.
func (e *Engine) append(ctx context.Context, msg *store.Message) error {
	writeCtx, cancel := context.WithTimeout(ctx, e.writeTimeout)
	defer cancel()
	return e.log.Append(writeCtx, msg)
}
