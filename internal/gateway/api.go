// ABOUTME: HTTP API handlers for request/response chat and session inspection
// ABOUTME: Provides POST /chat plus GET /api/sessions and /api/sessions/{id}/messages

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/PAVANISAGAR17/student-bot/internal/conversation"
	"github.com/PAVANISAGAR17/student-bot/internal/dispatch"
	"github.com/PAVANISAGAR17/student-bot/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	maxChatBodyBytes    = 1 << 20
)

var validate = validator.New()

// ChatRequest is the JSON request body for POST /chat.
// A missing message is treated as empty text.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id" validate:"omitempty,max=256"`
}

// ChatResponse is the JSON response for POST /chat and for stream turns.
type ChatResponse struct {
	Reply     string         `json:"reply"`
	Intent    IntentResponse `json:"intent"`
	Timestamp string         `json:"timestamp"`
}

// IntentResponse is the classified intent of a chat turn.
type IntentResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// SessionsResponse is the JSON response for GET /api/sessions.
type SessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// MessageResponse is one logged message.
type MessageResponse struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// SessionMessagesResponse is the JSON response for GET /api/sessions/{id}/messages.
type SessionMessagesResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []MessageResponse `json:"messages"`
}

// handleChat handles POST /chat requests.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := parseChatRequest(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = g.config.Sessions.GuestID
	}

	env, err := g.conversation.Process(r.Context(), req.Message, sessionID, dispatch.Context{})
	if err != nil {
		g.logger.Error("chat turn failed", "session_id", sessionID, "error", err)
		if errors.Is(err, conversation.ErrLogWrite) {
			g.sendJSONError(w, http.StatusInternalServerError, "failed to record message")
			return
		}
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toChatResponse(env))
}

// handleListSessions handles GET /api/sessions requests.
// It returns the ids of sessions with a live stream connection.
func (g *Gateway) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, SessionsResponse{Sessions: g.sessions.Sessions()})
}

// handleSessionMessages handles GET /api/sessions/{session_id}/messages requests.
// Supports ?limit=N (1-500, default 50); the newest N messages are returned oldest first.
func (g *Gateway) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	messages, err := g.conversation.History(r.Context(), sessionID, limit)
	if err != nil {
		g.logger.Error("failed to get messages", "session_id", sessionID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, SessionMessagesResponse{
		SessionID: sessionID,
		Messages:  lo.Map(messages, func(m *store.Message, _ int) MessageResponse { return toMessageResponse(m) }),
	})
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseChatRequest parses and validates a ChatRequest from the given reader.
func parseChatRequest(r io.Reader) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}

	if err := validate.Struct(&req); err != nil {
		return nil, errors.New("session_id must be at most 256 characters")
	}

	return &req, nil
}

func toChatResponse(env *conversation.Envelope) ChatResponse {
	return ChatResponse{
		Reply: env.Reply,
		Intent: IntentResponse{
			Label:      env.Intent.Label,
			Confidence: env.Intent.Confidence,
		},
		Timestamp: env.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Message:   m.Text,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
