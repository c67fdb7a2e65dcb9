// ABOUTME: Tests for the HTTP chat API and session inspection endpoints
// ABOUTME: Covers the scripted chat scenarios, error mapping, history limits and CORS

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PAVANISAGAR17/student-bot/internal/dispatch"
	"github.com/PAVANISAGAR17/student-bot/internal/intent"
	"github.com/PAVANISAGAR17/student-bot/internal/store"
)

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) ChatResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleChat_Scenarios(t *testing.T) {
	gw, _ := newTestGateway(t)
	h := gw.Handler()

	t.Run("greeting", func(t *testing.T) {
		resp := decodeChat(t, postChat(t, h, `{"message":"Hello there","session_id":"s1"}`))
		assert.Equal(t, intent.Greeting, resp.Intent.Label)
		assert.InDelta(t, 0.95, resp.Intent.Confidence, 1e-9)
		assert.Equal(t, "Hello! I can help with mobile network support, account queries, or basic health triage. How can I help today?", resp.Reply)
	})

	t.Run("no signal", func(t *testing.T) {
		resp := decodeChat(t, postChat(t, h, `{"message":"I have no signal at home","session_id":"s1"}`))
		assert.Equal(t, intent.NetworkIssue, resp.Intent.Label)
		assert.True(t, strings.HasPrefix(resp.Reply, "I understand you're seeing no network signal."), resp.Reply)
	})

	t.Run("balance", func(t *testing.T) {
		resp := decodeChat(t, postChat(t, h, `{"message":"what's my balance","session_id":"s1"}`))
		assert.Equal(t, intent.AccountQuery, resp.Intent.Label)
		assert.Contains(t, resp.Reply, dispatch.Balance)
		assert.Contains(t, resp.Reply, "Would you like to recharge now?")
	})

	t.Run("fallback", func(t *testing.T) {
		resp := decodeChat(t, postChat(t, h, `{"message":"xyz nonsense qqq","session_id":"s1"}`))
		assert.Equal(t, intent.Fallback, resp.Intent.Label)
		assert.InDelta(t, 0.5, resp.Intent.Confidence, 1e-9)
		assert.Equal(t, dispatch.ReplyFallback, resp.Reply)
	})
}

func TestHandleChat_TimestampIsUTC(t *testing.T) {
	gw, _ := newTestGateway(t)

	resp := decodeChat(t, postChat(t, gw.Handler(), `{"message":"hi","session_id":"s1"}`))
	ts, err := time.Parse(time.RFC3339Nano, resp.Timestamp)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resp.Timestamp, "Z"), resp.Timestamp)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestHandleChat_LogsTwoRowsPerTurn(t *testing.T) {
	gw, log := newTestGateway(t)

	resp := decodeChat(t, postChat(t, gw.Handler(), `{"message":"I have a fever","session_id":"alice"}`))

	rows, err := log.ListMessages(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, store.RoleUser, rows[0].Role)
	assert.Equal(t, "I have a fever", rows[0].Text)
	assert.Equal(t, store.RoleBot, rows[1].Role)
	assert.Equal(t, resp.Reply, rows[1].Text)
}

func TestHandleChat_DefaultsToGuestSession(t *testing.T) {
	gw, log := newTestGateway(t)

	decodeChat(t, postChat(t, gw.Handler(), `{"message":"thanks"}`))

	rows, err := log.ListMessages(context.Background(), "guest", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestHandleChat_MissingMessageIsEmptyText(t *testing.T) {
	gw, _ := newTestGateway(t)

	resp := decodeChat(t, postChat(t, gw.Handler(), `{"session_id":"s1"}`))
	assert.Equal(t, intent.Fallback, resp.Intent.Label)
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	gw, log := newTestGateway(t)

	rec := postChat(t, gw.Handler(), `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid JSON body", body["error"])
	assert.Empty(t, log.All())
}

func TestHandleChat_SessionIDTooLong(t *testing.T) {
	gw, _ := newTestGateway(t)

	body := fmt.Sprintf(`{"message":"hi","session_id":%q}`, strings.Repeat("x", 300))
	rec := postChat(t, gw.Handler(), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	gw, _ := newTestGateway(t)

	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestHandleChat_LogFailureIs500(t *testing.T) {
	gw, log := newTestGateway(t)
	log.FailAppendWhen(func(*store.Message) error { return errors.New("disk full") })

	rec := postChat(t, gw.Handler(), `{"message":"hello","session_id":"s1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed to record message", body["error"])
	assert.NotContains(t, rec.Body.String(), "disk full", "internal details stay in the logs")
}

func TestHandleListSessions(t *testing.T) {
	gw, _ := newTestGateway(t)
	gw.Sessions().Connect("zulu", &nopHandle{})
	gw.Sessions().Connect("alpha", &nopHandle{})

	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body SessionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"alpha", "zulu"}, body.Sessions)

	rec = httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSessionMessages(t *testing.T) {
	gw, _ := newTestGateway(t)
	h := gw.Handler()

	for _, msg := range []string{"hi", "what's my balance", "thanks"} {
		decodeChat(t, postChat(t, h, fmt.Sprintf(`{"message":%q,"session_id":"bob"}`, msg)))
	}

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec
	}

	rec := get("/api/sessions/bob/messages")
	require.Equal(t, http.StatusOK, rec.Code)
	var body SessionMessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bob", body.SessionID)
	require.Len(t, body.Messages, 6)
	assert.Equal(t, "user", body.Messages[0].Role)
	assert.Equal(t, "hi", body.Messages[0].Message)
	assert.Equal(t, "bot", body.Messages[5].Role)
	assert.Equal(t, dispatch.ReplyThanks, body.Messages[5].Message)

	rec = get("/api/sessions/bob/messages?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body = SessionMessagesResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "thanks", body.Messages[0].Message)

	rec = get("/api/sessions/nobody/messages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)

	for _, bad := range []string{"0", "-3", "ten"} {
		rec = get("/api/sessions/bob/messages?limit=" + bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", bad)
	}
}

func TestCORS(t *testing.T) {
	gw, _ := newTestGateway(t)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.AllowedOrigins = []string{"https://ok.example.com"}
	gw := NewWithLog(cfg, store.NewMockStore(), testLogger())
	defer gw.Shutdown(context.Background())

	for origin, want := range map[string]string{
		"https://ok.example.com":  "https://ok.example.com",
		"https://bad.example.com": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		gw.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

// nopHandle is a session.Handle that discards everything.
type nopHandle struct{}

func (nopHandle) Send(context.Context, []byte) error  { return nil }
func (nopHandle) Close(context.Context, string) error { return nil }
