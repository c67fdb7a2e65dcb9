// ABOUTME: Tests for the intent dispatcher and built-in handlers
// ABOUTME: Verifies fallback totality, registration replacement and reply texts

package dispatch

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PAVANISAGAR17/student-bot/internal/intent"
)

func TestDispatch_UnknownLabelUsesFallback(t *testing.T) {
	d := Default()
	assert.Equal(t, ReplyFallback, d.Dispatch("weather", "is it sunny", nil))
	assert.Equal(t, ReplyFallback, d.Dispatch("", "", nil))
	assert.Equal(t, ReplyFallback, d.Dispatch(intent.Fallback, "xyz", nil))
}

func TestDispatch_BuiltInReplies(t *testing.T) {
	d := Default()

	tests := []struct {
		label string
		text  string
		want  string
	}{
		{intent.NetworkIssue, "I have no signal at home", ReplyNoSignal},
		{intent.NetworkIssue, "NO SERVICE since morning", ReplyNoSignal},
		{intent.NetworkIssue, "my slow data is awful", ReplySlowData},
		{intent.NetworkIssue, "dropped call again", ReplyNetworkPrompt},
		{intent.AccountQuery, "what's my balance", ReplyBalance},
		{intent.SymptomCheck, "I have a fever", ReplyFever},
		{intent.SymptomCheck, "my temperature is high", ReplyFever},
		{intent.SymptomCheck, "severe chest pain", ReplyUrgent},
		{intent.SymptomCheck, "a cough", ReplySymptomPrompt},
		{intent.BookAppointment, "I need a doctor", ReplyAppointment},
		{intent.Greeting, "hello", ReplyGreeting},
		{intent.Thanks, "thanks", ReplyThanks},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.label, tt.text), func(t *testing.T) {
			assert.Equal(t, tt.want, d.Dispatch(tt.label, tt.text, Context{}))
		})
	}
}

func TestDispatch_FeverBeatsRedFlagsWhenBothPresent(t *testing.T) {
	// Fever advice already points at urgent care, and it is checked first
	got := Default().Dispatch(intent.SymptomCheck, "fever and shortness of breath", nil)
	assert.Equal(t, ReplyFever, got)
}

func TestResponseTable_FirstMatchWins(t *testing.T) {
	table := newResponseTable("default",
		when(`\bsignal\b`, "first"),
		when(`\b(signal|data)\b`, "second"),
	)

	assert.Equal(t, "first", table.Reply("signal and data", nil))
	assert.Equal(t, "second", table.Reply("DATA", nil))
	assert.Equal(t, "default", table.Reply("nothing here", nil))
	assert.Equal(t, "default", table.Reply("", nil))
}

func TestResponseTable_ReplyIsIndependentOfIntentLabels(t *testing.T) {
	// A reply that happens to equal a reserved label is still returned as-is
	table := newResponseTable("default", when(`\bfoo\b`, intent.Fallback))
	assert.Equal(t, intent.Fallback, table.Reply("foo", nil))
}

func TestResponseTable_UnicodeWordBoundaries(t *testing.T) {
	d := Default()
	assert.Equal(t, ReplyNetworkPrompt, d.Dispatch(intent.NetworkIssue, "connexion slowé", nil))
	assert.Equal(t, ReplyNetworkPrompt, d.Dispatch(intent.NetworkIssue, "no signalé", nil))
	assert.Equal(t, ReplySymptomPrompt, d.Dispatch(intent.SymptomCheck, "fièvre, feveré", nil))
	assert.Equal(t, ReplyFever, d.Dispatch(intent.SymptomCheck, "fièvre / fever", nil))
}

func TestWhen_PanicsOnInvalidPattern(t *testing.T) {
	assert.Panics(t, func() { when(`(`, "x") })
}

func TestBalanceReplyQuotesMockBalance(t *testing.T) {
	assert.Contains(t, ReplyBalance, "₹199.50")
}

func TestRegister_ReplacesHandler(t *testing.T) {
	d := Default()
	d.Register(intent.Greeting, HandlerFunc(func(string, Context) string { return "yo" }))
	assert.Equal(t, "yo", d.Dispatch(intent.Greeting, "hi", nil))

	// A nil registration leaves the existing handler in place
	d.Register(intent.Greeting, nil)
	assert.Equal(t, "yo", d.Dispatch(intent.Greeting, "hi", nil))
}

func TestRegister_CanReplaceFallback(t *testing.T) {
	d := New(Fallback())
	d.Register(intent.Fallback, HandlerFunc(func(string, Context) string { return "huh?" }))
	assert.Equal(t, "huh?", d.Dispatch("anything", "", nil))
}

func TestDispatch_PassesContextThrough(t *testing.T) {
	d := New(Fallback())
	d.Register("echo", HandlerFunc(func(text string, ctx Context) string {
		return fmt.Sprintf("%s:%v", text, ctx["session_id"])
	}))

	got := d.Dispatch("echo", "hi", Context{"session_id": "s1"})
	assert.Equal(t, "hi:s1", got)

	// nil context arrives as an empty map, never nil
	d.Register("nilcheck", HandlerFunc(func(_ string, ctx Context) string {
		if ctx == nil {
			return "nil"
		}
		return "ok"
	}))
	assert.Equal(t, "ok", d.Dispatch("nilcheck", "", nil))
}

func TestNew_RequiresFallback(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestLabels_CoverDefaultClassifier(t *testing.T) {
	labels := Default().Labels()
	for _, l := range intent.Default().Labels() {
		assert.Contains(t, labels, l)
	}
	require.True(t, assertSorted(labels))
}

func TestDispatch_ConcurrentRegisterAndDispatch(t *testing.T) {
	d := Default()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			label := fmt.Sprintf("custom-%d", i)
			d.Register(label, static(label))
		}(i)
		go func() {
			defer wg.Done()
			assert.Equal(t, ReplyGreeting, d.Dispatch(intent.Greeting, "hi", nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, "custom-7", d.Dispatch("custom-7", "", nil))
}

func assertSorted(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
