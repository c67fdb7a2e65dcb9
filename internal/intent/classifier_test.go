// ABOUTME: Tests for the rule-table intent classifier
// ABOUTME: Covers rule order, fallback totality, normalization and rule extension

package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DefaultRules(t *testing.T) {
	c := Default()

	tests := []struct {
		name       string
		text       string
		label      string
		confidence float64
	}{
		{"greeting", "Hello there", Greeting, 0.95},
		{"no signal", "I have no signal at home", NetworkIssue, 0.9},
		{"slow data", "my slow data is killing me", NetworkIssue, 0.9},
		{"balance", "what's my balance", AccountQuery, 0.9},
		{"top up hyphen", "how do I top-up", AccountQuery, 0.9},
		{"top up space", "top up please", AccountQuery, 0.9},
		{"fever", "I have a fever", SymptomCheck, 0.9},
		{"shortness of breath", "shortness of breath since morning", SymptomCheck, 0.9},
		{"doctor", "I need a doctor", BookAppointment, 0.9},
		{"thanks", "thanks a lot", Thanks, 0.95},
		{"nonsense", "xyz nonsense qqq", Fallback, 0.5},
		{"empty", "", Fallback, 0.5},
		{"whitespace", "   \t\n ", Fallback, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			assert.Equal(t, tt.label, got.Label)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
		})
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	c := Default()

	// Mentions both a greeting and a network problem; network rules come first
	got := c.Classify("hi, my network is down")
	assert.Equal(t, NetworkIssue, got.Label)

	// Account rules precede health rules
	got = c.Classify("my bill gives me a headache")
	assert.Equal(t, AccountQuery, got.Label)
}

func TestClassify_WordBoundaries(t *testing.T) {
	c := Default()

	// "hi" inside "this" and "thing" must not count as a greeting
	assert.Equal(t, Fallback, c.Classify("this thing").Label)
	// "plan" inside "planet" is not an account query
	assert.Equal(t, Fallback, c.Classify("planet earth").Label)

	// Accented letters are word characters too
	assert.Equal(t, Fallback, c.Classify("hié").Label)
	assert.Equal(t, Fallback, c.Classify("épain").Label)
	assert.Equal(t, Fallback, c.Classify("billé").Label)
	assert.Equal(t, Fallback, c.Classify("ПРИВЕТhi").Label)
	assert.Equal(t, Fallback, c.Classify("hi\u0301").Label)
	assert.Equal(t, Fallback, c.Classify("hi_there hi2").Label)

	// Non-letters still separate words
	assert.Equal(t, Greeting, c.Classify("café, hi!").Label)
	assert.Equal(t, Greeting, c.Classify("¡hi!").Label)
	assert.Equal(t, SymptomCheck, c.Classify("douleur/pain").Label)
	assert.Equal(t, AccountQuery, c.Classify("«bill»").Label)
	assert.Equal(t, Greeting, c.Classify("hi😀").Label)
}

func TestCompilePattern_EdgeBoundaries(t *testing.T) {
	tests := []struct {
		pattern string
		text    string
		want    bool
	}{
		{`\bpain\b`, "pain", true},
		{`\bpain\b`, "épain", false},
		{`\bpain\b`, "painé", false},
		{`\bpain\b`, "pain.", true},
		// only the leading edge is guarded
		{`\bpain`, "painé", true},
		{`\bpain`, "épain", false},
		// only the trailing edge is guarded
		{`pain\b`, "épain", true},
		{`pain\b`, "painé", false},
		// the guards wrap a top-level alternation as a whole
		{`\bhi|hey\b`, "hié", false},
		{`\bhi|hey\b`, "hey", true},
		// an escaped backslash before b is a literal
		{`a\\b`, `a\b`, true},
		{`a\\b`, "a", false},
		// no edges, no guards
		{`pain`, "épain", true},
		{`PAIN`, "pain", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.text, func(t *testing.T) {
			re, err := CompilePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, re.MatchString(tt.text))
		})
	}
}

func TestClassify_CaseAndWhitespaceInsensitive(t *testing.T) {
	c := Default()
	assert.Equal(t, Greeting, c.Classify("   HELLO   ").Label)
	assert.Equal(t, NetworkIssue, c.Classify("NO SERVICE").Label)
}

func TestClassify_AlwaysReturnsKnownLabel(t *testing.T) {
	c := Default()
	known := make(map[string]bool)
	for _, l := range c.Labels() {
		known[l] = true
	}

	inputs := []string{"", "a", "😀", "hello\x00world", "signal signal", "?!?", "BOOK APPOINTMENT", "☎ coverage ☎"}
	for _, in := range inputs {
		got := c.Classify(in)
		assert.True(t, known[got.Label], "label %q for %q not in rule set", got.Label, in)
		assert.GreaterOrEqual(t, got.Confidence, 0.0)
		assert.LessOrEqual(t, got.Confidence, 1.0)
	}
}

func TestClassifier_WithAppendsWithoutReordering(t *testing.T) {
	base := Default()
	extended := base.With(
		MustRule("roaming", `\broaming\b`, 0.8),
		// would steal greetings if it were placed first
		MustRule("smalltalk", `\bhello\b`, 0.7),
	)

	assert.Equal(t, "roaming", extended.Classify("roaming charges abroad").Label)
	assert.Equal(t, Greeting, extended.Classify("hello").Label)

	// The base classifier is untouched
	assert.Equal(t, Fallback, base.Classify("roaming charges abroad").Label)

	labels := extended.Labels()
	require.Len(t, labels, 9)
	assert.Equal(t, NetworkIssue, labels[0])
	assert.Equal(t, "roaming", labels[6])
	assert.Equal(t, Fallback, labels[8])
}

func TestNewRule(t *testing.T) {
	r, err := NewRule("x", `\bfoo\b`, 1.7)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Confidence)

	r, err = NewRule("x", `\bfoo\b`, -2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Confidence)

	_, err = NewRule("x", `(unclosed`, 0.5)
	assert.Error(t, err)

	_, err = NewRule("", `foo`, 0.5)
	assert.Error(t, err)

	assert.Panics(t, func() { MustRule("x", `[`, 0.5) })
}

func TestNewClassifier_CopiesRules(t *testing.T) {
	rules := []Rule{MustRule("a", `\bfoo\b`, 0.9)}
	c := NewClassifier(rules...)
	rules[0] = MustRule("b", `\bfoo\b`, 0.9)

	assert.Equal(t, "a", c.Classify("foo").Label)
}
