// ABOUTME: Rule-table intent classifier: ordered regex rules, first match wins
// ABOUTME: Total function; unmatched text falls back to the reserved "fallback" label

package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Fallback is the reserved label returned when no rule matches.
const Fallback = "fallback"

// FallbackConfidence is the confidence attached to the fallback intent.
const FallbackConfidence = 0.5

// Labels of the built-in rule table
const (
	NetworkIssue    = "network_issue"
	AccountQuery    = "account_query"
	SymptomCheck    = "symptom_check"
	BookAppointment = "book_appointment"
	Greeting        = "greeting"
	Thanks          = "thanks"
)

// Intent is the classified purpose of a single user message.
type Intent struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Rule maps a pattern to a label with a fixed confidence.
type Rule struct {
	Label      string
	Pattern    *regexp.Regexp
	Confidence float64
}

// NewRule compiles pattern with CompilePattern. Confidence is clamped to [0,1].
func NewRule(label, pattern string, confidence float64) (Rule, error) {
	if label == "" {
		return Rule{}, fmt.Errorf("rule label is required")
	}
	re, err := CompilePattern(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compiling rule %q: %w", label, err)
	}
	return Rule{
		Label:      label,
		Pattern:    re,
		Confidence: clamp(confidence),
	}, nil
}

// Guards standing in for a leading or trailing \b. RE2's \b only knows
// ASCII word characters, so "hi" would match inside "hié".
const (
	leadingBoundary  = `(?:^|[^\p{L}\p{M}\p{N}_])`
	trailingBoundary = `(?:[^\p{L}\p{M}\p{N}_]|$)`
)

// CompilePattern compiles pattern case-insensitively. A \b at the very start
// or end of the pattern is a Unicode word boundary, where letters and digits of
// any script (combining marks included) are word characters. The edge guards
// wrap the whole pattern; a \b anywhere else keeps RE2's ASCII meaning.
//
// Matches may include the neighboring separator, so the result is meant for
// MatchString rather than extracting the keyword.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	lead, trail := false, false
	if strings.HasPrefix(pattern, `\b`) {
		pattern, lead = pattern[2:], true
	}
	if endsWithBoundary(pattern) {
		pattern, trail = pattern[:len(pattern)-2], true
	}

	var b strings.Builder
	b.WriteString("(?i)")
	if lead {
		b.WriteString(leadingBoundary)
	}
	b.WriteString("(?:" + pattern + ")")
	if trail {
		b.WriteString(trailingBoundary)
	}
	return regexp.Compile(b.String())
}

// endsWithBoundary reports whether pattern ends in an unescaped \b.
// `\\b` is a literal backslash followed by b.
func endsWithBoundary(pattern string) bool {
	if !strings.HasSuffix(pattern, `\b`) {
		return false
	}
	slashes := 0
	for i := len(pattern) - 2; i >= 0 && pattern[i] == '\\'; i-- {
		slashes++
	}
	return slashes%2 == 1
}

// MustRule is NewRule for static tables; it panics on an invalid pattern.
func MustRule(label, pattern string, confidence float64) Rule {
	r, err := NewRule(label, pattern, confidence)
	if err != nil {
		panic(err)
	}
	return r
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// DefaultRules returns the mobile network and health triage rule table.
// Order is the tie-break: earlier rules win when several match.
func DefaultRules() []Rule {
	return []Rule{
		// mobile network
		MustRule(NetworkIssue, `\b(signal|network|no service|coverage|latency|slow data|dropped call)\b`, 0.9),
		MustRule(AccountQuery, `\b(balance|plan|data left|recharge|top[- ]up|bill)\b`, 0.9),

		// health
		MustRule(SymptomCheck, `\b(symptom|fever|cough|pain|headache|nausea|shortness of breath)\b`, 0.9),
		MustRule(BookAppointment, `\b(appointment|book appointment|doctor|visit|schedule)\b`, 0.9),

		// utility
		MustRule(Greeting, `\b(hi|hello|hey|good morning|good evening)\b`, 0.95),
		MustRule(Thanks, `\b(thank|thanks)\b`, 0.95),
	}
}

// Classifier evaluates an immutable, ordered rule list.
// It is safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over a copy of rules, preserving their order.
func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Default returns a classifier over DefaultRules.
func Default() *Classifier {
	return NewClassifier(DefaultRules()...)
}

// With returns a new classifier with rules appended after the existing ones.
// Existing rules keep their positions, so they keep winning ties.
func (c *Classifier) With(rules ...Rule) *Classifier {
	combined := make([]Rule, 0, len(c.rules)+len(rules))
	combined = append(combined, c.rules...)
	combined = append(combined, rules...)
	return &Classifier{rules: combined}
}

// Classify returns the first matching rule's intent, or the fallback intent.
// Every input, including the empty string, yields exactly one Intent.
func (c *Classifier) Classify(text string) Intent {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, r := range c.rules {
		if r.Pattern.MatchString(t) {
			return Intent{Label: r.Label, Confidence: r.Confidence}
		}
	}
	return Intent{Label: Fallback, Confidence: FallbackConfidence}
}

// Labels lists the distinct rule labels in rule order, followed by Fallback.
func (c *Classifier) Labels() []string {
	seen := make(map[string]bool, len(c.rules)+1)
	labels := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			labels = append(labels, r.Label)
		}
	}
	if !seen[Fallback] {
		labels = append(labels, Fallback)
	}
	return labels
}
