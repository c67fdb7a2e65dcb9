// ABOUTME: Built-in reply handlers for mobile network support and health triage
// ABOUTME: Handlers with sub-cases pick a reply from an ordered keyword table

package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PAVANISAGAR17/student-bot/internal/intent"
)

// Balance is the mock prepaid balance quoted by the account handler.
const Balance = "₹199.50"

// Reply texts of the built-in handlers
const (
	ReplyNoSignal = "I understand you're seeing no network signal. Try: 1) toggle airplane mode off/on, " +
		"2) restart your device, 3) check for network outages in your area. If the problem persists, " +
		"reply with your area PIN or 'outage' to check further."
	ReplySlowData = "Slow data can be caused by congestion. Try switching between 4G/3G, closing background apps, " +
		"or running a speed test. Want me to run a quick diagnostic?"
	ReplyNetworkPrompt = "Can you describe the network problem (e.g., no signal, slow data, dropped calls)?"

	ReplyBalance = "Your current prepaid balance is " + Balance + ". Would you like to recharge now?"

	ReplyFever = "I see you mentioned fever. If temperature > 38°C or you have breathing difficulty, seek urgent care. " +
		"For mild fever, rest, fluids and paracetamol are common. Do you have other symptoms?"
	ReplyUrgent = "These symptoms can be serious. If you are in immediate danger, please call emergency services now."
	ReplySymptomPrompt = "Tell me more about your symptoms (how long, severity). " +
		"I can help suggest next steps or book a tele-appointment."

	ReplyAppointment = "I can help book an appointment. Which date/time and specialty do you prefer? " +
		"Example: 'GP tomorrow morning' or 'Dermatology Nov 6 3pm'."
	ReplyGreeting = "Hello! I can help with mobile network support, account queries, or basic health triage. " +
		"How can I help today?"
	ReplyThanks   = "You're welcome — anything else I can help with?"
	ReplyFallback = "Sorry, I didn't quite get that. Could you rephrase? You can ask about 'network issue', " +
		"'check my balance', or 'I have a fever'."
)

// response is one keyword pattern and the reply it selects.
type response struct {
	re    *regexp.Regexp
	reply string
}

// responseTable picks the reply of the first matching pattern.
// Unmatched text gets the default.
type responseTable struct {
	responses []response
	otherwise string
}

func newResponseTable(otherwise string, responses ...response) *responseTable {
	return &responseTable{responses: responses, otherwise: otherwise}
}

// when pairs a keyword pattern with its reply; patterns use intent.CompilePattern.
func when(pattern, reply string) response {
	re, err := intent.CompilePattern(pattern)
	if err != nil {
		panic(fmt.Sprintf("dispatch: compiling %q: %v", pattern, err))
	}
	return response{re: re, reply: reply}
}

// Reply implements Handler.
func (r *responseTable) Reply(text string, _ Context) string {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, resp := range r.responses {
		if resp.re.MatchString(t) {
			return resp.reply
		}
	}
	return r.otherwise
}

// static always answers with the same text.
func static(reply string) HandlerFunc {
	return func(string, Context) string { return reply }
}

// NetworkIssue distinguishes no-signal from slow-data complaints.
func NetworkIssue() Handler {
	return newResponseTable(ReplyNetworkPrompt,
		when(`\b(no service|no signal|no network)\b`, ReplyNoSignal),
		when(`\b(slow|latency|slow data)\b`, ReplySlowData),
	)
}

// SymptomCheck gives fever advice and escalates red-flag symptoms.
func SymptomCheck() Handler {
	return newResponseTable(ReplySymptomPrompt,
		when(`\b(fever|temperature)\b`, ReplyFever),
		when(`\b(chest pain|shortness of breath|severe|faint)\b`, ReplyUrgent),
	)
}

// AccountQuery quotes the mock prepaid balance.
func AccountQuery() Handler { return static(ReplyBalance) }

// BookAppointment asks for the preferred date and specialty.
func BookAppointment() Handler { return static(ReplyAppointment) }

// Greeting introduces what the bot can do.
func Greeting() Handler { return static(ReplyGreeting) }

// Thanks acknowledges thanks.
func Thanks() Handler { return static(ReplyThanks) }

// Fallback asks the user to rephrase.
func Fallback() Handler { return static(ReplyFallback) }

// Default returns a dispatcher with every built-in handler registered
// under the labels produced by intent.DefaultRules.
func Default() *Dispatcher {
	d := New(Fallback())
	d.Register(intent.NetworkIssue, NetworkIssue())
	d.Register(intent.AccountQuery, AccountQuery())
	d.Register(intent.SymptomCheck, SymptomCheck())
	d.Register(intent.BookAppointment, BookAppointment())
	d.Register(intent.Greeting, Greeting())
	d.Register(intent.Thanks, Thanks())
	return d
}
