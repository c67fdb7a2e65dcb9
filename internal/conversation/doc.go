// Package conversation runs chat turns against the message log.
//
// # Overview
//
// The conversation package sits between the transports (HTTP and WebSocket)
// and the core: the message log, the intent classifier and the reply
// dispatcher. Every transport calls the same Engine, so a turn behaves the
// same no matter how it arrived.
//
// # Engine
//
//	eng := conversation.New(conversation.Options{Log: log, Logger: logger})
//	env, err := eng.Process(ctx, "I have no signal", "alice", nil)
//
// Key operations:
//
//   - Process(ctx, text, sessionID, hctx): Run one turn and return its Envelope
//   - History(ctx, sessionID, limit): Logged messages of a session, oldest first
//
// # Turn Order
//
// A turn follows record first, then act:
//
//  1. Append the user message
//  2. Classify the text
//  3. Dispatch to the handler for the label
//  4. Append the reply
//  5. Return {reply, intent, timestamp}
//
// If step 1 fails nothing is answered. If step 4 fails the user row remains
// in the log without a reply; both cases return an error wrapping ErrLogWrite.
//
// # Concurrency
//
// Turns for the same session id are serialized with a keyed lock whose
// entries disappear when no turn holds them. Turns for different sessions
// run in parallel. Once a turn has started, its log writes run on a context
// detached from the caller (bounded by the write timeout), so a client that
// disconnects mid-turn does not leave a half-written turn behind.
package conversation
