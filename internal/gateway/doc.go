// Package gateway exposes the conversation engine over HTTP and WebSocket.
//
// # Overview
//
// The gateway owns the message log, the conversation engine and the session
// registry, and serves them on one HTTP listener.
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled
//
// # Endpoints
//
//   - POST /chat: {message, session_id} -> {reply, intent, timestamp}
//   - GET /ws/{session_id}: WebSocket stream, one turn per frame
//   - GET /health: liveness, {status, time}
//   - GET /health/ready: readiness with the live session count
//   - GET /api/sessions: ids of sessions with a live stream
//   - GET /api/sessions/{session_id}/messages?limit=N: logged history
//
// A /chat request without session_id uses sessions.guest_id from the config.
// Errors are returned as {"error": "..."}; a failed log write is a 500.
//
// # Streams
//
// On connect the stream is registered under its session id, replacing and
// closing any previous connection for that id, and a welcome frame is sent:
//
//	{"reply": "Connected to <server.name> as <session_id>. Say hi!"}
//
// Each inbound frame is parsed by parseFrame: a JSON object with a string
// "message" field contributes that field, anything else is taken verbatim.
// The reply envelope is written back as one text frame. If the turn cannot
// be logged an {"error": ...} frame is sent and the stream stays open.
//
// # Shutdown
//
// Shutdown closes every live stream, stops the HTTP server within
// server.shutdown_timeout and then closes the message log.
package gateway
