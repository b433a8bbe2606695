// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the table handler.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	ForcedDisconnectError = 3001 // The table ended this session (kick, reset, newer session).
	SlowConsumerError     = 3002 // The outbound queue overflowed.
)
