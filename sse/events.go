package sse

// Event type constants for the execution stream.
const (
	// EventTypeConnected is sent when a client successfully connects.
	EventTypeConnected = "connected"

	// EventTypeKeepAlive is used for keep-alive comments.
	EventTypeKeepAlive = "keepalive"

	// EventTypeRun carries a run-level status transition (Completed,
	// Suspended, Failed).
	EventTypeRun = "run"

	// EventTypeNode carries a single node's state transition or resolved
	// output preview.
	EventTypeNode = "node"

	// EventTypeError is sent when an error occurs on the stream itself.
	EventTypeError = "error"
)
