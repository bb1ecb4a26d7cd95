package sse

// Broadcaster is the interface execution-event publishers depend on, so
// they work against a Hub, a Service, or a test double alike.
type Broadcaster interface {
	// BroadcastToPattern sends data to all clients matching the given
	// pattern. Patterns use glob-style matching over client ids, which
	// subscribers shape as "execution:<pipeline>" for run events or
	// "execution:<sessionId>" for a watched session (so a publisher can
	// target "execution:*" or one exact id).
	BroadcastToPattern(pattern string, data []byte)
}
