package chathub

// Conn is the interface for any type of live connection attached to a
// chat session (e.g. WebSocket). It abstracts the underlying transport,
// allowing the session to manage different client types uniformly.
type Conn interface {
	// UserID returns the unique identifier of the user behind the connection.
	UserID() string

	// Send queues a payload for delivery. It must not block: a slow or
	// dead connection reports an error instead, which the session treats
	// as a lost connection.
	Send(payload []byte) error

	// Close shuts the connection down. Safe to call more than once.
	Close()
}
