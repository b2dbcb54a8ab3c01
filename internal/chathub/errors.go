package chathub

import "errors"

var (
	// ErrAlreadySearching is returned by Search when the caller already
	// occupies the pending slot.
	ErrAlreadySearching = errors.New("already searching")
	// ErrNotSearching is returned by Abort when the pending slot is empty
	// or occupied by someone else.
	ErrNotSearching = errors.New("was not searching")
	// ErrSearchAborted is returned by a suspended Search whose slot was
	// resolved by Abort instead of a pairing.
	ErrSearchAborted = errors.New("search aborted")
	// ErrSessionNotFound is returned by LookupOrLoad when a chat id has
	// neither a live session nor a persisted transcript.
	ErrSessionNotFound = errors.New("chat session not found")
	// ErrConnectionLost reports a failed best-effort send to one peer.
	// It is handled inside the session and never reaches the sender.
	ErrConnectionLost = errors.New("connection lost")
)
