package chathub

import (
	"anonchat/backend/internal/storage"
	"log"
	"sync"
)

// MatchBroker pairs searching users into new chat sessions. There is a
// single pending slot: the first searcher parks in it and suspends, the
// next distinct searcher takes them out and both receive the same fresh
// session id. The slot is not a queue.
type MatchBroker struct {
	registry *SessionRegistry
	gateway  storage.Gateway

	mu      sync.Mutex
	pending *pendingSearch
}

// pendingSearch is the one waiting searcher. Its result channel is
// buffered and written to exactly once: either with the new session id,
// or with "" meaning the search was aborted.
type pendingSearch struct {
	userID string
	result chan string
}

// NewMatchBroker створює новий брокер пошуку.
func NewMatchBroker(registry *SessionRegistry, gateway storage.Gateway) *MatchBroker {
	return &MatchBroker{
		registry: registry,
		gateway:  gateway,
	}
}

// Search pairs the caller with the currently waiting searcher, or parks
// the caller as the new waiting searcher until someone else arrives.
// It blocks on the parked path; the only way to release it early is
// Abort. Returns the session id both sides share.
func (b *MatchBroker) Search(userID string) (string, error) {
	b.mu.Lock()

	if p := b.pending; p != nil {
		if p.userID == userID {
			// Repeat call by the parked user, slot stays untouched.
			b.mu.Unlock()
			return "", ErrAlreadySearching
		}

		// Take the waiting searcher out of the slot first: once the
		// slot is empty, a concurrent Abort is a clean ErrNotSearching
		// and a third searcher parks as the new sole pending search.
		b.pending = nil
		b.mu.Unlock()

		sess := b.registry.Create()
		log.Printf("BROKER: paired %s with %s in chat %s", userID, p.userID, sess.ID())

		p.result <- sess.ID()
		return sess.ID(), nil
	}

	p := &pendingSearch{
		userID: userID,
		result: make(chan string, 1),
	}
	b.pending = p
	b.mu.Unlock()

	if err := b.gateway.AddSearchingUser(userID); err != nil {
		log.Printf("BROKER: failed to record searching user %s: %v", userID, err)
	}
	log.Printf("BROKER: %s is waiting for a match", userID)

	// Suspend until the slot is resolved by a pairing or an abort.
	chatID := <-p.result

	if err := b.gateway.RemoveSearchingUser(userID); err != nil {
		log.Printf("BROKER: failed to clear searching user %s: %v", userID, err)
	}

	if chatID == "" {
		return "", ErrSearchAborted
	}
	return chatID, nil
}

// Abort resolves the caller's own pending search with "aborted",
// releasing the suspended Search call.
func (b *MatchBroker) Abort(userID string) error {
	b.mu.Lock()
	p := b.pending
	if p == nil || p.userID != userID {
		// Either nobody is waiting or the slot belongs to another user;
		// in particular a pairing that already emptied the slot wins.
		b.mu.Unlock()
		return ErrNotSearching
	}
	b.pending = nil
	b.mu.Unlock()

	log.Printf("BROKER: %s aborted their search", userID)
	p.result <- ""
	return nil
}

// Searching reports whether the pending slot is currently occupied by
// the given user.
func (b *MatchBroker) Searching(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil && b.pending.userID == userID
}
