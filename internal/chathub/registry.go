package chathub

import (
	"anonchat/backend/internal/storage"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// SessionRegistry owns the set of live chat sessions, keyed by session
// id. A session lives here from creation (or reload from storage) until
// its last connection detaches.
type SessionRegistry struct {
	gateway storage.Gateway

	mu       sync.Mutex
	sessions map[string]*ChatSession
}

// NewSessionRegistry створює новий реєстр сесій.
func NewSessionRegistry(gateway storage.Gateway) *SessionRegistry {
	return &SessionRegistry{
		gateway:  gateway,
		sessions: make(map[string]*ChatSession),
	}
}

// Create mints a fresh session with an empty backlog and registers it.
func (r *SessionRegistry) Create() *ChatSession {
	id := uuid.New().String()
	sess := newChatSession(id, r.gateway)

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	if err := r.gateway.MarkSessionActive(id); err != nil {
		log.Printf("REGISTRY: failed to mark session %s active: %v", id, err)
	}
	log.Printf("REGISTRY: created chat session %s", id)
	return sess
}

// LookupOrLoad returns the live session for the id, reviving it from
// the persistence gateway if a saved transcript exists. The registry
// lock is held across the load so a concurrent lookup cannot register
// the same chat twice.
func (r *SessionRegistry) LookupOrLoad(id string) (*ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		return sess, nil
	}

	stored, err := r.gateway.LoadMessages(id)
	if err != nil {
		return nil, fmt.Errorf("load chat %s: %w", id, err)
	}
	if len(stored) == 0 {
		return nil, ErrSessionNotFound
	}

	sess := restoreChatSession(id, r.gateway, stored)
	r.sessions[id] = sess

	if err := r.gateway.MarkSessionActive(id); err != nil {
		log.Printf("REGISTRY: failed to mark session %s active: %v", id, err)
	}
	log.Printf("REGISTRY: restored chat session %s with %d messages", id, len(stored))
	return sess, nil
}

// Attach registers the connection on the session and makes sure the
// session is present in the live set. The whole step runs under the
// registry lock so it cannot lose against a RetireIfEmpty that saw the
// session empty while the joiner was still authenticating; a session
// evicted during that window is put back before the connection lands.
func (r *SessionRegistry) Attach(sess *ChatSession, userID string, conn Conn) {
	r.mu.Lock()
	_, present := r.sessions[sess.ID()]
	r.sessions[sess.ID()] = sess
	sess.Attach(userID, conn)
	r.mu.Unlock()

	if !present {
		if err := r.gateway.MarkSessionActive(sess.ID()); err != nil {
			log.Printf("REGISTRY: failed to mark session %s active: %v", sess.ID(), err)
		}
		log.Printf("REGISTRY: reinstated chat session %s", sess.ID())
	}
}

// RetireIfEmpty evicts the session from the live set once its last
// connection is gone. A saved transcript stays retrievable through
// LookupOrLoad.
func (r *SessionRegistry) RetireIfEmpty(id string) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok || !sess.Empty() {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	if err := r.gateway.MarkSessionClosed(id); err != nil {
		log.Printf("REGISTRY: failed to mark session %s closed: %v", id, err)
	}
	log.Printf("REGISTRY: retired chat session %s", id)
}

// Live returns the number of sessions currently registered.
func (r *SessionRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
