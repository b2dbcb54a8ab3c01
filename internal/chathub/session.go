package chathub

import (
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"
	"encoding/json"
	"log"
	"sync"
)

// ChatSession is one paired conversation. It owns the set of attached
// connections (at most two for a live chat), the ordered message backlog
// and the save state. All mutation goes through its mutex; broadcast is
// sequential, so every recipient observes messages in submission order.
type ChatSession struct {
	id      string
	gateway storage.Gateway

	mu            sync.Mutex
	clients       map[string]Conn
	messages      []message
	lastMessageID int64
	savedBy       map[string]struct{}
	persisted     bool
}

type message struct {
	id   int64
	from string
	text string
}

func newChatSession(id string, gateway storage.Gateway) *ChatSession {
	return &ChatSession{
		id:      id,
		gateway: gateway,
		clients: make(map[string]Conn),
		savedBy: make(map[string]struct{}),
	}
}

// restoreChatSession materializes a session from a stored transcript.
// It starts with no clients, the restored backlog, and message ids
// continuing from the stored maximum.
func restoreChatSession(id string, gateway storage.Gateway, stored []models.ChatMessage) *ChatSession {
	s := newChatSession(id, gateway)
	for _, m := range stored {
		s.messages = append(s.messages, message{
			id:   m.MessageID,
			from: m.SenderID,
			text: m.Text,
		})
		if m.MessageID > s.lastMessageID {
			s.lastMessageID = m.MessageID
		}
	}
	s.persisted = true
	return s
}

// ID returns the session's unique identifier.
func (s *ChatSession) ID() string { return s.id }

// Empty reports whether no connection is currently attached.
func (s *ChatSession) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients) == 0
}

// Attach registers a connection and replays the backlog to it from the
// user's own perspective. The replay happens under the session lock,
// serialized with broadcasts: a concurrent message is either part of
// the replayed backlog or delivered after it, never before. A second
// attach by the same user replaces the previous connection, which is
// closed.
func (s *ChatSession) Attach(userID string, conn Conn) {
	s.mu.Lock()
	old := s.clients[userID]
	s.clients[userID] = conn
	backlog := s.backlogLocked(userID)
	payload, _ := json.Marshal(backlog)
	err := conn.Send(payload) // Send never blocks, see Conn
	s.mu.Unlock()

	if old != nil && old != conn {
		log.Printf("CHAT %s: user %s reconnected, closing previous connection", s.id, userID)
		old.Close()
	}

	if err != nil {
		log.Printf("CHAT %s: failed to replay backlog to user %s: %v", s.id, userID, err)
		return
	}
	log.Printf("CHAT %s: sent %d backlog messages to user %s", s.id, len(backlog), userID)
}

// HandleIncoming appends a new message to the backlog, rebroadcasts it
// to every other attached connection and, if the session is saved,
// appends it to durable storage. A failed send to one peer detaches
// that peer and never aborts delivery to others or the sender's call.
// A failed persistence write is logged and never blocks the broadcast.
func (s *ChatSession) HandleIncoming(fromID, text string) {
	s.mu.Lock()

	s.lastMessageID++
	msg := message{id: s.lastMessageID, from: fromID, text: text}
	s.messages = append(s.messages, msg)

	payload, _ := json.Marshal(models.ChatEvent{
		Type:      models.EventMessage,
		MessageID: msg.id,
		From:      models.FromAnon,
		Text:      text,
	})

	var lost []Conn
	for userID, c := range s.clients {
		if userID == fromID {
			continue
		}
		if err := c.Send(payload); err != nil {
			log.Printf("CHAT %s: %v while broadcasting to user %s", s.id, ErrConnectionLost, userID)
			lost = append(lost, c)
		}
	}
	persisted := s.persisted
	s.mu.Unlock()

	// A recipient we could not reach is detached right here, not left
	// behind as a zombie entry until its transport notices.
	for _, c := range lost {
		s.Detach(c.UserID(), c)
		c.Close()
	}

	if persisted {
		err := s.gateway.AppendMessage(&models.ChatMessage{
			ChatID:    s.id,
			MessageID: msg.id,
			SenderID:  fromID,
			Text:      text,
		})
		if err != nil {
			log.Printf("CHAT %s: failed to persist message %d: %v", s.id, msg.id, err)
		}
	}
}

// Detach removes the given connection and notifies the remaining
// participants that their peer left. It is a no-op if the user is not
// attached or was already replaced by a newer connection.
func (s *ChatSession) Detach(userID string, conn Conn) {
	s.mu.Lock()
	cur, ok := s.clients[userID]
	if !ok || (conn != nil && cur != conn) {
		s.mu.Unlock()
		return
	}
	delete(s.clients, userID)
	remaining := make([]Conn, 0, len(s.clients))
	for _, c := range s.clients {
		remaining = append(remaining, c)
	}
	s.mu.Unlock()

	log.Printf("CHAT %s: user %s had left", s.id, userID)

	payload, _ := json.Marshal(models.ChatEvent{
		Type: models.EventPeerLeft,
		Text: "ANON HAD LEFT",
	})
	for _, c := range remaining {
		if err := c.Send(payload); err != nil {
			log.Printf("CHAT %s: failed to notify user %s about the leave: %v", s.id, c.UserID(), err)
		}
	}
}

// Kick detaches whatever connection the user currently has and closes
// it. Used by the explicit leave endpoint.
func (s *ChatSession) Kick(userID string) bool {
	s.mu.Lock()
	c := s.clients[userID]
	s.mu.Unlock()
	if c == nil {
		return false
	}
	s.Detach(userID, c)
	c.Close()
	return true
}

// Save persists the session for the given owner. The first save writes
// the whole backlog and the owner's record in one transaction; any
// later save, by this or the other participant, only upserts the title.
// The session lock is held across the write so no message can slip
// between the transcript snapshot and the saved mark.
func (s *ChatSession) Save(ownerID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persisted {
		if err := s.gateway.UpsertSavedChat(s.id, ownerID, title); err != nil {
			return err
		}
		s.savedBy[ownerID] = struct{}{}
		return nil
	}

	msgs := make([]models.ChatMessage, 0, len(s.messages))
	for _, m := range s.messages {
		msgs = append(msgs, models.ChatMessage{
			ChatID:    s.id,
			MessageID: m.id,
			SenderID:  m.from,
			Text:      m.text,
		})
	}
	if err := s.gateway.SaveTranscript(s.id, msgs, ownerID, title); err != nil {
		return err
	}
	s.persisted = true
	s.savedBy[ownerID] = struct{}{}
	log.Printf("CHAT %s: saved by user %s with %d messages", s.id, ownerID, len(msgs))
	return nil
}

// Backlog returns the message history annotated from the given user's
// perspective: their own messages as YOU, the counterpart's as ANON.
func (s *ChatSession) Backlog(userID string) []models.PerspectiveMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backlogLocked(userID)
}

func (s *ChatSession) backlogLocked(userID string) []models.PerspectiveMessage {
	backlog := make([]models.PerspectiveMessage, 0, len(s.messages))
	for _, m := range s.messages {
		from := models.FromAnon
		if m.from == userID {
			from = models.FromYou
		}
		backlog = append(backlog, models.PerspectiveMessage{
			MessageID: m.id,
			From:      from,
			Text:      m.text,
		})
	}
	return backlog
}
