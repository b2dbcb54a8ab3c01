package models

// Perspective labels used when replaying a backlog to a participant:
// their own messages are marked YOU, the counterpart's ANON.
const (
	FromYou  = "YOU"
	FromAnon = "ANON"
)

// Event types delivered over a live chat connection.
const (
	EventMessage  = "message"
	EventPeerLeft = "peer_left"
)

// ChatEvent is a single frame sent to a connected participant.
type ChatEvent struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id,omitempty"`
	From      string `json:"from,omitempty"`
	Text      string `json:"text,omitempty"`
}

// PerspectiveMessage is a backlog entry annotated from the point of view
// of the user it is sent to.
type PerspectiveMessage struct {
	MessageID int64  `json:"message_id"`
	From      string `json:"from"`
	Text      string `json:"text"`
}
