package models

import "time"

// ChatMessage is one persisted message of a saved chat. The table is
// append-only: rows are only ever inserted, keyed by (chat_id, message_id),
// so replaying a backlog on save is idempotent.
type ChatMessage struct {
	// ChatID is the identifier of the chat session the message belongs to.
	ChatID string `gorm:"type:uuid;primaryKey"`
	// MessageID is the per-chat sequence number, starting at 1.
	MessageID int64 `gorm:"primaryKey;autoIncrement:false"`
	// SenderID is the anonymous ID of the user who sent the message.
	SenderID string `gorm:"type:uuid;not null"`
	// Text is the message body.
	Text string `gorm:"type:text;not null"`

	CreatedAt time.Time
}

// SavedChat marks a chat session as saved by one of its participants.
// A chat may be saved by either participant independently; each owner
// keeps their own title.
type SavedChat struct {
	ChatID  string `gorm:"type:uuid;primaryKey" json:"chat_id"`
	OwnerID string `gorm:"type:uuid;primaryKey" json:"-"`
	Title   string `gorm:"not null" json:"title"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
