package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq" // Необхідний для pq.StringArray
	"gorm.io/gorm"
)

// User представляє зареєстрованого користувача.
type User struct {
	ID            string         `gorm:"primaryKey;type:uuid" json:"id"` // Анонімний UUID
	Username      string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash  string         `gorm:"not null" json:"-"`
	DisplayedName string         `json:"displayed_name"`
	Interests     pq.StringArray `gorm:"type:text[]" json:"interests,omitempty"` // Для зберігання тегів
}

// BeforeCreate — це хук GORM, який викликається перед створенням запису.
// Він генерує новий UUID для користувача, якщо ID ще не встановлено.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
