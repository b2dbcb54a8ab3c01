package storage

import (
	"anonchat/backend/internal/models"
	"context"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gateway is the persistence contract the chat core depends on.
// PostgreSQL holds the durable data (messages, saved-chat records);
// Redis holds volatile bookkeeping (active sessions, searching users).
type Gateway interface {
	// LoadMessages returns the stored backlog of a chat ordered by
	// message id. An empty slice means the chat was never saved.
	LoadMessages(chatID string) ([]models.ChatMessage, error)
	// AppendMessage stores one message of an already-saved chat.
	AppendMessage(msg *models.ChatMessage) error
	// SaveTranscript persists a full backlog together with the owner's
	// saved-chat record in one transaction. Message inserts are
	// idempotent, so a partially repeated save never duplicates rows.
	SaveTranscript(chatID string, msgs []models.ChatMessage, ownerID, title string) error
	// LoadSavedChat returns the owner's record for a chat, or nil.
	LoadSavedChat(chatID, ownerID string) (*models.SavedChat, error)
	// UpsertSavedChat creates or retitles the owner's record.
	UpsertSavedChat(chatID, ownerID, title string) error
	// ListSavedChats maps chat id -> title for everything the owner saved.
	ListSavedChats(ownerID string) (map[string]string, error)

	MarkSessionActive(chatID string) error
	MarkSessionClosed(chatID string) error
	ActiveSessionIDs() ([]string, error)

	AddSearchingUser(userID string) error
	RemoveSearchingUser(userID string) error
	SearchingUsers() ([]string, error)
}

const (
	activeSessionsKey = "active_sessions"
	searchQueueKey    = "search_queue"
)

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewService Constructor
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// LoadMessages завантажує збережену історію повідомлень чату.
func (s *Service) LoadMessages(chatID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.DB.Where("chat_id = ?", chatID).
		Order("message_id asc").
		Find(&msgs).Error
	if err != nil {
		log.Printf("ERROR: Failed to load messages for chat %s: %v", chatID, err)
		return nil, err
	}
	return msgs, nil
}

// AppendMessage зберігає одне повідомлення в PostgreSQL.
func (s *Service) AppendMessage(msg *models.ChatMessage) error {
	// (chat_id, message_id) is the primary key; a replayed id is a no-op.
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(msg).Error
}

// SaveTranscript зберігає весь backlog та запис SavedChat однією транзакцією.
func (s *Service) SaveTranscript(chatID string, msgs []models.ChatMessage, ownerID, title string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if len(msgs) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(msgs, 100).Error; err != nil {
				return err
			}
		}
		return upsertSavedChat(tx, chatID, ownerID, title)
	})
}

// LoadSavedChat повертає запис SavedChat власника, або nil якщо його немає.
func (s *Service) LoadSavedChat(chatID, ownerID string) (*models.SavedChat, error) {
	var saved models.SavedChat
	err := s.DB.Where("chat_id = ? AND owner_id = ?", chatID, ownerID).
		First(&saved).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpsertSavedChat створює або оновлює заголовок запису SavedChat.
func (s *Service) UpsertSavedChat(chatID, ownerID, title string) error {
	return upsertSavedChat(s.DB, chatID, ownerID, title)
}

func upsertSavedChat(tx *gorm.DB, chatID, ownerID, title string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
	}).Create(&models.SavedChat{
		ChatID:  chatID,
		OwnerID: ownerID,
		Title:   title,
	}).Error
}

// ListSavedChats повертає всі збережені чати користувача: chat_id -> title.
func (s *Service) ListSavedChats(ownerID string) (map[string]string, error) {
	var saved []models.SavedChat
	if err := s.DB.Where("owner_id = ?", ownerID).
		Order("updated_at desc").
		Find(&saved).Error; err != nil {
		log.Printf("ERROR: Failed to list saved chats for user %s: %v", ownerID, err)
		return nil, err
	}
	return lo.SliceToMap(saved, func(sc models.SavedChat) (string, string) {
		return sc.ChatID, sc.Title
	}), nil
}

// MarkSessionActive додає сесію до множини активних у Redis.
func (s *Service) MarkSessionActive(chatID string) error {
	return s.Redis.SAdd(s.Ctx, activeSessionsKey, chatID).Err()
}

// MarkSessionClosed видаляє сесію з множини активних у Redis.
func (s *Service) MarkSessionClosed(chatID string) error {
	return s.Redis.SRem(s.Ctx, activeSessionsKey, chatID).Err()
}

// ActiveSessionIDs повертає всі сесії, активні в даний момент.
func (s *Service) ActiveSessionIDs() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, activeSessionsKey).Result()
}

// AddSearchingUser додає користувача до черги пошуку в Redis.
func (s *Service) AddSearchingUser(userID string) error {
	return s.Redis.SAdd(s.Ctx, searchQueueKey, userID).Err()
}

// RemoveSearchingUser видаляє користувача з черги пошуку в Redis.
func (s *Service) RemoveSearchingUser(userID string) error {
	return s.Redis.SRem(s.Ctx, searchQueueKey, userID).Err()
}

// SearchingUsers повертає всіх користувачів, які зараз шукають пару.
func (s *Service) SearchingUsers() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, searchQueueKey).Result()
}

// PurgeChat видаляє збережений чат та його повідомлення. Admin CLI only.
func (s *Service) PurgeChat(chatID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).
			Delete(&models.SavedChat{}).Error; err != nil {
			return err
		}
		return tx.Where("chat_id = ?", chatID).
			Delete(&models.ChatMessage{}).Error
	})
}
