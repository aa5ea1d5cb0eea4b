package models

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`

	// TelegramChatID is where this user's bell mirrors to when a bot is
	// configured. Empty means the user has not linked a chat.
	TelegramChatID string `gorm:"column:telegram_chat_id;not null;default:''" json:"-"`
}
