package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationPrescription = "prescription"
	NotificationStoreUpdate  = "store_update"
	NotificationReminder     = "reminder"
)

type Notification struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `gorm:"not null" json:"message"`
	Type      string    `gorm:"not null" json:"type"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (notification *Notification) BeforeCreate(*gorm.DB) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return nil
}

func NotificationIcon(kind string) string {
	switch kind {
	case NotificationStoreUpdate:
		return "📦"
	case NotificationReminder:
		return "⏰"
	case NotificationPrescription:
		return "📋"
	default:
		return "🔔"
	}
}
