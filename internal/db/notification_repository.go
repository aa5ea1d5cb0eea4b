package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	database *gorm.DB
}

func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{database: database}
}

func (repo *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return repo.database.WithContext(ctx).Create(notification).Error
}

func (repo *NotificationRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	notifications := make([]models.Notification, 0)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (repo *NotificationRepository) MarkRead(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	return repo.database.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true).Error
}

func (repo *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return repo.database.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}
