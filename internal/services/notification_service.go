package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

type NotificationPublisher interface {
	Publish(ctx context.Context, notification models.Notification) error
}

type NotificationService struct {
	notifications NotificationRepository
	publisher     NotificationPublisher
}

func NewNotificationService(notifications NotificationRepository, publisher NotificationPublisher) *NotificationService {
	return &NotificationService{notifications: notifications, publisher: publisher}
}

// Notify persists first; a failed realtime push is logged and the row stays.
func (service *NotificationService) Notify(ctx context.Context, userID uuid.UUID, title string, message string, kind string) (models.Notification, error) {
	notification := models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	}
	if err := service.notifications.Create(ctx, &notification); err != nil {
		return models.Notification{}, fmt.Errorf("insert notification: %w", err)
	}

	if service.publisher != nil {
		if err := service.publisher.Publish(ctx, notification); err != nil {
			log.Printf("notifications: publish %s failed: %v", notification.ID, err)
		}
	}
	return notification, nil
}
