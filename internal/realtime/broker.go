package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

const subscriptionBuffer = 16

// Broker fans inserted notifications out to the subscribers of their user.
type Broker interface {
	Publish(ctx context.Context, notification models.Notification) error
	Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	Close() error
}

type Subscription struct {
	Events <-chan models.Notification

	closeOnce sync.Once
	closeFunc func()
}

func newSubscription(events <-chan models.Notification, closeFunc func()) *Subscription {
	return &Subscription{Events: events, closeFunc: closeFunc}
}

// Close stops delivery and closes Events. Safe to call more than once.
func (subscription *Subscription) Close() {
	subscription.closeOnce.Do(subscription.closeFunc)
}
