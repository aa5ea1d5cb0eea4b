package realtime

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

type MemoryBroker struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]map[int]chan models.Notification
	nextID      int
	closed      bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subscribers: make(map[uuid.UUID]map[int]chan models.Notification)}
}

// Publish never blocks; a subscriber whose buffer is full misses the event.
func (broker *MemoryBroker) Publish(_ context.Context, notification models.Notification) error {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	for _, events := range broker.subscribers[notification.UserID] {
		select {
		case events <- notification:
		default:
			log.Printf("realtime: dropped notification %s for slow subscriber of %s", notification.ID, notification.UserID)
		}
	}
	return nil
}

func (broker *MemoryBroker) Subscribe(_ context.Context, userID uuid.UUID) (*Subscription, error) {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	events := make(chan models.Notification, subscriptionBuffer)
	if broker.closed {
		close(events)
		return newSubscription(events, func() {}), nil
	}

	id := broker.nextID
	broker.nextID++
	if broker.subscribers[userID] == nil {
		broker.subscribers[userID] = make(map[int]chan models.Notification)
	}
	broker.subscribers[userID][id] = events

	return newSubscription(events, func() {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		userSubscribers, ok := broker.subscribers[userID]
		if !ok {
			return
		}
		if _, ok := userSubscribers[id]; !ok {
			return
		}
		delete(userSubscribers, id)
		if len(userSubscribers) == 0 {
			delete(broker.subscribers, userID)
		}
		close(events)
	}), nil
}

func (broker *MemoryBroker) SubscriberCount(userID uuid.UUID) int {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	return len(broker.subscribers[userID])
}

func (broker *MemoryBroker) Close() error {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	for userID, userSubscribers := range broker.subscribers {
		for _, events := range userSubscribers {
			close(events)
		}
		delete(broker.subscribers, userID)
	}
	broker.closed = true
	return nil
}
