package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

func TestMemoryBrokerDeliversOnlyToOwner(t *testing.T) {
	broker := NewMemoryBroker()
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	ownerSub, err := broker.Subscribe(ctx, owner)
	if err != nil {
		t.Fatalf("subscribe owner: %v", err)
	}
	defer ownerSub.Close()
	otherSub, err := broker.Subscribe(ctx, other)
	if err != nil {
		t.Fatalf("subscribe other: %v", err)
	}
	defer otherSub.Close()

	notification := models.Notification{ID: uuid.New(), UserID: owner, Title: "New Prescription"}
	if err := broker.Publish(ctx, notification); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ownerSub.Events:
		if got.ID != notification.ID {
			t.Fatalf("expected notification %s, got %s", notification.ID, got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected owner to receive notification")
	}

	select {
	case got := <-otherSub.Events:
		t.Fatalf("expected other user to receive nothing, got %+v", got)
	default:
	}
}

func TestMemoryBrokerCloseSubscriptionIsIdempotent(t *testing.T) {
	broker := NewMemoryBroker()
	userID := uuid.New()

	subscription, err := broker.Subscribe(context.Background(), userID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if broker.SubscriberCount(userID) != 1 {
		t.Fatalf("expected one subscriber")
	}

	subscription.Close()
	subscription.Close()

	if broker.SubscriberCount(userID) != 0 {
		t.Fatalf("expected subscriber to be removed")
	}
	if _, ok := <-subscription.Events; ok {
		t.Fatal("expected events channel to be closed")
	}
}

func TestMemoryBrokerPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	broker := NewMemoryBroker()
	userID := uuid.New()

	subscription, err := broker.Subscribe(context.Background(), userID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer subscription.Close()

	for index := 0; index < subscriptionBuffer+5; index++ {
		if err := broker.Publish(context.Background(), models.Notification{ID: uuid.New(), UserID: userID}); err != nil {
			t.Fatalf("publish %d: %v", index, err)
		}
	}
	if len(subscription.Events) != subscriptionBuffer {
		t.Fatalf("expected buffer to be full, got %d", len(subscription.Events))
	}
}

func TestMemoryBrokerCloseEndsSubscriptions(t *testing.T) {
	broker := NewMemoryBroker()
	subscription, err := broker.Subscribe(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := broker.Close(); err != nil {
		t.Fatalf("close broker: %v", err)
	}
	if _, ok := <-subscription.Events; ok {
		t.Fatal("expected events channel to be closed by broker close")
	}
	subscription.Close()
}
