package bell

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"github.com/terraincognita07/medremind/internal/realtime"
)

func TestRegistryReusesBellUntilDropped(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	registry := NewRegistry(&stubStore{}, broker, nil)
	defer registry.Close()
	userID := uuid.New()

	first, err := registry.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get bell: %v", err)
	}
	second, err := registry.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get bell again: %v", err)
	}
	if first != second {
		t.Fatal("expected the same bell for the same user")
	}
	if broker.SubscriberCount(userID) != 1 {
		t.Fatalf("expected one realtime subscription, got %d", broker.SubscriberCount(userID))
	}

	registry.Drop(userID)
	if broker.SubscriberCount(userID) != 0 {
		t.Fatal("expected drop to unsubscribe")
	}

	third, err := registry.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get bell after drop: %v", err)
	}
	if third == first {
		t.Fatal("expected a fresh bell after drop")
	}
}

func TestRegistryPruneIdleSkipsStreamingBells(t *testing.T) {
	registry := NewRegistry(&stubStore{}, realtime.NewMemoryBroker(), nil)
	defer registry.Close()

	idleUser := uuid.New()
	streamingUser := uuid.New()
	if _, err := registry.Get(context.Background(), idleUser); err != nil {
		t.Fatalf("get idle bell: %v", err)
	}
	streaming, err := registry.Get(context.Background(), streamingUser)
	if err != nil {
		t.Fatalf("get streaming bell: %v", err)
	}
	_, stop := streaming.Listen()
	defer stop()

	removed := registry.PruneIdle(time.Minute, time.Now().Add(time.Hour))
	if removed != 1 {
		t.Fatalf("expected one idle bell pruned, got %d", removed)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected streaming bell to remain, got %d bells", registry.Len())
	}
}

// gatedStore holds the initial fetch for one user until release is closed.
type gatedStore struct {
	stubStore
	gatedUser uuid.UUID
	entered   chan struct{}
	release   chan struct{}
	fetches   atomic.Int32
}

func (store *gatedStore) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	store.fetches.Add(1)
	if userID == store.gatedUser {
		store.entered <- struct{}{}
		<-store.release
	}
	return store.stubStore.ListRecent(ctx, userID, limit)
}

func TestRegistryOpensOtherUsersWhileOneIsLoading(t *testing.T) {
	slowUser := uuid.New()
	store := &gatedStore{gatedUser: slowUser, entered: make(chan struct{}, 1), release: make(chan struct{})}
	registry := NewRegistry(store, realtime.NewMemoryBroker(), nil)
	defer registry.Close()

	slowDone := make(chan error, 1)
	go func() {
		_, err := registry.Get(context.Background(), slowUser)
		slowDone <- err
	}()
	<-store.entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := registry.Get(context.Background(), uuid.New())
		fastDone <- err
	}()
	select {
	case err := <-fastDone:
		if err != nil {
			t.Fatalf("get fast bell: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a second user's bell to open while the first is still loading")
	}

	close(store.release)
	if err := <-slowDone; err != nil {
		t.Fatalf("get slow bell: %v", err)
	}
	if registry.Len() != 2 {
		t.Fatalf("expected two bells, got %d", registry.Len())
	}
}

func TestRegistryConcurrentGetsShareOneBell(t *testing.T) {
	userID := uuid.New()
	store := &gatedStore{gatedUser: userID, entered: make(chan struct{}, 1), release: make(chan struct{})}
	broker := realtime.NewMemoryBroker()
	registry := NewRegistry(store, broker, nil)
	defer registry.Close()

	const callers = 8
	bells := make([]*Bell, callers)
	var wg sync.WaitGroup
	for index := 0; index < callers; index++ {
		index := index
		wg.Add(1)
		go func() {
			defer wg.Done()
			bell, err := registry.Get(context.Background(), userID)
			if err != nil {
				t.Errorf("get bell: %v", err)
				return
			}
			bells[index] = bell
		}()
	}

	<-store.entered
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	for index, bell := range bells {
		if bell == nil || bell != bells[0] {
			t.Fatalf("caller %d got a different bell", index)
		}
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one bell, got %d", registry.Len())
	}
	if broker.SubscriberCount(userID) != 1 {
		t.Fatalf("expected one realtime subscription, got %d", broker.SubscriberCount(userID))
	}
	if store.fetches.Load() != 1 {
		t.Fatalf("expected a single initial fetch, got %d", store.fetches.Load())
	}
}

func TestRegistryGetAfterCloseFails(t *testing.T) {
	registry := NewRegistry(&stubStore{}, realtime.NewMemoryBroker(), nil)
	registry.Close()

	if _, err := registry.Get(context.Background(), uuid.New()); !errors.Is(err, ErrRegistryClosed) {
		t.Fatalf("expected ErrRegistryClosed, got %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected no bells after close, got %d", registry.Len())
	}
}
