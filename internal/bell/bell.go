package bell

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"github.com/terraincognita07/medremind/internal/realtime"
)

const InitialFetchLimit = 20

type Store interface {
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

type Item struct {
	models.Notification
	Icon string `json:"icon"`
}

func newItem(notification models.Notification) Item {
	return Item{Notification: notification, Icon: models.NotificationIcon(notification.Type)}
}

// Bell is the live notification list of one user. Local read flags change
// immediately; the database follows in the background and is never
// reconciled back.
type Bell struct {
	userID uuid.UUID
	store  Store
	mirror Mirror

	mu           sync.Mutex
	items        []Item
	permission   Permission
	listeners    map[int]chan Item
	nextListener int
	lastActive   time.Time

	subscription *realtime.Subscription
	pumpDone     chan struct{}
	background   sync.WaitGroup
	closeOnce    sync.Once
}

// Open subscribes before the initial fetch so inserts racing the fetch are
// not lost; duplicates are skipped by id.
func Open(ctx context.Context, userID uuid.UUID, store Store, broker realtime.Broker, mirror Mirror) (*Bell, error) {
	if mirror == nil {
		mirror = NoopMirror{}
	}

	subscription, err := broker.Subscribe(ctx, userID)
	if err != nil {
		return nil, err
	}

	bell := &Bell{
		userID:       userID,
		store:        store,
		mirror:       mirror,
		items:        make([]Item, 0, InitialFetchLimit),
		permission:   PermissionDefault,
		listeners:    make(map[int]chan Item),
		lastActive:   time.Now(),
		subscription: subscription,
		pumpDone:     make(chan struct{}),
	}

	notifications, err := store.ListRecent(ctx, userID, InitialFetchLimit)
	if err != nil {
		log.Printf("bell: initial fetch failed for %s: %v", userID, err)
	}
	for _, notification := range notifications {
		bell.items = append(bell.items, newItem(notification))
	}

	bell.requestPermission(ctx)

	go bell.pump()
	return bell, nil
}

func (bell *Bell) requestPermission(ctx context.Context) {
	bell.mu.Lock()
	if bell.permission != PermissionDefault {
		bell.mu.Unlock()
		return
	}
	bell.mu.Unlock()

	permission := bell.mirror.RequestPermission(ctx)

	bell.mu.Lock()
	bell.permission = permission
	bell.mu.Unlock()
}

func (bell *Bell) pump() {
	defer close(bell.pumpDone)
	for notification := range bell.subscription.Events {
		bell.push(notification)
	}
}

func (bell *Bell) push(notification models.Notification) {
	item := newItem(notification)

	bell.mu.Lock()
	for _, existing := range bell.items {
		if existing.ID == item.ID {
			bell.mu.Unlock()
			return
		}
	}
	bell.items = append([]Item{item}, bell.items...)
	permission := bell.permission
	// Sends stay under the lock: stop closes a listener channel under it too.
	for _, listener := range bell.listeners {
		select {
		case listener <- item:
		default:
		}
	}
	bell.mu.Unlock()

	if permission == PermissionGranted {
		bell.inBackground(func() {
			if err := bell.mirror.Show(context.Background(), item.Title, item.Message); err != nil {
				log.Printf("bell: mirror failed for %s: %v", bell.userID, err)
			}
		})
	}
}

func (bell *Bell) Items() []Item {
	bell.mu.Lock()
	defer bell.mu.Unlock()
	bell.lastActive = time.Now()

	items := make([]Item, len(bell.items))
	copy(items, bell.items)
	return items
}

func (bell *Bell) UnreadCount() int {
	bell.mu.Lock()
	defer bell.mu.Unlock()

	unread := 0
	for _, item := range bell.items {
		if !item.Read {
			unread++
		}
	}
	return unread
}

func (bell *Bell) Badge() string {
	return Badge(bell.UnreadCount())
}

func (bell *Bell) Permission() Permission {
	bell.mu.Lock()
	defer bell.mu.Unlock()
	return bell.permission
}

func (bell *Bell) MarkAsRead(id uuid.UUID) {
	bell.mu.Lock()
	for index := range bell.items {
		if bell.items[index].ID == id {
			bell.items[index].Read = true
		}
	}
	bell.lastActive = time.Now()
	bell.mu.Unlock()

	bell.inBackground(func() {
		if err := bell.store.MarkRead(context.Background(), bell.userID, id); err != nil {
			log.Printf("bell: mark read %s failed: %v", id, err)
		}
	})
}

func (bell *Bell) MarkAllRead() {
	bell.mu.Lock()
	for index := range bell.items {
		bell.items[index].Read = true
	}
	bell.lastActive = time.Now()
	bell.mu.Unlock()

	bell.inBackground(func() {
		if err := bell.store.MarkAllRead(context.Background(), bell.userID); err != nil {
			log.Printf("bell: mark all read for %s failed: %v", bell.userID, err)
		}
	})
}

// Listen streams pushed items until stop is called or the bell closes.
func (bell *Bell) Listen() (<-chan Item, func()) {
	bell.mu.Lock()
	defer bell.mu.Unlock()

	id := bell.nextListener
	bell.nextListener++
	events := make(chan Item, 8)
	bell.listeners[id] = events
	bell.lastActive = time.Now()

	var once sync.Once
	return events, func() {
		once.Do(func() {
			bell.mu.Lock()
			defer bell.mu.Unlock()
			if _, ok := bell.listeners[id]; ok {
				delete(bell.listeners, id)
				close(events)
			}
		})
	}
}

func (bell *Bell) idleSince() (time.Time, bool) {
	bell.mu.Lock()
	defer bell.mu.Unlock()
	return bell.lastActive, len(bell.listeners) > 0
}

// Wait blocks until background writes and mirror deliveries finish.
func (bell *Bell) Wait() {
	bell.background.Wait()
}

func (bell *Bell) Close() {
	bell.closeOnce.Do(func() {
		bell.subscription.Close()
		<-bell.pumpDone

		bell.mu.Lock()
		for id, listener := range bell.listeners {
			close(listener)
			delete(bell.listeners, id)
		}
		bell.mu.Unlock()
	})
}

func (bell *Bell) inBackground(work func()) {
	bell.background.Add(1)
	go func() {
		defer bell.background.Done()
		work()
	}()
}

// Badge renders the unread counter: nothing for zero, "9+" past nine.
func Badge(unread int) string {
	switch {
	case unread <= 0:
		return ""
	case unread > 9:
		return "9+"
	default:
		return strconv.Itoa(unread)
	}
}
