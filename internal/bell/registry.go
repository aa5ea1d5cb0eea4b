package bell

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/realtime"
	"golang.org/x/sync/singleflight"
)

var ErrRegistryClosed = errors.New("bell registry closed")

// MirrorFactory picks the mirror for a user's bell.
type MirrorFactory func(ctx context.Context, userID uuid.UUID) Mirror

// Registry keeps at most one bell per signed-in user.
type Registry struct {
	store   Store
	broker  realtime.Broker
	mirrors MirrorFactory

	// opening collapses concurrent first Gets for one user into a single
	// Open, which runs without holding mu.
	opening singleflight.Group

	mu     sync.Mutex
	bells  map[uuid.UUID]*Bell
	closed bool
}

func NewRegistry(store Store, broker realtime.Broker, mirrors MirrorFactory) *Registry {
	if mirrors == nil {
		mirrors = func(context.Context, uuid.UUID) Mirror { return NoopMirror{} }
	}
	return &Registry{
		store:   store,
		broker:  broker,
		mirrors: mirrors,
		bells:   make(map[uuid.UUID]*Bell),
	}
}

func (registry *Registry) Get(ctx context.Context, userID uuid.UUID) (*Bell, error) {
	if existing, err := registry.lookup(userID); existing != nil || err != nil {
		return existing, err
	}

	opened, err, _ := registry.opening.Do(userID.String(), func() (any, error) {
		if existing, err := registry.lookup(userID); existing != nil || err != nil {
			return existing, err
		}

		bell, err := Open(ctx, userID, registry.store, registry.broker, registry.mirrors(ctx, userID))
		if err != nil {
			return nil, err
		}

		registry.mu.Lock()
		if registry.closed {
			registry.mu.Unlock()
			bell.Close()
			return nil, ErrRegistryClosed
		}
		registry.bells[userID] = bell
		registry.mu.Unlock()
		return bell, nil
	})
	if err != nil {
		return nil, err
	}
	return opened.(*Bell), nil
}

func (registry *Registry) lookup(userID uuid.UUID) (*Bell, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.closed {
		return nil, ErrRegistryClosed
	}
	return registry.bells[userID], nil
}

// Drop tears down the user's bell. The next Get starts a fresh one.
func (registry *Registry) Drop(userID uuid.UUID) {
	registry.mu.Lock()
	bell, ok := registry.bells[userID]
	delete(registry.bells, userID)
	registry.mu.Unlock()

	if ok {
		bell.Close()
	}
}

// PruneIdle closes bells with no live stream that were untouched for maxIdle.
func (registry *Registry) PruneIdle(maxIdle time.Duration, now time.Time) int {
	registry.mu.Lock()
	stale := make([]*Bell, 0)
	for userID, bell := range registry.bells {
		lastActive, streaming := bell.idleSince()
		if streaming || now.Sub(lastActive) < maxIdle {
			continue
		}
		stale = append(stale, bell)
		delete(registry.bells, userID)
	}
	registry.mu.Unlock()

	for _, bell := range stale {
		bell.Close()
	}
	return len(stale)
}

func (registry *Registry) Len() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.bells)
}

func (registry *Registry) Close() {
	registry.mu.Lock()
	registry.closed = true
	bells := registry.bells
	registry.bells = make(map[uuid.UUID]*Bell)
	registry.mu.Unlock()

	for _, bell := range bells {
		bell.Close()
	}
}
