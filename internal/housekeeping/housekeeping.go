package housekeeping

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultRevocationSchedule = "@every 15m"
	DefaultIdleBellSchedule   = "@every 5m"
	DefaultBellIdleTimeout    = 30 * time.Minute
)

type RevocationPruner interface {
	PruneRevoked() int
}

type SessionStatePruner interface {
	PruneExpired(now time.Time) int
}

type BellPruner interface {
	PruneIdle(maxIdle time.Duration, now time.Time) int
}

type Config struct {
	RevocationSchedule string
	IdleBellSchedule   string
	BellIdleTimeout    time.Duration
	Now                func() time.Time
}

// Scheduler runs the periodic cleanup jobs on a robfig cron.
type Scheduler struct {
	cron        *cron.Cron
	revocations RevocationPruner
	states      SessionStatePruner
	bells       BellPruner
	idleTimeout time.Duration
	now         func() time.Time
}

func New(revocations RevocationPruner, states SessionStatePruner, bells BellPruner, config Config) (*Scheduler, error) {
	if config.RevocationSchedule == "" {
		config.RevocationSchedule = DefaultRevocationSchedule
	}
	if config.IdleBellSchedule == "" {
		config.IdleBellSchedule = DefaultIdleBellSchedule
	}
	if config.BellIdleTimeout <= 0 {
		config.BellIdleTimeout = DefaultBellIdleTimeout
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	scheduler := &Scheduler{
		cron:        cron.New(),
		revocations: revocations,
		states:      states,
		bells:       bells,
		idleTimeout: config.BellIdleTimeout,
		now:         config.Now,
	}
	if _, err := scheduler.cron.AddFunc(config.RevocationSchedule, scheduler.PruneRevocations); err != nil {
		return nil, fmt.Errorf("schedule revocation pruning: %w", err)
	}
	if _, err := scheduler.cron.AddFunc(config.RevocationSchedule, scheduler.PruneSessionStates); err != nil {
		return nil, fmt.Errorf("schedule session state pruning: %w", err)
	}
	if _, err := scheduler.cron.AddFunc(config.IdleBellSchedule, scheduler.PruneIdleBells); err != nil {
		return nil, fmt.Errorf("schedule idle bell pruning: %w", err)
	}
	return scheduler, nil
}

func (scheduler *Scheduler) Start() {
	scheduler.cron.Start()
	log.Printf("housekeeping: scheduler started with %d jobs", len(scheduler.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (scheduler *Scheduler) Stop() {
	<-scheduler.cron.Stop().Done()
}

func (scheduler *Scheduler) PruneRevocations() {
	if scheduler.revocations == nil {
		return
	}
	if removed := scheduler.revocations.PruneRevoked(); removed > 0 {
		log.Printf("housekeeping: pruned %d expired revocations", removed)
	}
}

func (scheduler *Scheduler) PruneSessionStates() {
	if scheduler.states == nil {
		return
	}
	if removed := scheduler.states.PruneExpired(scheduler.now()); removed > 0 {
		log.Printf("housekeeping: forgot %d expired session states", removed)
	}
}

func (scheduler *Scheduler) PruneIdleBells() {
	if scheduler.bells == nil {
		return
	}
	if closed := scheduler.bells.PruneIdle(scheduler.idleTimeout, scheduler.now()); closed > 0 {
		log.Printf("housekeeping: closed %d idle bells", closed)
	}
}
