package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"share2care/internal/ports/output"
)

// DefaultPollInterval is the board refresh period while signed in.
const DefaultPollInterval = 30 * time.Second

// SchedulerState is Idle while signed out and Polling while signed in.
type SchedulerState int

const (
	StateIdle SchedulerState = iota
	StatePolling
)

func (s SchedulerState) String() string {
	if s == StatePolling {
		return "polling"
	}
	return "idle"
}

// Task is one periodic job.
type Task func(ctx context.Context) error

// RefreshScheduler runs the board refresh and the approval check every
// interval while polling. Each task has its own in-flight flag: a tick that
// finds its task still running is dropped, never queued.
type RefreshScheduler struct {
	interval time.Duration
	refresh  Task
	approval Task
	metrics  output.Metrics
	log      zerolog.Logger

	refreshing atomic.Bool
	checking   atomic.Bool

	mu     sync.Mutex
	state  SchedulerState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRefreshScheduler(interval time.Duration, refresh, approval Task, metrics output.Metrics, logger zerolog.Logger) *RefreshScheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	return &RefreshScheduler{
		interval: interval,
		refresh:  refresh,
		approval: approval,
		metrics:  metrics,
		log:      logger.With().Str("component", "scheduler").Logger(),
	}
}

// State reports whether the scheduler is polling.
func (s *RefreshScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start enters Polling. An immediate refresh runs, then one per interval.
// Starting twice is a no-op.
func (s *RefreshScheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePolling {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.state = StatePolling

	s.wg.Add(1)
	go s.loop(ctx)
	s.log.Info().Dur("interval", s.interval).Msg("polling started")
}

// Stop returns to Idle, cancelling and waiting for in-flight tasks.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.cancel = nil
	s.state = StateIdle
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("polling stopped")
}

// RefreshNow runs the refresh task immediately unless one is in flight.
// ran is false when the call was dropped.
func (s *RefreshScheduler) RefreshNow(ctx context.Context) (ran bool, err error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.metrics.TickDropped("refresh")
		return false, nil
	}
	defer s.refreshing.Store(false)
	return true, s.refresh(ctx)
}

func (s *RefreshScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *RefreshScheduler) tick(ctx context.Context) {
	s.spawn(ctx, "refresh", &s.refreshing, s.refresh)
	if s.approval != nil {
		s.spawn(ctx, "approval", &s.checking, s.approval)
	}
}

func (s *RefreshScheduler) spawn(ctx context.Context, name string, busy *atomic.Bool, task Task) {
	if !busy.CompareAndSwap(false, true) {
		s.metrics.TickDropped(name)
		s.log.Debug().Str("task", name).Msg("previous run still in flight, tick dropped")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer busy.Store(false)
		if err := task(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Str("task", name).Msg("scheduled task failed")
		}
	}()
}
