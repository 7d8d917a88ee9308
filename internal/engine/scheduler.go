package engine

import (
	"sync"
	"time"
)

// TickInterval is the fixed cadence of the animation scheduler.
const TickInterval = 50 * time.Millisecond

// Stage is what the scheduler animates. Its methods are always called with
// the scheduler's lock held.
type Stage interface {
	// Animated reports whether the document wants animation.
	Animated() bool
	// ApplyOverlays recomputes every element's overlay for the elapsed time.
	ApplyOverlays(elapsed time.Duration)
	// ClearOverlays drops all overlays so every element renders with its
	// canonical transform.
	ClearOverlays()
}

// Scheduler ticks a Stage at a fixed interval while running.
//
// The lock passed to NewScheduler is the single logical thread of the
// editing session: ticks, Start and Stop all run under it, so a tick never
// interleaves with a document mutation and no tick can touch the stage once
// Stop has returned.
type Scheduler struct {
	mu     sync.Locker
	stage  Stage
	now    func() time.Time
	manual bool

	running   bool
	gen       uint64
	startedAt time.Time
	lastStep  time.Time
	cancel    chan struct{}

	onTick func()
}

type SchedulerOption func(*Scheduler)

// WithClock replaces time.Now as the source of elapsed time.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithManualTicks disables the internal ticker; ticks only happen via Step.
func WithManualTicks() SchedulerOption {
	return func(s *Scheduler) { s.manual = true }
}

func NewScheduler(mu sync.Locker, stage Stage, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		mu:    mu,
		stage: stage,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnTick registers fn to run after every applied tick. fn runs without the
// lock held and may call Stop.
func (s *Scheduler) OnTick(fn func()) {
	s.mu.Lock()
	s.onTick = fn
	s.mu.Unlock()
}

// Start begins ticking. It is a no-op when already running or when the stage
// is not animated, and reports whether it started.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

// Stop cancels the tick source and clears all overlays. It is a no-op when
// not running, and reports whether it stopped.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Step applies one tick at the given time. It reports false when not running.
func (s *Scheduler) Step(now time.Time) bool {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	return s.tick(gen, now)
}

// Advance is Step throttled to TickInterval: it applies a tick only when at
// least TickInterval has passed since the run started or since the last tick
// it applied. It reports whether a tick was applied.
func (s *Scheduler) Advance(now time.Time) bool {
	s.mu.Lock()
	if !s.running || now.Sub(s.lastStep) < TickInterval {
		s.mu.Unlock()
		return false
	}
	s.lastStep = now
	gen := s.gen
	s.mu.Unlock()
	return s.tick(gen, now)
}

func (s *Scheduler) startLocked() bool {
	if s.running || !s.stage.Animated() {
		return false
	}
	s.running = true
	s.gen++
	s.startedAt = s.now()
	s.lastStep = s.startedAt
	if !s.manual {
		s.cancel = make(chan struct{})
		go s.run(s.gen, s.cancel)
	}
	return true
}

func (s *Scheduler) stopLocked() bool {
	if !s.running {
		return false
	}
	s.running = false
	if s.cancel != nil {
		close(s.cancel)
		s.cancel = nil
	}
	s.stage.ClearOverlays()
	return true
}

func (s *Scheduler) run(gen uint64, cancel <-chan struct{}) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			if !s.tick(gen, s.now()) {
				return
			}
		}
	}
}

// tick applies overlays if gen is still the current run. A tick that lost
// the race with Stop sees running == false and does nothing.
func (s *Scheduler) tick(gen uint64, now time.Time) bool {
	s.mu.Lock()
	if !s.running || s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.stage.ApplyOverlays(now.Sub(s.startedAt))
	hook := s.onTick
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return true
}
