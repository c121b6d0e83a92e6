// Package loop multiplexes every running animation onto one periodic tick.
//
// A Scheduler is not safe for concurrent use. All calls are expected on one
// goroutine, normally the one executing Run; other goroutines hand work to it
// with Post.
package loop

import (
	"context"
	"errors"
	"log"
	"time"
)

const inboxSize = 64

// ErrStopped is returned by Post once Run has returned.
var ErrStopped = errors.New("loop: scheduler stopped")

// AdvanceFunc moves a consumer's animations to now and reports whether any are still running.
type AdvanceFunc func(now time.Time) bool

// RenderFunc publishes a consumer's current values after it has been advanced.
type RenderFunc func()

type entry struct {
	advance AdvanceFunc
	render  RenderFunc
}

// Scheduler fans ticks out to registered consumers. It only holds its Source
// open while at least one consumer is registered.
type Scheduler struct {
	source Source
	clock  func() time.Time

	entries map[Key]*entry
	order   []Key
	ticks   <-chan time.Time

	inbox     chan func()
	stopped   chan struct{}
	afterTick func(now time.Time)
}

// An Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now as the scheduler's notion of the current time.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// New creates an idle Scheduler driven by source.
func New(source Source, opts ...Option) *Scheduler {
	s := new(Scheduler)
	s.source = source
	s.clock = time.Now
	s.entries = make(map[Key]*entry)
	s.inbox = make(chan func(), inboxSize)
	s.stopped = make(chan struct{})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time according to the scheduler's clock.
func (s *Scheduler) Now() time.Time { return s.clock() }

// Register adds or replaces the consumer for key, starting the source if the
// scheduler was idle.
func (s *Scheduler) Register(key Key, advance AdvanceFunc, render RenderFunc) {
	if _, ok := s.entries[key]; !ok {
		s.order = append(s.order, key)
	}
	s.entries[key] = &entry{advance: advance, render: render}

	if s.ticks == nil {
		s.ticks = s.source.Start()
	}
}

// Unregister removes key. The consumer is never called again, and the source
// stops when nothing is left. It is safe to call during a tick.
func (s *Scheduler) Unregister(key Key) {
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}

	if len(s.entries) == 0 && s.ticks != nil {
		s.source.Stop()
		s.ticks = nil
	}
}

// Len returns the number of registered consumers.
func (s *Scheduler) Len() int { return len(s.entries) }

// Active reports whether the source is running.
func (s *Scheduler) Active() bool { return s.ticks != nil }

// C returns the tick channel, or nil while idle so that a select on it blocks.
func (s *Scheduler) C() <-chan time.Time { return s.ticks }

// AfterTick sets a function called once after every tick's fan-out.
func (s *Scheduler) AfterTick(fn func(now time.Time)) { s.afterTick = fn }

// Tick advances then renders every registered consumer. A consumer whose
// advance reports false is unregistered after rendering. A consumer that
// panics is logged and unregistered; the others still run.
func (s *Scheduler) Tick(now time.Time) {
	if len(s.entries) == 0 {
		return
	}

	keys := make([]Key, len(s.order))
	copy(keys, s.order)
	for _, key := range keys {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		if !s.run(key, e, now) && s.entries[key] == e {
			s.Unregister(key)
		}
	}

	if s.afterTick != nil {
		s.afterTick(now)
	}
}

func (s *Scheduler) run(key Key, e *entry, now time.Time) (running bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("loop: consumer %s panicked: %v", key, r)
			running = false
		}
	}()

	running = e.advance(now)
	if e.render != nil {
		e.render()
	}
	return running
}

// Post queues fn to run on the goroutine executing Run. It waits for room in
// the queue until ctx is done, and fails with ErrStopped once Run has returned.
// A panic in fn is logged and does not stop Run.
func (s *Scheduler) Post(ctx context.Context, fn func()) error {
	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}
	select {
	case s.inbox <- fn:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("loop: posted function panicked: %v", r)
		}
	}()
	fn()
}

// Run executes posted functions and ticks until ctx is done. It must be
// called at most once.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.stopped)
	if len(s.entries) > 0 && s.ticks == nil {
		s.ticks = s.source.Start()
	}
	for {
		select {
		case <-ctx.Done():
			if s.ticks != nil {
				s.source.Stop()
				s.ticks = nil
			}
			return ctx.Err()
		case fn := <-s.inbox:
			s.call(fn)
		case now := <-s.ticks:
			s.Tick(now)
		}
	}
}
