package loop

import (
	"context"
	"errors"
	"testing"
	"time"
)

type manualSource struct {
	c      chan time.Time
	active bool
	starts int
	stops  int
}

func newManualSource() *manualSource {
	return &manualSource{c: make(chan time.Time, 1)}
}

func (m *manualSource) Start() <-chan time.Time {
	m.active = true
	m.starts++
	return m.c
}

func (m *manualSource) Stop() {
	m.active = false
	m.stops++
}

func forever(time.Time) bool { return true }

func TestReferenceCounting(t *testing.T) {
	src := newManualSource()
	s := New(src)
	if s.Active() || s.C() != nil {
		t.Fatalf("new scheduler is active")
	}

	keys := []Key{"a", "b", "c"}
	for _, k := range keys {
		s.Register(k, forever, nil)
	}
	if !src.active || src.starts != 1 {
		t.Fatalf("source active = %v, starts = %d, want true, 1", src.active, src.starts)
	}

	s.Unregister("a")
	s.Unregister("b")
	if !src.active || s.C() == nil {
		t.Fatalf("source stopped with one consumer left")
	}

	s.Unregister("c")
	if src.active || s.C() != nil {
		t.Fatalf("source still active with no consumers")
	}
	if src.stops != 1 {
		t.Fatalf("stops = %d, want 1", src.stops)
	}

	s.Unregister("c")
	if src.stops != 1 {
		t.Fatalf("unregistering an unknown key stopped the source again")
	}
}

func TestRegisterOverwrites(t *testing.T) {
	s := New(newManualSource())
	var first, second int
	s.Register("k", func(time.Time) bool { first++; return true }, nil)
	s.Register("k", func(time.Time) bool { second++; return true }, nil)
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	s.Tick(time.Now())
	if first != 0 || second != 1 {
		t.Fatalf("calls = %d, %d, want 0, 1", first, second)
	}
}

func TestTickAdvancesThenRenders(t *testing.T) {
	s := New(newManualSource())
	var calls []string
	s.Register("k",
		func(time.Time) bool { calls = append(calls, "advance"); return true },
		func() { calls = append(calls, "render") })
	s.Tick(time.Now())
	if len(calls) != 2 || calls[0] != "advance" || calls[1] != "render" {
		t.Fatalf("calls = %v, want [advance render]", calls)
	}
}

func TestFinishedConsumerIsRenderedOnceThenRemoved(t *testing.T) {
	src := newManualSource()
	s := New(src)
	renders := 0
	s.Register("k", func(time.Time) bool { return false }, func() { renders++ })
	s.Tick(time.Now())
	s.Tick(time.Now())
	if renders != 1 {
		t.Fatalf("renders = %d, want 1", renders)
	}
	if s.Len() != 0 || src.active {
		t.Fatalf("finished consumer left registered")
	}
}

func TestUnregisterDuringTick(t *testing.T) {
	s := New(newManualSource())
	var bCalls int
	s.Register("a", func(time.Time) bool {
		s.Unregister("a")
		s.Unregister("b")
		return true
	}, nil)
	s.Register("b", func(time.Time) bool { bCalls++; return true }, nil)
	s.Register("c", forever, nil)

	s.Tick(time.Now())
	if bCalls != 0 {
		t.Fatalf("b advanced after being unregistered mid-tick")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestReregisterDuringOwnAdvanceSurvives(t *testing.T) {
	s := New(newManualSource())
	s.Register("k", func(time.Time) bool {
		s.Register("k", forever, nil)
		return false
	}, nil)
	s.Tick(time.Now())
	if s.Len() != 1 {
		t.Fatalf("re-registered consumer was dropped")
	}
}

func TestPanickingConsumerIsIsolated(t *testing.T) {
	s := New(newManualSource())
	var ok int
	s.Register("bad", func(time.Time) bool { panic("boom") }, nil)
	s.Register("good", func(time.Time) bool { ok++; return true }, func() {})
	s.Register("bad-render", forever, func() { panic("render boom") })

	s.Tick(time.Now())
	s.Tick(time.Now())
	if ok != 2 {
		t.Fatalf("good consumer advanced %d times, want 2", ok)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want only the good consumer", s.Len())
	}
}

func TestAfterTick(t *testing.T) {
	s := New(newManualSource())
	var after int
	s.AfterTick(func(time.Time) { after++ })
	s.Tick(time.Now())
	if after != 0 {
		t.Fatalf("AfterTick ran with no consumers")
	}
	s.Register("k", forever, nil)
	s.Tick(time.Now())
	if after != 1 {
		t.Fatalf("after = %d, want 1", after)
	}
}

func TestRunStopsTickingWhenIdle(t *testing.T) {
	s := New(NewTickerSource(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	ticks := 0
	enough := make(chan struct{})
	s.Post(ctx, func() {
		s.Register("k", func(time.Time) bool {
			ticks++
			if ticks == 5 {
				close(enough)
			}
			return true
		}, nil)
	})

	select {
	case <-enough:
	case <-time.After(5 * time.Second):
		t.Fatalf("no ticks delivered")
	}

	stopped := make(chan int)
	s.Post(ctx, func() {
		s.Unregister("k")
		stopped <- ticks
	})
	before := <-stopped

	time.Sleep(20 * time.Millisecond)
	after := make(chan int)
	s.Post(ctx, func() { after <- ticks })
	if got := <-after; got != before {
		t.Fatalf("ticks = %d after unregistering, want %d", got, before)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
}

func TestRunSurvivesPostedPanic(t *testing.T) {
	s := New(newManualSource())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	if err := s.Post(ctx, func() { panic("boom") }); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	ran := make(chan struct{})
	if err := s.Post(ctx, func() { close(ran) }); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run stopped after a posted function panicked")
	}

	cancel()
	<-done
	if err := s.Post(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Post() after Run = %v, want ErrStopped", err)
	}
}

func TestPostFullInboxHonoursContext(t *testing.T) {
	s := New(newManualSource())
	for i := 0; i < inboxSize; i++ {
		if err := s.Post(context.Background(), func() {}); err != nil {
			t.Fatalf("Post() %d error = %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- s.Post(ctx, func() {}) }()
	select {
	case err := <-errc:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Post() on a full inbox = %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Post() blocked past its context")
	}
}

func TestNewKeyUnique(t *testing.T) {
	if NewKey() == NewKey() {
		t.Fatalf("NewKey() returned the same key twice")
	}
}
