package loop

import (
	"time"

	"github.com/google/uuid"
)

// Key identifies one independently rendered consumer of a Scheduler.
type Key string

// NewKey returns a random opaque key.
func NewKey() Key {
	return Key(uuid.NewString())
}

// A Source delivers periodic ticks between Start and Stop.
type Source interface {
	Start() <-chan time.Time
	Stop()
}

// FPS returns the tick interval for n frames per second.
func FPS(n int) time.Duration {
	return time.Second / time.Duration(n)
}

// TickerSource is a wall-clock Source backed by time.Ticker.
type TickerSource struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewTickerSource creates a TickerSource ticking every interval.
func NewTickerSource(interval time.Duration) *TickerSource {
	s := new(TickerSource)
	s.interval = interval
	return s
}

func (s *TickerSource) Start() <-chan time.Time {
	if s.ticker == nil {
		s.ticker = time.NewTicker(s.interval)
	}
	return s.ticker.C
}

func (s *TickerSource) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}
