// Package clock provides the monotonic millisecond clock used to timestamp
// decoder commits.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns milliseconds on a monotonic timeline. Only differences between
// two readings are meaningful.
type Clock interface {
	Millis() int64
}

// System is a Clock backed by the runtime's monotonic clock.
type System struct {
	start time.Time
}

func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) Millis() int64 {
	if s == nil || s.start.IsZero() {
		return 0
	}
	return time.Since(s.start).Milliseconds()
}

// Manual is a Clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	ms atomic.Int64
}

func NewManual(startMs int64) *Manual {
	m := &Manual{}
	m.ms.Store(startMs)
	return m
}

func (m *Manual) Millis() int64 { return m.ms.Load() }

func (m *Manual) Set(ms int64) { m.ms.Store(ms) }

func (m *Manual) Advance(d time.Duration) {
	m.ms.Add(d.Milliseconds())
}
