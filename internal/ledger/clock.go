package ledger

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is a monotonic logical clock for commit sequences.
//
// Every modification is stamped with a strictly increasing seq. Backends that
// persist the last seq resume from it with NewClockAt.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last handed-out sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// WallClock supplies wall-clock time. time.Now in production, a fixed or
// stepping clock in tests.
type WallClock func() time.Time

// TimestampLayout formats timestamps with fixed-width nanoseconds so that
// their string form sorts the same way as the instants.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp written by FormatTimestamp (or any
// RFC 3339 value).
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Stamper hands out non-decreasing commit timestamps. A wall clock that steps
// backwards is clamped to the last stamp.
type Stamper struct {
	mu   sync.Mutex
	now  WallClock
	last time.Time
}

// NewStamper creates a stamper over now. A nil now uses time.Now.
func NewStamper(now WallClock) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

// Observe records a timestamp already committed, e.g. when reopening a store.
func (s *Stamper) Observe(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.last) {
		s.last = t
	}
}

// Stamp returns the commit timestamp for the next modification.
func (s *Stamper) Stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC()
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}
