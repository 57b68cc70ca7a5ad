// Package idgen issues post and comment identifiers.
package idgen

import (
	"strconv"
	"sync"
	"time"
)

// Generator returns a new unique identifier on every call.
type Generator interface {
	NewID() string
}

// Sequence issues decimal millisecond timestamps. When the clock has not moved
// past the last issued value it hands out last+1, so ids stay unique and
// strictly increasing in creation order even within one millisecond.
type Sequence struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewSequence returns a Sequence reading the wall clock.
func NewSequence() *Sequence {
	return &Sequence{now: time.Now}
}

// NewSequenceWithClock returns a Sequence reading now. Used by tests.
func NewSequenceWithClock(now func() time.Time) *Sequence {
	return &Sequence{now: now}
}

// NewID implements Generator.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return strconv.FormatInt(ms, 10)
}

// Observe advances the sequence past id if id is numeric. Restored snapshots
// call it so new ids never collide with persisted ones.
func (s *Sequence) Observe(id string) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	s.mu.Lock()
	if n > s.last {
		s.last = n
	}
	s.mu.Unlock()
}
