// Package nonce issues strictly increasing millisecond nonces.
package nonce

import (
	"sync"
	"time"
)

// Source hands out nonces of the form max(now_ms, last+1). Wall clock
// nonces collide when more than one action is signed in the same
// millisecond; the counter is bumped instead so every value is unique
// for the life of the process.
type Source struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// New returns a Source reading the supplied clock, time.Now when nil
func New(now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	return &Source{now: now}
}

// Next returns the next nonce
func (s *Source) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now == nil {
		s.now = time.Now
	}
	n := s.now().UnixMilli()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return n
}

// Seed raises the floor so the next nonce is greater than last. Values
// below the current floor are ignored.
func (s *Source) Seed(last int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last > s.last {
		s.last = last
	}
}

// Last returns the most recently issued or seeded value
func (s *Source) Last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
