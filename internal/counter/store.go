// Package counter accumulates detected repetition events and publishes
// them to consumers at a bounded rate. The local buffer is updated
// synchronously on every event; the published store only ever moves to
// values the buffer has already held.
package counter

import (
	"sync"

	"github.com/repmeter/repmeter-agent/internal/detect"
)

// ChangeFunc is invoked after a published count actually changes value.
// It is never called on a frame that changed nothing.
type ChangeFunc func(exercise detect.Exercise, count int)

// Store holds the published per-exercise counts. It is the single
// handle shared between the detection engine and external consumers
// (API, tray, history recorder); reads are safe from any goroutine.
type Store struct {
	mu     sync.RWMutex
	counts map[detect.Exercise]int
	subs   []ChangeFunc
}

// NewStore creates a store with every exercise at zero.
func NewStore() *Store {
	s := &Store{counts: make(map[detect.Exercise]int, len(detect.Exercises))}
	for _, e := range detect.Exercises {
		s.counts[e] = 0
	}
	return s
}

// Count returns the published count for one exercise.
func (s *Store) Count(e detect.Exercise) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[e]
}

// Counts returns a snapshot of every published count.
func (s *Store) Counts() map[detect.Exercise]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[detect.Exercise]int, len(s.counts))
	for e, n := range s.counts {
		out[e] = n
	}
	return out
}

// Total returns the sum of all published counts.
func (s *Store) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

// Subscribe registers a change callback. Callbacks run on the flushing
// goroutine after the store lock is released; they must not block for
// long.
func (s *Store) Subscribe(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// change is one applied count update.
type change struct {
	exercise detect.Exercise
	count    int
}

// apply writes the given values and returns the entries that actually
// changed, without notifying.
func (s *Store) apply(updates map[detect.Exercise]int) []change {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []change
	for e, n := range updates {
		if s.counts[e] != n {
			s.counts[e] = n
			changed = append(changed, change{exercise: e, count: n})
		}
	}
	return changed
}

// notify invokes every subscriber for each applied change.
func (s *Store) notify(changed []change) {
	s.mu.RLock()
	subs := make([]ChangeFunc, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, ch := range changed {
		for _, fn := range subs {
			fn(ch.exercise, ch.count)
		}
	}
}
