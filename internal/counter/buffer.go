package counter

import (
	"sync"
	"time"

	"github.com/repmeter/repmeter-agent/internal/detect"
)

// DefaultFlushInterval is the minimum spacing between flushes to the
// published store.
const DefaultFlushInterval = 800 * time.Millisecond

// Buffer accumulates repetition events locally and propagates them to
// the published store at a bounded rate. RecordEvent is never
// rate-limited; only publication is. Each flush attempt runs as a
// single critical section so a published count can neither regress nor
// skip a value the buffer never held.
type Buffer struct {
	mu        sync.Mutex
	store     *Store
	local     map[detect.Exercise]int
	interval  time.Duration
	lastFlush time.Time
}

// NewBuffer creates a buffer in front of store. A non-positive interval
// falls back to DefaultFlushInterval.
func NewBuffer(store *Store, interval time.Duration) *Buffer {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	b := &Buffer{
		store:    store,
		local:    make(map[detect.Exercise]int, len(detect.Exercises)),
		interval: interval,
	}
	for _, e := range detect.Exercises {
		b.local[e] = 0
	}
	return b
}

// RecordEvent increments the local count for one exercise. Synchronous
// and unconditional: no repetition is ever dropped at this layer.
func (b *Buffer) RecordEvent(e detect.Exercise) {
	b.mu.Lock()
	b.local[e]++
	b.mu.Unlock()
}

// Local returns the buffered (not yet necessarily published) count.
func (b *Buffer) Local(e detect.Exercise) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.local[e]
}

// MaybeFlush propagates every differing entry to the published store if
// at least the flush interval has elapsed since the previous flush. The
// interval gates flush attempts as a whole, not per exercise; the first
// flush after initialization is never delayed. Returns whether a flush
// happened. When the interval has not elapsed the call is a no-op: the
// events stay buffered for the next attempt.
func (b *Buffer) MaybeFlush(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lastFlush.IsZero() && now.Sub(b.lastFlush) < b.interval {
		return false
	}
	return b.flushLocked(now)
}

// FlushNow propagates unconditionally, ignoring the interval. Used on
// teardown so buffered counts are never lost.
func (b *Buffer) FlushNow(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked(now)
}

// flushLocked pushes differing entries and notifies subscribers.
// Caller holds b.mu, which keeps read-buffer/read-store/write-store a
// single critical section per flush attempt.
func (b *Buffer) flushLocked(now time.Time) bool {
	updates := make(map[detect.Exercise]int, len(b.local))
	for e, n := range b.local {
		updates[e] = n
	}

	changed := b.store.apply(updates)
	if len(changed) == 0 {
		return false
	}

	b.lastFlush = now
	b.store.notify(changed)
	return true
}

// Reset zeroes the buffer and the published store together and clears
// the flush clock. Subscribers are notified for every count that was
// nonzero.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	zeroes := make(map[detect.Exercise]int, len(b.local))
	for e := range b.local {
		b.local[e] = 0
		zeroes[e] = 0
	}
	b.lastFlush = time.Time{}

	changed := b.store.apply(zeroes)
	b.store.notify(changed)
}
