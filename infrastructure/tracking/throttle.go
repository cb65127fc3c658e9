package tracking

import (
	"io"
	"sync"
	"time"

	"github.com/repokeeper/repokeeper/domain/operation"
)

var (
	_ operation.Sink = (*Throttle)(nil)
	_ io.Closer      = (*Throttle)(nil)
)

// Throttle wraps a Sink and limits how often updates are delivered for
// each log. Appends and updates of stopped logs are always delivered
// immediately. Other updates are delivered at most once per interval;
// the latest pending snapshot is flushed when the interval elapses or
// when the log stops. Deliveries are serialised, so inner must not call
// back into the Throttle.
type Throttle struct {
	inner    operation.Sink
	interval time.Duration
	mu       sync.Mutex
	entries  map[int]*throttleEntry
}

type throttleEntry struct {
	lastFlush time.Time
	pending   *operation.Snapshot
	timer     *time.Timer
}

// NewThrottle creates a Throttle wrapping inner with the given minimum
// interval between deliveries per log.
func NewThrottle(inner operation.Sink, interval time.Duration) *Throttle {
	return &Throttle{
		inner:    inner,
		interval: interval,
		entries:  make(map[int]*throttleEntry),
	}
}

// Append implements operation.Sink.
func (t *Throttle) Append(s operation.Snapshot) int {
	index := t.inner.Append(s)
	t.mu.Lock()
	t.entries[index] = &throttleEntry{lastFlush: time.Now()}
	t.mu.Unlock()
	return index
}

// Update implements operation.Sink.
func (t *Throttle) Update(index int, s operation.Snapshot) {
	t.mu.Lock()

	if !s.Running {
		if entry := t.entries[index]; entry != nil {
			if entry.timer != nil {
				entry.timer.Stop()
			}
			delete(t.entries, index)
		}
		t.inner.Update(index, s)
		t.mu.Unlock()
		return
	}

	entry, exists := t.entries[index]
	if !exists {
		entry = &throttleEntry{}
		t.entries[index] = entry
	}

	elapsed := time.Since(entry.lastFlush)
	if elapsed >= t.interval {
		if entry.timer != nil {
			entry.timer.Stop()
			entry.timer = nil
		}
		entry.pending = nil
		entry.lastFlush = time.Now()
		t.inner.Update(index, s)
		t.mu.Unlock()
		return
	}

	snap := s
	entry.pending = &snap
	if entry.timer == nil {
		entry.timer = time.AfterFunc(t.interval-elapsed, func() {
			t.flushPending(index)
		})
	}
	t.mu.Unlock()
}

// Close flushes all pending snapshots and stops all timers.
func (t *Throttle) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for index, entry := range t.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		if entry.pending != nil {
			t.inner.Update(index, *entry.pending)
		}
	}
	t.entries = make(map[int]*throttleEntry)
	return nil
}

func (t *Throttle) flushPending(index int) {
	t.mu.Lock()
	entry, exists := t.entries[index]
	if !exists || entry.pending == nil {
		if exists {
			entry.timer = nil
		}
		t.mu.Unlock()
		return
	}

	snap := *entry.pending
	entry.pending = nil
	entry.lastFlush = time.Now()
	entry.timer = nil
	t.inner.Update(index, snap)
	t.mu.Unlock()
}
