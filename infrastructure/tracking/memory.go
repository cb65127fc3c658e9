// Package tracking provides operation.Sink implementations: an in-memory
// history with subscribers, a throttling wrapper, a logger and a fanout.
package tracking

import (
	"sync"

	"github.com/repokeeper/repokeeper/domain/operation"
)

// EventKind tells a subscriber what changed.
type EventKind string

// EventKind values.
const (
	// EventRefresh means a log was appended and the list should be reloaded.
	EventRefresh EventKind = "refresh"
	// EventUpdate means the log at Index changed.
	EventUpdate EventKind = "update"
)

// Event is delivered to Memory subscribers.
type Event struct {
	Kind     EventKind
	Index    int
	Snapshot operation.Snapshot
}

const subscriberBuffer = 64

// Memory keeps the most recent logs in memory and broadcasts every change.
// Indexes are absolute: they keep counting after old entries are evicted.
type Memory struct {
	mu          sync.RWMutex
	limit       int
	base        int
	entries     []operation.Snapshot
	subscribers map[chan Event]struct{}
}

var _ operation.Sink = (*Memory)(nil)

// NewMemory creates a Memory holding at most limit logs. A limit below one
// keeps every log.
func NewMemory(limit int) *Memory {
	return &Memory{
		limit:       limit,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Append implements operation.Sink.
func (m *Memory) Append(s operation.Snapshot) int {
	m.mu.Lock()
	m.entries = append(m.entries, s)
	if m.limit > 0 && len(m.entries) > m.limit {
		drop := len(m.entries) - m.limit
		m.entries = append([]operation.Snapshot(nil), m.entries[drop:]...)
		m.base += drop
	}
	index := m.base + len(m.entries) - 1
	m.broadcastLocked(Event{Kind: EventRefresh, Index: index, Snapshot: s})
	m.mu.Unlock()
	return index
}

// Update implements operation.Sink. Evicted or unknown indexes are ignored.
func (m *Memory) Update(index int, s operation.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := index - m.base
	if pos < 0 || pos >= len(m.entries) {
		return
	}
	m.entries[pos] = s
	m.broadcastLocked(Event{Kind: EventUpdate, Index: index, Snapshot: s})
}

// List returns the retained logs, oldest first.
func (m *Memory) List() []operation.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]operation.Snapshot, len(m.entries))
	copy(out, m.entries)
	return out
}

// Running returns the retained logs that have not stopped.
func (m *Memory) Running() []operation.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]operation.Snapshot, 0)
	for _, s := range m.entries {
		if s.Running {
			out = append(out, s)
		}
	}
	return out
}

// Subscribe returns a channel of events and a function that cancels the
// subscription and closes the channel. Slow subscribers miss events
// rather than block writers.
func (m *Memory) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (m *Memory) broadcastLocked(e Event) {
	for ch := range m.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
