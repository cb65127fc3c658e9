package tracking

import (
	"sync"

	"github.com/repokeeper/repokeeper/domain/operation"
)

// Fanout delivers every change to several sinks, translating its own
// indexes to the index each sink returned from Append.
type Fanout struct {
	sinks []operation.Sink

	mu      sync.Mutex
	next    int
	indexes map[int][]int
}

var _ operation.Sink = (*Fanout)(nil)

// NewFanout creates a Fanout over sinks. Nil sinks are skipped.
func NewFanout(sinks ...operation.Sink) *Fanout {
	f := &Fanout{indexes: make(map[int][]int)}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Append implements operation.Sink.
func (f *Fanout) Append(s operation.Snapshot) int {
	inner := make([]int, len(f.sinks))
	for i, sink := range f.sinks {
		inner[i] = sink.Append(s)
	}
	f.mu.Lock()
	index := f.next
	f.next++
	f.indexes[index] = inner
	f.mu.Unlock()
	return index
}

// Update implements operation.Sink. The mapping is dropped once the log stops.
func (f *Fanout) Update(index int, s operation.Snapshot) {
	f.mu.Lock()
	inner, ok := f.indexes[index]
	if ok && !s.Running {
		delete(f.indexes, index)
	}
	f.mu.Unlock()
	if !ok {
		return
	}
	for i, sink := range f.sinks {
		sink.Update(inner[i], s)
	}
}
