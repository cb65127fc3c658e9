package service

import "sync"

// projectLocks hands out one mutex per project name. Entries are never
// removed; the set is bounded by the number of tracked projects.
type projectLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[string]*sync.Mutex)}
}

// lock blocks until name is free and returns the unlock function.
func (p *projectLocks) lock(name string) func() {
	p.mu.Lock()
	m, ok := p.locks[name]
	if !ok {
		m = &sync.Mutex{}
		p.locks[name] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
