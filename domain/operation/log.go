package operation

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrStopped is returned when a stopped log is stopped again.
var ErrStopped = errors.New("operation log already stopped")

// Log records the steps of one running operation. A nil *Log is valid
// and ignores every call, so lifecycle code can take an optional log.
type Log struct {
	journal *Journal

	mu          sync.Mutex
	rev         uint64
	id          string
	code        int64
	operation   string
	message     string
	running     bool
	startTime   string
	stopTime    string
	steps       []*Step
	total       int
	finished    int
	notFinished int
	index       int

	// notifyMu orders deliveries to the sink; delivered is the last
	// revision sent.
	notifyMu  sync.Mutex
	delivered uint64
}

// ID returns the log's unique ID.
func (l *Log) ID() string {
	if l == nil {
		return ""
	}
	return l.id
}

// Code returns the operation code.
func (l *Log) Code() int64 {
	if l == nil {
		return 0
	}
	return l.code
}

// Running reports whether Stop has not been called yet.
func (l *Log) Running() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// AddStep appends a started step and returns its handle.
func (l *Log) AddStep(name, description string, status Status) *Step {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	step := &Step{
		name:        name,
		description: description,
		status:      status,
		startTime:   l.journal.timestamp(),
	}
	l.steps = append(l.steps, step)
	l.recount()
	snap, rev := l.publishLocked()
	l.mu.Unlock()

	l.notify(snap, rev)
	return step
}

// AddInstantStep appends a step that is already finished, for actions
// with nothing to wait on.
func (l *Log) AddInstantStep(name, description string, status Status) {
	if l == nil {
		return
	}
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	at := l.journal.timestamp()
	step := &Step{
		name:        name,
		description: description,
		status:      status,
		startTime:   at,
	}
	step.stop(at)
	l.steps = append(l.steps, step)
	l.recount()
	snap, rev := l.publishLocked()
	l.mu.Unlock()

	l.notify(snap, rev)
}

// FinishStep stops step in place. Steps are matched by identity.
func (l *Log) FinishStep(step *Step) {
	if l == nil || step == nil {
		return
	}
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	found := false
	for _, s := range l.steps {
		if s == step {
			s.stop(l.journal.timestamp())
			found = true
			break
		}
	}
	if !found {
		l.mu.Unlock()
		return
	}
	l.recount()
	snap, rev := l.publishLocked()
	l.mu.Unlock()

	l.notify(snap, rev)
}

// Stop ends the log, persists it and notifies the sink one last time.
// The log is stopped even when persisting fails; the error is returned.
func (l *Log) Stop(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrStopped
	}
	now := l.journal.now()
	l.stopTime = now.Format(TimeFormat)
	l.running = false
	l.recount()
	snap, rev := l.publishLocked()
	l.mu.Unlock()

	var err error
	if store := l.journal.store; store != nil {
		name := FileName(now, l.journal.ids.NextSequence(), snap.Code, snap.Operation)
		if saveErr := store.Save(ctx, name, snap); saveErr != nil {
			err = fmt.Errorf("persist operation log %s: %w", name, saveErr)
		}
	}

	l.notify(snap, rev)
	return err
}

// Snapshot returns a copy of the log's current state.
func (l *Log) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Log) recount() {
	finished := 0
	for _, s := range l.steps {
		if s.finished {
			finished++
		}
	}
	l.total = len(l.steps)
	l.finished = finished
	l.notFinished = l.total - finished
}

func (l *Log) snapshotLocked() Snapshot {
	steps := make([]StepSnapshot, len(l.steps))
	for i, s := range l.steps {
		steps[i] = s.snapshot()
	}
	return Snapshot{
		ID:          l.id,
		Code:        l.code,
		Operation:   l.operation,
		Message:     l.message,
		Running:     l.running,
		StartTime:   l.startTime,
		StopTime:    l.stopTime,
		Total:       l.total,
		Finished:    l.finished,
		NotFinished: l.notFinished,
		Steps:       steps,
	}
}

// publishLocked takes a snapshot for delivery and numbers it.
func (l *Log) publishLocked() (Snapshot, uint64) {
	l.rev++
	return l.snapshotLocked(), l.rev
}

// notify sends s to the sink unless a later revision already went out.
func (l *Log) notify(s Snapshot, rev uint64) {
	sink := l.journal.sink
	if sink == nil || l.index < 0 {
		return
	}
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	if rev <= l.delivered {
		return
	}
	l.delivered = rev
	sink.Update(l.index, s)
}
