// Package operation records long-running lifecycle actions as ordered,
// timed steps that are persisted once the action ends.
package operation

import "strings"

// TimeFormat is the layout of every start and stop time.
const TimeFormat = "2006-01-02 15:04:05"

// Status tags a step.
type Status string

// Status values.
const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusDanger  Status = "danger"
)

// ParseStatus maps s to a Status, defaulting to normal.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusWarning:
		return StatusWarning
	case StatusError:
		return StatusError
	case StatusDanger:
		return StatusDanger
	default:
		return StatusNormal
	}
}

// Step is one entry of a Log. Steps are created and finished through
// their Log; the pointer is the handle identifying the step.
type Step struct {
	name        string
	description string
	status      Status
	startTime   string
	stopTime    string
	finished    bool
}

func (s *Step) stop(at string) {
	s.stopTime = at
	s.finished = true
}

func (s *Step) snapshot() StepSnapshot {
	return StepSnapshot{
		Name:        s.name,
		Description: s.description,
		Status:      s.status,
		StartTime:   s.startTime,
		StopTime:    s.stopTime,
		Finished:    s.finished,
	}
}

// Name returns the step label.
func (s *Step) Name() string { return s.name }

// Status returns the step status.
func (s *Step) Status() Status { return s.status }

// StepSnapshot is the serialisable form of a Step.
type StepSnapshot struct {
	Name        string
	Description string
	Status      Status
	StartTime   string
	StopTime    string
	Finished    bool
}

// Snapshot is the serialisable form of a Log. It holds exactly the
// persisted fields and is what sinks and stores receive.
type Snapshot struct {
	ID          string
	Code        int64
	Operation   string
	Message     string
	Running     bool
	StartTime   string
	StopTime    string
	Total       int
	Finished    int
	NotFinished int
	Steps       []StepSnapshot
}

// Counts returns the finished and unfinished step counts.
func (s Snapshot) Counts() (finished, notFinished int) {
	for _, step := range s.Steps {
		if step.Finished {
			finished++
		}
	}
	return finished, len(s.Steps) - finished
}
