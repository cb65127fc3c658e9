package persistence

import (
	"github.com/repokeeper/repokeeper/domain/operation"
	"github.com/repokeeper/repokeeper/domain/repository"
)

// ConfigMapper maps between repository.Config and ConfigModel.
type ConfigMapper struct{}

// ToDomain converts a ConfigModel to a repository.Config.
func (m ConfigMapper) ToDomain(e ConfigModel) repository.Config {
	return repository.Config{
		URL:         e.URL,
		OriginalURL: e.OriginalURL,
		Username:    e.Username,
		Password:    e.Password,
		Cloned:      e.Cloned,
		ProjectName: e.ProjectName,
		URLType:     repository.URLType(e.URLType),
	}
}

// ToModel converts a repository.Config to a ConfigModel.
func (m ConfigMapper) ToModel(c repository.Config) ConfigModel {
	return ConfigModel{
		URL:         c.URL,
		OriginalURL: c.OriginalURL,
		Username:    c.Username,
		Password:    c.Password,
		Cloned:      c.Cloned,
		ProjectName: c.ProjectName,
		URLType:     string(c.URLType),
	}
}

// LogMapper maps between operation.Snapshot and LogModel.
type LogMapper struct{}

// ToDomain converts a LogModel to a Snapshot. Missing counters are
// recomputed from the steps and missing statuses become normal.
func (m LogMapper) ToDomain(e LogModel) operation.Snapshot {
	steps := make([]operation.StepSnapshot, len(e.Log))
	for i, s := range e.Log {
		steps[i] = operation.StepSnapshot{
			Name:        s.Name,
			Description: s.Description,
			Status:      operation.ParseStatus(s.Status),
			StartTime:   s.StartTime,
			StopTime:    s.StopTime,
			Finished:    s.Finish,
		}
	}

	snap := operation.Snapshot{
		ID:        e.ID,
		Code:      e.OperationCode,
		Operation: e.Operation,
		Message:   e.Message,
		Running:   e.Running,
		StartTime: e.StartTime,
		StopTime:  e.StopTime,
		Steps:     steps,
	}

	finished, notFinished := snap.Counts()
	snap.Total = intOr(e.TotalOperation, len(steps))
	snap.Finished = intOr(e.FinishOperation, finished)
	snap.NotFinished = intOr(e.NotFinishOperation, notFinished)
	return snap
}

// ToModel converts a Snapshot to a LogModel.
func (m LogMapper) ToModel(s operation.Snapshot) LogModel {
	steps := make([]StepModel, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = StepModel{
			Name:        st.Name,
			Description: st.Description,
			Status:      string(st.Status),
			StartTime:   st.StartTime,
			StopTime:    st.StopTime,
			Finish:      st.Finished,
		}
	}
	total, finished, notFinished := s.Total, s.Finished, s.NotFinished
	return LogModel{
		ID:                 s.ID,
		OperationCode:      s.Code,
		Operation:          s.Operation,
		Message:            s.Message,
		Running:            s.Running,
		StartTime:          s.StartTime,
		StopTime:           s.StopTime,
		NotFinishOperation: &notFinished,
		FinishOperation:    &finished,
		TotalOperation:     &total,
		Log:                steps,
	}
}

func intOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}
