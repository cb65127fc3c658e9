package tracking

import (
	"log/slog"

	"github.com/repokeeper/repokeeper/domain/operation"
)

// LoggingSink implements operation.Sink by logging when logs start and stop.
type LoggingSink struct {
	logger *slog.Logger
}

var _ operation.Sink = (*LoggingSink)(nil)

// NewLoggingSink creates a new LoggingSink.
func NewLoggingSink(logger *slog.Logger) *LoggingSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingSink{logger: logger}
}

// Append logs the start of an operation. The returned index is unused.
func (s *LoggingSink) Append(snap operation.Snapshot) int {
	s.logger.Debug(snap.Operation+" started",
		slog.Int64("code", snap.Code),
		slog.String("operation_id", snap.ID),
		slog.String("message", snap.Message),
	)
	return 0
}

// Update logs stopped operations; progress updates are ignored.
func (s *LoggingSink) Update(_ int, snap operation.Snapshot) {
	if snap.Running {
		return
	}
	attrs := []any{
		slog.Int64("code", snap.Code),
		slog.String("operation_id", snap.ID),
		slog.Int("steps", snap.Total),
		slog.Int("not_finished", snap.NotFinished),
	}
	if failed := failedStep(snap); failed != nil {
		s.logger.Warn(snap.Operation+" finished with errors",
			append(attrs, slog.String("step", failed.Name), slog.String("error", failed.Description))...)
		return
	}
	s.logger.Info(snap.Operation+" finished", attrs...)
}

func failedStep(snap operation.Snapshot) *operation.StepSnapshot {
	for i := len(snap.Steps) - 1; i >= 0; i-- {
		switch snap.Steps[i].Status {
		case operation.StatusError, operation.StatusDanger:
			return &snap.Steps[i]
		}
	}
	return nil
}
