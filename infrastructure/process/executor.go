// Package process runs external programs for repository lifecycle operations.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/repokeeper/repokeeper/domain/service"
	"github.com/repokeeper/repokeeper/internal/log"
)

// waitDelay bounds how long output is drained after a cancelled command
// is killed, since children may keep its pipes open.
const waitDelay = 2 * time.Second

// Executor runs commands with os/exec.
// Implements domain/service.Executor.
type Executor struct {
	timeout time.Duration
	logger  *log.Logger
}

var _ service.Executor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout bounds every command. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{logger: log.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts cmd and waits for it to exit.
func (e *Executor) Run(ctx context.Context, cmd service.Command) (service.Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out

	logger := e.logger.WithContext(ctx)
	start := time.Now()
	logger.Debug("running command",
		slog.String("command", cmd.String()),
		slog.String("dir", cmd.Dir),
	)

	err := c.Run()
	result := service.Result{Output: out.Bytes()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return result, fmt.Errorf("run %s: %w", cmd.Program, ctx.Err())
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("run %s: %w", cmd.Program, err)
	}

	logger.Debug("command finished",
		slog.String("command", cmd.String()),
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}
