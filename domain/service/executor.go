// Package service defines the contracts lifecycle code needs from the outside world.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrProcessFailed is wrapped by errors for commands that exited non-zero.
var ErrProcessFailed = errors.New("process failed")

// Command is one external program invocation.
type Command struct {
	Program string
	Args    []string
	Dir     string
	// Env is appended to the current environment.
	Env []string
}

// String renders the command line for logs. Env is never included.
func (c Command) String() string {
	return strings.TrimSpace(c.Program + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Output   []byte
}

// Success reports whether the command exited with code zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Err returns nil for a zero exit code and an ErrProcessFailed wrapper otherwise.
func (r Result) Err(cmd Command) error {
	if r.Success() {
		return nil
	}
	out := strings.TrimSpace(string(r.Output))
	if out == "" {
		return fmt.Errorf("%s: exit code %d: %w", cmd.Program, r.ExitCode, ErrProcessFailed)
	}
	return fmt.Errorf("%s: exit code %d: %s: %w", cmd.Program, r.ExitCode, out, ErrProcessFailed)
}

// Executor runs external programs.
//
// Run blocks until the program exits. A non-zero exit is reported as a
// Result, not an error; the error is reserved for programs that could not
// be started or were interrupted through ctx.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}
