// Package tactile is visionfix's hands: it runs the screenshot collection
// subprocess and applies exact-text patches to the project's source files.
package tactile

import (
	"context"
	"strings"
	"time"
)

// Command describes a process to run.
type Command struct {
	Binary           string   `json:"binary"`
	Arguments        []string `json:"arguments"`
	WorkingDirectory string   `json:"working_directory,omitempty"` // executor default when empty

	// Environment holds extra KEY=VALUE pairs.
	Environment []string `json:"environment,omitempty"`

	// Timeout overrides the executor default when positive.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// CommandString joins binary and arguments for log lines.
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult captures the outcome of a command.
type ExecutionResult struct {
	// Success indicates whether the command completed without an
	// infrastructure error. A command that runs but returns non-zero has
	// Success=true.
	Success bool `json:"success"`

	// ExitCode is -1 when the process never exited on its own.
	ExitCode int `json:"exit_code"`

	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Combined string `json:"combined"`

	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	// Killed is set when the timeout or the caller's context ended the run.
	Killed     bool   `json:"killed"`
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated is set when either stream exceeded MaxOutputBytes.
	Truncated      bool  `json:"truncated"`
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	// Error is set when the process could not be run at all.
	Error string `json:"error,omitempty"`
}

// IsError reports an infrastructure failure, not a non-zero exit.
func (r *ExecutionResult) IsError() bool {
	return !r.Success || r.Error != ""
}

// Succeeded reports a clean zero exit.
func (r *ExecutionResult) Succeeded() bool {
	return r.Success && !r.Killed && r.ExitCode == 0
}

// Tail returns at most n trailing bytes of combined output.
func (r *ExecutionResult) Tail(n int) string {
	if len(r.Combined) <= n {
		return r.Combined
	}
	return r.Combined[len(r.Combined)-n:]
}

// Executor is the interface for command execution.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)
}

// ExecutorConfig configures a DirectExecutor.
type ExecutorConfig struct {
	// DefaultWorkingDir applies when Command.WorkingDirectory is empty.
	DefaultWorkingDir string `json:"default_working_dir"`

	// DefaultTimeout applies when Command.Timeout is zero.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// AllowedEnvironment lists environment variables to pass through. Nil
	// inherits the full parent environment, which npm-based collectors need.
	AllowedEnvironment []string `json:"allowed_environment,omitempty"`

	// MaxOutputBytes caps output capture per stream.
	MaxOutputBytes int64 `json:"max_output_bytes"`

	// WaitDelay bounds how long Execute waits for orphaned children holding
	// the output pipes after the main process exits or is killed.
	WaitDelay time.Duration `json:"wait_delay"`
}

// DefaultExecutorConfig returns defaults sized for a browser test run.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultWorkingDir: ".",
		DefaultTimeout:    300 * time.Second,
		MaxOutputBytes:    4 * 1024 * 1024,
		WaitDelay:         5 * time.Second,
	}
}
