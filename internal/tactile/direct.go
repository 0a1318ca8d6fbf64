package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"visionfix/internal/logging"
)

// DirectExecutor runs commands on the host with os/exec.
type DirectExecutor struct {
	cfg ExecutorConfig

	hookMu sync.Mutex
	hook   func(Command, *ExecutionResult)
}

// NewDirectExecutor returns an executor with DefaultExecutorConfig.
func NewDirectExecutor() *DirectExecutor {
	return NewDirectExecutorWithConfig(DefaultExecutorConfig())
}

// NewDirectExecutorWithConfig returns an executor; zero limits fall back to
// the defaults.
func NewDirectExecutorWithConfig(cfg ExecutorConfig) *DirectExecutor {
	def := DefaultExecutorConfig()
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = def.MaxOutputBytes
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	return &DirectExecutor{cfg: cfg}
}

// OnFinish registers a hook called after every execution.
func (e *DirectExecutor) OnFinish(hook func(Command, *ExecutionResult)) {
	e.hookMu.Lock()
	e.hook = hook
	e.hookMu.Unlock()
}

// Execute runs cmd and waits for it. The error is non-nil only for commands
// that cannot be described; launch failures, kills and exit codes are all
// reported through the result.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if cmd.Binary == "" {
		return nil, errors.New("command has no binary")
	}
	if cmd.WorkingDirectory == "" {
		cmd.WorkingDirectory = e.cfg.DefaultWorkingDir
	}
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}

	timer := logging.StartTimer(logging.CategoryPatch, "exec "+cmd.Binary)
	defer timer.Stop()
	logging.PatchDebug("exec %q in %s (timeout %s)", cmd.CommandString(), cmd.WorkingDirectory, timeout)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := &cappedBuffer{limit: e.cfg.MaxOutputBytes}
	stderr := &cappedBuffer{limit: e.cfg.MaxOutputBytes}

	proc := exec.CommandContext(runCtx, cmd.Binary, cmd.Arguments...)
	proc.Dir = cmd.WorkingDirectory
	proc.Env = e.environment(cmd.Environment)
	proc.Stdout = stdout
	proc.Stderr = stderr
	proc.WaitDelay = e.cfg.WaitDelay
	configureProcessGroup(proc)

	res := &ExecutionResult{ExitCode: -1, StartedAt: time.Now()}
	runErr := proc.Run()
	res.FinishedAt = time.Now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Combined = joinOutput(res.Stdout, res.Stderr)
	if dropped := stdout.dropped + stderr.dropped; dropped > 0 {
		res.Truncated = true
		res.TruncatedBytes = dropped
		logging.PatchWarn("%s: %d bytes of output dropped", cmd.Binary, dropped)
	}

	classify(res, runErr, runCtx.Err(), timeout)
	logging.PatchDebug("%s finished: exit=%d killed=%v in %s", cmd.Binary, res.ExitCode, res.Killed, res.Duration)

	e.hookMu.Lock()
	hook := e.hook
	e.hookMu.Unlock()
	if hook != nil {
		hook(cmd, res)
	}
	return res, nil
}

// classify fills the outcome fields of res from the Run error and the state
// of the run context.
func classify(res *ExecutionResult, runErr, ctxErr error, timeout time.Duration) {
	var exitErr *exec.ExitError
	res.Success = true
	switch {
	case runErr == nil:
		res.ExitCode = 0
	case errors.Is(ctxErr, context.DeadlineExceeded):
		res.Killed = true
		res.KillReason = fmt.Sprintf("timeout after %s", timeout)
	case errors.Is(ctxErr, context.Canceled):
		res.Killed = true
		res.KillReason = "context canceled"
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.Success = false
		res.Error = runErr.Error()
		logging.PatchError("exec failed: %v", runErr)
	}
}

// environment returns the child environment: the parent's (or only its
// allowlisted keys) followed by extra.
func (e *DirectExecutor) environment(extra []string) []string {
	if e.cfg.AllowedEnvironment == nil {
		return append(os.Environ(), extra...)
	}
	env := make([]string, 0, len(e.cfg.AllowedEnvironment)+len(extra))
	for _, key := range e.cfg.AllowedEnvironment {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			env = append(env, key+"="+val)
		}
	}
	return append(env, extra...)
}

func joinOutput(stdout, stderr string) string {
	parts := make([]string, 0, 2)
	for _, s := range []string{stdout, stderr} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// cappedBuffer keeps the first limit bytes written to it and counts the rest.
// Writes never fail short, so os/exec keeps draining the pipe.
type cappedBuffer struct {
	buf     bytes.Buffer
	limit   int64
	dropped int64
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.limit - int64(c.buf.Len())
	switch {
	case room <= 0:
		c.dropped += int64(len(p))
	case int64(len(p)) > room:
		c.buf.Write(p[:room])
		c.dropped += int64(len(p)) - room
	default:
		c.buf.Write(p)
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string { return c.buf.String() }
