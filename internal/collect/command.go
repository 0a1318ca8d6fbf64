package collect

import (
	"context"
	"fmt"
	"time"

	"visionfix/internal/logging"
	"visionfix/internal/tactile"
)

const failureOutputLimit = 500

// CommandCollector runs an external collection command (the browser test
// suite) and picks up the PNGs it leaves behind.
type CommandCollector struct {
	executor       tactile.Executor
	command        tactile.Command
	screenshotsDir string
}

// NewCommandCollector creates a collector that runs commandLine through the
// platform shell in workDir.
func NewCommandCollector(executor tactile.Executor, commandLine, workDir, screenshotsDir string, timeout time.Duration) *CommandCollector {
	cmd := tactile.ShellCommand(commandLine)
	cmd.WorkingDirectory = workDir
	cmd.Timeout = timeout
	return &CommandCollector{
		executor:       executor,
		command:        cmd,
		screenshotsDir: screenshotsDir,
	}
}

// Name implements Collector.
func (c *CommandCollector) Name() string { return "command" }

// Collect implements Collector.
func (c *CommandCollector) Collect(ctx context.Context) ([]Artifact, error) {
	if err := ClearArtifacts(c.screenshotsDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}

	logging.Collect("Running collector: %s", c.command.CommandString())
	result, err := c.executor.Execute(ctx, c.command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}

	switch {
	case result.IsError():
		return nil, fmt.Errorf("%w: %s", ErrCollectionFailed, result.Error)
	case result.Killed:
		return nil, fmt.Errorf("%w: killed (%s)", ErrCollectionFailed, result.KillReason)
	case result.ExitCode != 0:
		logging.CollectWarn("Collector output:\n%s", result.Tail(failureOutputLimit))
		return nil, fmt.Errorf("%w: exit code %d", ErrCollectionFailed, result.ExitCode)
	}

	artifacts, err := ListArtifacts(c.screenshotsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}
	if len(artifacts) == 0 {
		return nil, ErrNoArtifacts
	}
	logging.Collect("Captured %d screenshots in %s", len(artifacts), result.Duration.Round(time.Millisecond))
	return artifacts, nil
}
