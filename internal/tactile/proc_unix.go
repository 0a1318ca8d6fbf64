//go:build !windows

package tactile

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the child in its own process group and makes
// cancellation kill the whole group, so npm's grandchildren die with it.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

// ShellCommand wraps a command line for the platform shell.
func ShellCommand(line string) Command {
	return Command{Binary: "/bin/sh", Arguments: []string{"-c", line}}
}
