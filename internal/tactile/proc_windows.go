//go:build windows

package tactile

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}

// ShellCommand wraps a command line for the platform shell.
func ShellCommand(line string) Command {
	return Command{Binary: "cmd", Arguments: []string{"/C", line}}
}
