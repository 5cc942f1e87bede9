//go:build !windows

package command

import (
	"os/exec"
	"syscall"
)

// setupProcess puts the child in its own process group so a timeout kills
// anything it spawned as well.
func setupProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
