//go:build !windows

package gameserver

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcAttr runs the server in its own process group so it survives the
// manager and can be signalled together with its children.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// terminate asks the process group to exit.
func terminate(pid int) error {
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
		return unix.Kill(pid, unix.SIGTERM)
	}
	return nil
}

// kill forcibly ends the process group.
func kill(pid int) error {
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		return unix.Kill(pid, unix.SIGKILL)
	}
	return nil
}
