//go:build !windows

package guard

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// SystemElevator elevates through sudo by replacing the process image.
type SystemElevator struct{}

// IsElevated reports whether the process runs as root.
func (SystemElevator) IsElevated() bool {
	return unix.Geteuid() == 0
}

// Relaunch execs sudo with the current executable and args. It returns only on failure.
func (SystemElevator) Relaunch(args []string) error {
	sudo, err := exec.LookPath("sudo")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrElevationUnsupported, err)
	}
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}
	argv := append([]string{"sudo", "--", self}, args...)
	if err := unix.Exec(sudo, argv, os.Environ()); err != nil {
		return fmt.Errorf("failed to exec sudo: %w", err)
	}
	return nil
}
