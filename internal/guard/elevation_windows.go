//go:build windows

package guard

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/windows"
)

// SystemElevator elevates through the "runas" shell verb.
type SystemElevator struct{}

// IsElevated reports whether the process token is elevated.
func (SystemElevator) IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// Relaunch starts an elevated copy of the current executable with args. The
// caller exits on success.
func (SystemElevator) Relaunch(args []string) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = windows.EscapeArg(a)
	}

	verb, _ := windows.UTF16PtrFromString("runas")
	file, _ := windows.UTF16PtrFromString(self)
	params, _ := windows.UTF16PtrFromString(strings.Join(quoted, " "))
	dir, _ := windows.UTF16PtrFromString(cwd)
	if err := windows.ShellExecute(0, verb, file, params, dir, windows.SW_NORMAL); err != nil {
		return fmt.Errorf("elevation was declined or failed: %w", err)
	}
	return nil
}
