// Package guard runs the one-shot startup checks of an interactive session:
// elevated privileges and a single running instance per machine.
package guard

import (
	"context"
	"errors"

	"servermanager/pkg/logging"
)

var (
	// ErrSwitchUnsupported is returned where a running instance cannot be brought forward.
	ErrSwitchUnsupported = errors.New("switching to the running instance is not supported on this platform")

	// ErrElevationUnsupported is returned when no elevation mechanism is available.
	ErrElevationUnsupported = errors.New("elevated relaunch is not available")

	// ErrNotInteractive is returned by prompts without a terminal.
	ErrNotInteractive = errors.New("no interactive terminal")
)

// Prompter asks the operator yes/no questions and shows notices.
type Prompter interface {
	Confirm(title, label string) (bool, error)
	Alert(title, label string)
}

// InstanceLocator finds and records the running interactive instance.
type InstanceLocator interface {
	// Find returns the pid of another running instance, if any.
	Find() (pid int, found bool, err error)
	// Register records this process as the running instance.
	Register() (release func(), err error)
	// SwitchTo asks the instance with pid to come to the front.
	SwitchTo(pid int) error
}

// Elevator checks for and acquires elevated privileges.
type Elevator interface {
	IsElevated() bool
	// Relaunch starts the current executable elevated with args. On platforms
	// that replace the process image it only returns on failure.
	Relaunch(args []string) error
}

// Options configures Run.
type Options struct {
	Prompter  Prompter
	Instances InstanceLocator
	Elevator  Elevator

	// RequireElevation enables the elevation check.
	RequireElevation bool

	// Args are passed unchanged to an elevated relaunch.
	Args []string

	// Translate resolves message keys. Keys are used verbatim when nil.
	Translate func(key string) string
}

// Decision is the outcome of Run.
type Decision struct {
	// Exit is set when this process should terminate because another process took over.
	Exit bool
	// Release removes the instance record. Never nil.
	Release func()
}

// Run performs the elevation check and then the single-instance check. Each
// prompt is shown at most once. Failures are reported through the prompter and
// the process continues.
func Run(ctx context.Context, opts Options) Decision {
	noop := Decision{Release: func() {}}
	t := opts.Translate
	if t == nil {
		t = func(key string) string { return key }
	}

	if ctx.Err() != nil {
		return noop
	}

	if opts.RequireElevation && opts.Elevator != nil && !opts.Elevator.IsElevated() {
		ok, err := opts.Prompter.Confirm(t("Application_RunAsAdministratorTitle"), t("Application_RunAsAdministratorLabel"))
		if err != nil {
			logging.Warn("Guard", "Elevation prompt unavailable: %v", err)
		}
		if ok {
			if err := opts.Elevator.Relaunch(opts.Args); err != nil {
				logging.Error("Guard", err, "Elevated relaunch failed")
				opts.Prompter.Alert(t("Application_RunAsAdministrator_FailedTitle"), t("Application_RunAsAdministrator_FailedLabel"))
			} else {
				logging.Info("Guard", "Relaunched with elevated privileges")
				return Decision{Exit: true, Release: noop.Release}
			}
		}
	}

	if opts.Instances == nil {
		return noop
	}

	pid, found, err := opts.Instances.Find()
	if err != nil {
		logging.Warn("Guard", "Instance detection failed: %v", err)
	}
	if found {
		logging.Info("Guard", "Another instance is running (pid %d)", pid)
		ok, err := opts.Prompter.Confirm(t("Application_SingleInstanceTitle"), t("Application_SingleInstanceLabel"))
		if err != nil {
			logging.Warn("Guard", "Instance prompt unavailable: %v", err)
		}
		if ok {
			if err := opts.Instances.SwitchTo(pid); err != nil {
				logging.Error("Guard", err, "Switch to pid %d failed", pid)
				opts.Prompter.Alert(t("Application_SingleInstance_FailedTitle"), t("Application_SingleInstance_FailedLabel"))
			} else {
				return Decision{Exit: true, Release: noop.Release}
			}
		}
		// The running instance keeps its record.
		return noop
	}

	release, err := opts.Instances.Register()
	if err != nil {
		logging.Warn("Guard", "Could not record running instance: %v", err)
		return noop
	}
	return Decision{Release: release}
}
