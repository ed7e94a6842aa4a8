package launch

import (
	"context"
	"errors"
	"fmt"

	"servermanager/internal/lifecycle"
	"servermanager/pkg/logging"
)

// Performer executes the unattended actions. Each method returns the exit code of
// the action.
type Performer interface {
	AutoShutdown(ctx context.Context, profileID string, variant int) int
	AutoUpdate(ctx context.Context) int
	AutoBackup(ctx context.Context) int
}

// Run performs inv and returns the process exit code. It never exits the process
// itself.
func Run(ctx context.Context, inv *HeadlessInvocation, performer Performer) int {
	if inv == nil {
		logging.Error("Headless", errors.New("no invocation"), "Headless run requested without a matching mode")
		return lifecycle.ExitInvalidArgument
	}

	logging.Info("Headless", "Running %s (%s)", inv.Mode, inv.Argument)

	var code int
	switch inv.Mode {
	case ModeShutdown1:
		code = performer.AutoShutdown(ctx, inv.ProfileID, 1)
	case ModeShutdown2:
		code = performer.AutoShutdown(ctx, inv.ProfileID, 2)
	case ModeUpdate:
		code = performer.AutoUpdate(ctx)
	case ModeBackup:
		code = performer.AutoBackup(ctx)
	default:
		logging.Error("Headless", fmt.Errorf("unknown mode %d", inv.Mode), "Cannot run headless invocation")
		return lifecycle.ExitInvalidArgument
	}

	if code == lifecycle.ExitOK {
		logging.Info("Headless", "%s finished", inv.Mode)
	} else {
		logging.Warn("Headless", "%s finished with exit code %d", inv.Mode, code)
	}
	return code
}
