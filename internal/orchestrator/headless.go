package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"servermanager/internal/fleet"
	"servermanager/internal/launch"
	"servermanager/internal/lifecycle"
	"servermanager/internal/services/gameserver"
	"servermanager/pkg/logging"
)

var _ launch.Performer = (*Orchestrator)(nil)

// AutoShutdown performs scheduled shutdown variant 1 or 2 of a profile: a
// graceful shutdown, then the update and restart the variant asks for.
func (o *Orchestrator) AutoShutdown(ctx context.Context, profileID string, variant int) int {
	if profileID == "" {
		logging.Error("Headless", fmt.Errorf("no profile given"), "Auto shutdown %d aborted", variant)
		return lifecycle.ExitProfileNotFound
	}
	p, err := o.profile(profileID)
	if err != nil {
		logging.Error("Headless", err, "Auto shutdown %d aborted", variant)
		return lifecycle.ExitCodeOf(err)
	}
	settings, err := p.AutoShutdownVariant(variant)
	if err != nil {
		logging.Error("Headless", err, "Auto shutdown aborted")
		return lifecycle.ExitInvalidArgument
	}
	if !settings.Enabled {
		logging.Warn("Headless", "Auto shutdown %d is disabled for %s", variant, p.ID)
		return lifecycle.ExitDisabled
	}

	req := lifecycle.Request{ProfileID: p.ID}
	kind := lifecycle.ActionShutdown
	lines, err := o.run(ctx, kind, req, func(ctx context.Context, p *fleet.Profile, svc *gameserver.Service, out *output) error {
		wasRunning := svc.IsRunning(ctx)
		if err := o.shutdown(ctx, p, svc, out); err != nil {
			return err
		}
		if settings.Update {
			if err := o.update(ctx, p, svc, out, false); err != nil {
				return err
			}
		}
		if settings.Restart && (wasRunning || settings.Update) {
			return o.start(ctx, p, svc, out)
		}
		return nil
	})
	logLines(p.ID, lines)
	return exitCode(ctx, err)
}

// AutoUpdate updates every profile that has automatic updates enabled.
func (o *Orchestrator) AutoUpdate(ctx context.Context) int {
	return o.forEach(ctx, "update", func(p *fleet.Profile) bool { return p.AutoUpdate }, o.Update)
}

// AutoBackup backs up every profile that has automatic backups enabled.
func (o *Orchestrator) AutoBackup(ctx context.Context) int {
	return o.forEach(ctx, "backup", func(p *fleet.Profile) bool { return p.AutoBackup }, o.Backup)
}

// forEach runs action on the selected profiles with bounded parallelism. It
// returns ExitOK when all succeed, the failure code when the only selected
// profile fails, and ExitPartialFailure or ExitFailed otherwise.
func (o *Orchestrator) forEach(ctx context.Context, name string, selected func(*fleet.Profile) bool, action lifecycle.Action) int {
	var targets []*fleet.Profile
	for _, p := range o.cfg.Fleet.List() {
		if selected(p) {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		logging.Info("Headless", "No profiles have automatic %s enabled", name)
		return lifecycle.ExitOK
	}

	var mu sync.Mutex
	codes := make(map[string]int, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Parallelism)
	for _, p := range targets {
		g.Go(func() error {
			lines, err := action(gctx, lifecycle.Request{ProfileID: p.ID})
			logLines(p.ID, lines)
			mu.Lock()
			codes[p.ID] = exitCode(gctx, err)
			mu.Unlock()
			// Failures of one profile must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	last := lifecycle.ExitOK
	for id, code := range codes {
		if code != lifecycle.ExitOK {
			failed++
			last = code
			logging.Warn("Headless", "Automatic %s of %s ended with exit code %d", name, id, code)
		}
	}
	switch {
	case failed == 0:
		return lifecycle.ExitOK
	case len(targets) == 1:
		return last
	case failed == len(targets):
		return lifecycle.ExitFailed
	default:
		return lifecycle.ExitPartialFailure
	}
}

func exitCode(ctx context.Context, err error) int {
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return lifecycle.ExitCancelled
	}
	return lifecycle.ExitCodeOf(err)
}

func logLines(profileID string, lines []string) {
	for _, line := range lines {
		logging.Info("Headless", "[%s] %s", profileID, line)
	}
}
