package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"servermanager/internal/fleet"
	"servermanager/internal/lifecycle"
	"servermanager/internal/services"
	"servermanager/internal/services/gameserver"
	"servermanager/pkg/logging"
	pkgstrings "servermanager/pkg/strings"
)

// run resolves the profile, takes its lock and runs fn with a fresh output.
func (o *Orchestrator) run(ctx context.Context, kind lifecycle.ActionKind, req lifecycle.Request,
	fn func(ctx context.Context, p *fleet.Profile, svc *gameserver.Service, out *output) error) ([]string, error) {
	p, err := o.profile(req.ProfileID)
	if err != nil {
		return nil, err
	}

	unlock, err := o.lockProfile(p.ID, kind)
	if err != nil {
		return nil, err
	}
	defer unlock()

	svc, err := o.serviceFor(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.ID, err)
	}

	out := &output{log: o.actionLog(p.ID).With("action", kind.String(), "origin", originOf(req))}
	err = fn(ctx, p, svc, out)
	if err != nil {
		out.log.Error("action failed", "error", err)
		logging.Error("Orchestrator", err, "%s %s failed", kind, p.ID)
	}
	return out.lines, err
}

func originOf(req lifecycle.Request) string {
	if req.OriginSystemID == "" && req.OriginChannelID == "" {
		return "local"
	}
	return req.OriginSystemID + "/" + req.OriginChannelID
}

// Start starts the server of a profile.
func (o *Orchestrator) Start(ctx context.Context, req lifecycle.Request) ([]string, error) {
	return o.run(ctx, lifecycle.ActionStart, req, o.start)
}

func (o *Orchestrator) start(ctx context.Context, p *fleet.Profile, svc *gameserver.Service, out *output) error {
	if svc.IsRunning(ctx) {
		out.add("%s is already running.", p.DisplayName())
		return nil
	}
	out.add("Starting %s...", p.DisplayName())
	if err := svc.Start(ctx); err != nil {
		return err
	}
	out.add("%s started (pid %d).", p.DisplayName(), svc.PID())
	return nil
}

// Stop stops the server of a profile.
func (o *Orchestrator) Stop(ctx context.Context, req lifecycle.Request) ([]string, error) {
	return o.run(ctx, lifecycle.ActionStop, req, o.stop)
}

func (o *Orchestrator) stop(ctx context.Context, p *fleet.Profile, svc *gameserver.Service, out *output) error {
	if !svc.IsRunning(ctx) {
		out.add("%s is not running.", p.DisplayName())
		return nil
	}
	out.add("Stopping %s...", p.DisplayName())
	if err := svc.Stop(ctx); err != nil {
		return err
	}
	out.add("%s stopped.", p.DisplayName())
	return nil
}

// Restart stops the server of a profile if it is running and starts it again.
func (o *Orchestrator) Restart(ctx context.Context, req lifecycle.Request) ([]string, error) {
	return o.run(ctx, lifecycle.ActionRestart, req, func(ctx context.Context, p *fleet.Profile, svc *gameserver.Service, out *output) error {
		if err := o.stop(ctx, p, svc, out); err != nil {
			return err
		}
		return o.start(ctx, p, svc, out)
	})
}

// Update runs the update command of a profile, stopping the server first and
// starting it again afterwards if it was running.
func (o *Orchestrator) Update(ctx context.Context, req lifecycle.Request) ([]string, error) {
	return o.run(ctx, lifecycle.ActionUpdate, req, func(ctx context.Context, p *fleet.Profile, svc *gameserver.Service, out *output) error {
		return o.update(ctx, p, svc, out, true)
	})
}

func (o *Orchestrator) update(ctx context.Context, p *fleet.Profile, svc *gameserver.Service, out *output, restart bool) error {
	if len(p.UpdateCommand) == 0 {
		return lifecycle.NewExitError(lifecycle.ExitDisabled, fmt.Errorf("%s has no update command", p.ID))
	}

	wasRunning := svc.IsRunning(ctx)
	if wasRunning {
		if err := o.stop(ctx, p, svc, out); err != nil {
			return err
		}
	}

	out.add("Updating %s...", p.DisplayName())
	svc.UpdateState(services.StateUpdating, services.HealthUnknown, nil)
	err := o.runUpdateCommand(ctx, p)
	if err != nil {
		svc.UpdateState(services.StateFailed, services.HealthUnhealthy, err)
		return fmt.Errorf("update command failed: %w", err)
	}
	svc.UpdateState(services.StateStopped, services.HealthUnknown, nil)
	out.add("%s updated.", p.DisplayName())

	if wasRunning && restart {
		return o.start(ctx, p, svc, out)
	}
	return nil
}

func (o *Orchestrator) runUpdateCommand(ctx context.Context, p *fleet.Profile) error {
	argv, err := o.cfg.Templates.RenderAll(p.UpdateCommand, o.templateData(p))
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = p.InstallDirectory
	cmd.Env = os.Environ()

	if o.cfg.LogsDir != "" {
		dir := logging.ProfileLogFolder(o.cfg.LogsDir, p.ID)
		if err := os.MkdirAll(dir, 0o755); err == nil {
			f, err := os.OpenFile(filepath.Join(dir, "update.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				defer f.Close()
				fmt.Fprintf(f, "--- %s %v\n", time.Now().Format(time.RFC3339), argv)
				cmd.Stdout = f
				cmd.Stderr = f
			}
		}
	}
	return cmd.Run()
}

// Backup archives the save directory of a profile and prunes old archives.
func (o *Orchestrator) Backup(ctx context.Context, req lifecycle.Request) ([]string, error) {
	return o.run(ctx, lifecycle.ActionBackup, req, o.backup)
}

func (o *Orchestrator) backup(ctx context.Context, p *fleet.Profile, _ *gameserver.Service, out *output) error {
	if p.SaveDirectory == "" {
		return lifecycle.NewExitError(lifecycle.ExitDisabled, fmt.Errorf("%s has no save directory", p.ID))
	}
	if o.cfg.Archiver == nil {
		return lifecycle.NewExitError(lifecycle.ExitDisabled, fmt.Errorf("backups are not configured"))
	}

	source := p.SaveDirectory
	if !filepath.IsAbs(source) && p.InstallDirectory != "" {
		source = filepath.Join(p.InstallDirectory, source)
	}

	out.add("Backing up %s...", p.DisplayName())
	res, err := o.cfg.Archiver.Create(ctx, p.ID, source)
	if err != nil {
		return err
	}
	out.add("Backup %s written (%d files, %s).", filepath.Base(res.Path), res.Files, pkgstrings.HumanBytes(uint64(res.Size)))

	removed, err := o.cfg.Archiver.Prune(p.ID, p.EffectiveBackupRetain())
	if err != nil {
		logging.Warn("Orchestrator", "Pruning backups of %s: %v", p.ID, err)
	}
	if len(removed) > 0 {
		out.add("Removed %d old backup(s).", len(removed))
	}
	return nil
}

// Shutdown stops the server of a profile after its shutdown grace period.
func (o *Orchestrator) Shutdown(ctx context.Context, req lifecycle.Request) ([]string, error) {
	return o.run(ctx, lifecycle.ActionShutdown, req, o.shutdown)
}

func (o *Orchestrator) shutdown(ctx context.Context, p *fleet.Profile, svc *gameserver.Service, out *output) error {
	if !svc.IsRunning(ctx) {
		out.add("%s is not running.", p.DisplayName())
		return nil
	}
	if grace := p.ShutdownGracePeriod; grace > 0 {
		out.add("%s shuts down in %s.", p.DisplayName(), grace)
		timer := time.NewTimer(grace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lifecycle.NewExitError(lifecycle.ExitCancelled, ctx.Err())
		}
	}
	return o.stop(ctx, p, svc, out)
}
