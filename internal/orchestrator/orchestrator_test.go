//go:build !windows

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servermanager/internal/backup"
	"servermanager/internal/fleet"
	"servermanager/internal/lifecycle"
	"servermanager/internal/services"
)

type testEnv struct {
	orch    *Orchestrator
	fleet   *fleet.Fleet
	root    string
	install string
}

func newTestEnv(t *testing.T, profiles ...*fleet.Profile) *testEnv {
	t.Helper()
	root := t.TempDir()
	install := filepath.Join(root, "install")
	require.NoError(t, os.MkdirAll(filepath.Join(install, "saves"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(install, "saves", "world.db"), []byte("world"), 0o644))

	f := fleet.New()
	for _, p := range profiles {
		if p.InstallDirectory == "" {
			p.InstallDirectory = install
		}
		require.NoError(t, f.Put(p))
	}

	o := New(Config{
		Fleet:       f,
		Archiver:    backup.New(filepath.Join(root, "backups")),
		RunDir:      filepath.Join(root, "run"),
		LogsDir:     filepath.Join(root, "logs"),
		PublicIP:    func() string { return "203.0.113.7" },
		Parallelism: 2,
	})
	env := &testEnv{orch: o, fleet: f, root: root, install: install}
	t.Cleanup(func() {
		for _, p := range f.List() {
			_, _ = o.Stop(context.Background(), lifecycle.Request{ProfileID: p.ID})
		}
	})
	return env
}

func sleeper(id string) *fleet.Profile {
	return &fleet.Profile{
		ID:            id,
		Executable:    "sleep",
		Arguments:     []string{"30"},
		SaveDirectory: "saves",
		StopTimeout:   2 * time.Second,
		UpdateCommand: []string{"sh", "-c", "echo {{ .ProfileID }} > updated.txt"},
	}
}

func TestStartStop(t *testing.T) {
	env := newTestEnv(t, sleeper("Valheim"))
	ctx := context.Background()

	lines, err := env.orch.Start(ctx, lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Starting Valheim...", lines[0])
	assert.Contains(t, lines[1], "Valheim started (pid ")

	lines, err = env.orch.Start(ctx, lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Valheim is already running."}, lines)

	statuses := env.orch.GetAllServices()
	require.Len(t, statuses, 1)
	assert.Equal(t, string(services.StateRunning), statuses[0].State)

	lines, err = env.orch.Stop(ctx, lifecycle.Request{ProfileID: "VALHEIM"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Stopping Valheim...", "Valheim stopped."}, lines)

	lines, err = env.orch.Stop(ctx, lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Valheim is not running."}, lines)

	assert.FileExists(t, filepath.Join(env.root, "logs", "valheim", "actions.log"))
}

func TestRestart(t *testing.T) {
	env := newTestEnv(t, sleeper("ark"))
	ctx := context.Background()

	lines, err := env.orch.Restart(ctx, lifecycle.Request{ProfileID: "ark"})
	require.NoError(t, err)
	assert.Equal(t, "ark is not running.", lines[0])
	assert.Equal(t, "Starting ark...", lines[1])

	lines, err = env.orch.Restart(ctx, lifecycle.Request{ProfileID: "ark"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Stopping ark...", "ark stopped.", "Starting ark..."}, lines[:3])
}

func TestUnknownProfile(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orch.Start(context.Background(), lifecycle.Request{ProfileID: "missing"})
	require.Error(t, err)
	assert.Equal(t, lifecycle.ExitProfileNotFound, lifecycle.ExitCodeOf(err))
}

func TestUpdateRestartsRunningServer(t *testing.T) {
	env := newTestEnv(t, sleeper("valheim"))
	ctx := context.Background()

	_, err := env.orch.Start(ctx, lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)

	lines, err := env.orch.Update(ctx, lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Stopping valheim...", "valheim stopped.", "Updating valheim...", "valheim updated.", "Starting valheim..."}, lines[:5])

	data, err := os.ReadFile(filepath.Join(env.install, "updated.txt"))
	require.NoError(t, err)
	assert.Equal(t, "valheim\n", string(data))
}

func TestUpdateWithoutCommandIsDisabled(t *testing.T) {
	p := sleeper("valheim")
	p.UpdateCommand = nil
	env := newTestEnv(t, p)

	_, err := env.orch.Update(context.Background(), lifecycle.Request{ProfileID: "valheim"})
	assert.Equal(t, lifecycle.ExitDisabled, lifecycle.ExitCodeOf(err))
}

func TestUpdateCommandFailure(t *testing.T) {
	p := sleeper("valheim")
	p.UpdateCommand = []string{"sh", "-c", "exit 7"}
	env := newTestEnv(t, p)

	_, err := env.orch.Update(context.Background(), lifecycle.Request{ProfileID: "valheim"})
	require.Error(t, err)
	assert.Equal(t, lifecycle.ExitFailed, lifecycle.ExitCodeOf(err))
}

func TestBackup(t *testing.T) {
	p := sleeper("valheim")
	p.BackupRetain = 1
	env := newTestEnv(t, p)
	ctx := context.Background()

	lines, err := env.orch.Backup(ctx, lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Backing up valheim...", lines[0])
	assert.Contains(t, lines[1], "(1 files,")

	archives, err := env.orch.cfg.Archiver.List("valheim")
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestBackupWithoutSaveDirectoryIsDisabled(t *testing.T) {
	p := sleeper("valheim")
	p.SaveDirectory = ""
	env := newTestEnv(t, p)

	_, err := env.orch.Backup(context.Background(), lifecycle.Request{ProfileID: "valheim"})
	assert.Equal(t, lifecycle.ExitDisabled, lifecycle.ExitCodeOf(err))
}

func TestShutdownHonoursGracePeriod(t *testing.T) {
	p := sleeper("valheim")
	p.ShutdownGracePeriod = 100 * time.Millisecond
	env := newTestEnv(t, p)
	ctx := context.Background()

	_, err := env.orch.Start(ctx, lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)

	start := time.Now()
	lines, err := env.orch.Shutdown(ctx, lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, []string{"valheim shuts down in 100ms.", "Stopping valheim...", "valheim stopped."}, lines)
}

func TestActionsOnOneProfileDoNotOverlap(t *testing.T) {
	p := sleeper("valheim")
	p.ShutdownGracePeriod = 300 * time.Millisecond
	env := newTestEnv(t, p)
	ctx := context.Background()

	_, err := env.orch.Start(ctx, lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := env.orch.Shutdown(ctx, lifecycle.Request{ProfileID: "valheim"})
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := env.orch.Start(ctx, lifecycle.Request{ProfileID: "valheim"})
		return lifecycle.ExitCodeOf(err) == lifecycle.ExitProfileBusy
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, <-done)
}

func TestLockFileBlocksOtherProcesses(t *testing.T) {
	env := newTestEnv(t, sleeper("valheim"))

	// A lock held by a live process (this one) blocks the action.
	release, err := acquireLockFile(filepath.Join(env.root, "run", "locks"), "valheim", "backup")
	require.NoError(t, err)

	_, err = env.orch.Backup(context.Background(), lifecycle.Request{ProfileID: "valheim"})
	assert.Equal(t, lifecycle.ExitProfileBusy, lifecycle.ExitCodeOf(err))

	release()
	_, err = env.orch.Backup(context.Background(), lifecycle.Request{ProfileID: "valheim"})
	assert.NoError(t, err)
}

func TestStaleLockFileIsReplaced(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "valheim.lock"), []byte(`{"pid":999999,"action":"update"}`), 0o644))

	release, err := acquireLockFile(dir, "Valheim", "start")
	require.NoError(t, err)
	release()
	assert.NoFileExists(t, filepath.Join(dir, "valheim.lock"))
}

func TestUnwrittenLockFileIsHeldUntilSettled(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "valheim.lock")
	require.NoError(t, os.WriteFile(lockPath, nil, 0o644))

	_, err := acquireLockFile(dir, "valheim", "start")
	require.ErrorIs(t, err, errLocked)
	assert.FileExists(t, lockPath)

	old := time.Now().Add(-2 * lockSettleTime)
	require.NoError(t, os.Chtimes(lockPath, old, old))
	release, err := acquireLockFile(dir, "valheim", "start")
	require.NoError(t, err)
	release()
}

func TestRefreshTracksFleet(t *testing.T) {
	env := newTestEnv(t, sleeper("valheim"), sleeper("ark"))
	ctx := context.Background()

	env.orch.Refresh(ctx)
	assert.Len(t, env.orch.GetServiceRegistry().GetAll(), 2)

	env.fleet.Remove("ark")
	env.orch.Refresh(ctx)
	all := env.orch.GetServiceRegistry().GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "valheim", all[0].GetName())
}

func TestStateChangeEvents(t *testing.T) {
	env := newTestEnv(t, sleeper("valheim"))
	events := env.orch.SubscribeToStateChanges()

	_, err := env.orch.Start(context.Background(), lifecycle.Request{ProfileID: "valheim"})
	require.NoError(t, err)

	var states []string
	timeout := time.After(time.Second)
	for len(states) < 2 {
		select {
		case ev := <-events:
			assert.Equal(t, "valheim", ev.Name)
			states = append(states, ev.NewState)
		case <-timeout:
			t.Fatalf("got only %v", states)
		}
	}
	assert.Equal(t, []string{string(services.StateStarting), string(services.StateRunning)}, states)
}
