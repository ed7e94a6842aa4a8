// Package schedule runs the unattended maintenance modes on cron schedules.
//
// The scheduler does not perform actions itself. It launches the manager binary
// with one automation flag per job, so every scheduled run is an ordinary
// headless invocation with its own exit code.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"servermanager/internal/config"
	"servermanager/internal/fleet"
	"servermanager/internal/launch"
	"servermanager/pkg/logging"
)

// Job is one scheduled headless invocation.
type Job struct {
	Name     string
	Schedule string
	Args     []string
}

// Jobs derives the jobs from the automation settings and the profiles.
func Jobs(automation config.AutomationConfig, profiles []*fleet.Profile) []Job {
	var jobs []Job
	if automation.AutoUpdateSchedule != "" {
		jobs = append(jobs, Job{Name: "auto-update", Schedule: automation.AutoUpdateSchedule, Args: []string{launch.ArgAutoUpdate}})
	}
	if automation.AutoBackupSchedule != "" {
		jobs = append(jobs, Job{Name: "auto-backup", Schedule: automation.AutoBackupSchedule, Args: []string{launch.ArgAutoBackup}})
	}
	for _, p := range profiles {
		for variant, flag := range map[int]string{1: launch.ArgAutoShutdown1, 2: launch.ArgAutoShutdown2} {
			settings, _ := p.AutoShutdownVariant(variant)
			if !settings.Enabled || settings.Schedule == "" {
				continue
			}
			jobs = append(jobs, Job{
				Name:     fmt.Sprintf("auto-shutdown%d-%s", variant, p.Key()),
				Schedule: settings.Schedule,
				Args:     []string{flag + p.ID},
			})
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// Launcher starts one headless run and returns its exit code.
type Launcher interface {
	Launch(ctx context.Context, args []string) (int, error)
}

// ExecLauncher runs Executable as a child process.
type ExecLauncher struct {
	Executable string
	// ExtraArgs are appended to every invocation, for example "--config-path".
	ExtraArgs []string
}

// Launch implements Launcher.
func (l ExecLauncher) Launch(ctx context.Context, args []string) (int, error) {
	argv := append(append([]string{}, args...), l.ExtraArgs...)
	cmd := exec.CommandContext(ctx, l.Executable, argv...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

// Entry describes a registered job.
type Entry struct {
	Name     string
	Schedule string
	Next     time.Time
}

// Scheduler owns the cron instance.
type Scheduler struct {
	launcher Launcher
	cron     *cron.Cron

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	id  cron.EntryID
	job Job
}

// New creates a Scheduler. Runs of the same job never overlap.
func New(launcher Launcher) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		launcher: launcher,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		entries: make(map[string]entry),
	}
}

// Apply replaces the registered jobs. Invalid schedules are reported together;
// the valid jobs are registered anyway.
func (s *Scheduler) Apply(jobs []Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, e := range s.entries {
		s.cron.Remove(e.id)
		delete(s.entries, name)
	}

	var errs []error
	for _, job := range jobs {
		job := job
		id, err := s.cron.AddFunc(job.Schedule, func() { s.launch(job) })
		if err != nil {
			errs = append(errs, fmt.Errorf("job %s: invalid schedule %q: %w", job.Name, job.Schedule, err))
			continue
		}
		s.entries[job.Name] = entry{id: id, job: job}
	}
	logging.Info("Schedule", "%d job(s) scheduled", len(s.entries))
	return errors.Join(errs...)
}

// Entries returns the registered jobs sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Entry{Name: e.job.Name, Schedule: e.job.Schedule, Next: s.cron.Entry(e.id).Next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) launch(job Job) {
	logging.Info("Schedule", "Running %s %v", job.Name, job.Args)
	code, err := s.launcher.Launch(context.Background(), job.Args)
	if err != nil {
		logging.Error("Schedule", err, "Job %s could not be launched", job.Name)
		return
	}
	if code != 0 {
		logging.Warn("Schedule", "Job %s finished with exit code %d", job.Name, code)
		return
	}
	logging.Info("Schedule", "Job %s finished", job.Name)
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running jobs. It notifies systemd when running as a notify service.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("Schedule", "Failed to notify systemd: %v", err)
	} else if ok {
		logging.Debug("Schedule", "Notified systemd readiness")
	}

	<-ctx.Done()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts pkg/logging to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug("Schedule", "%s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error("Schedule", err, "%s %v", msg, keysAndValues)
}
