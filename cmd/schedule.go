package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"servermanager/internal/schedule"
	"servermanager/pkg/logging"
)

// newScheduleCmd creates the command that runs the automation scheduler.
func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the automation scheduler",
		Long: `Runs automatic updates, backups and scheduled shutdowns on their cron
schedules until interrupted. Every job starts this binary with the matching
automation argument, so each run has its own exit code and log.

The job list is rebuilt whenever a profile file changes. Suitable for a systemd
notify service.`,
		Args: cobra.NoArgs,
		RunE: runSchedule,
	}
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	a, err := newApplication()
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}
	var extra []string
	if configPath != "" {
		extra = append(extra, "--config-path", configPath)
	}
	if debug {
		extra = append(extra, "--debug")
	}

	s := schedule.New(schedule.ExecLauncher{Executable: exe, ExtraArgs: extra})
	apply := func() {
		if err := s.Apply(schedule.Jobs(a.Settings().Automation, a.Profiles())); err != nil {
			logging.Error("Schedule", err, "Some jobs could not be scheduled")
		}
		for _, e := range s.Entries() {
			logging.Info("Schedule", "%s (%s) next run %s", e.Name, e.Schedule, e.Next.Format(time.DateTime))
		}
	}
	apply()

	stop, err := a.WatchProfiles(commandContext(cmd), apply)
	if err != nil {
		logging.Warn("Schedule", "Profile watcher unavailable, jobs will not follow profile changes: %v", err)
	} else {
		defer stop()
	}

	return s.Run(commandContext(cmd))
}
