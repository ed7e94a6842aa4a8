package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"servermanager/internal/bot"
	"servermanager/internal/bot/discord"
	"servermanager/internal/config"
	"servermanager/internal/fleet"
	"servermanager/internal/guard"
	"servermanager/internal/shell"
	"servermanager/pkg/logging"
)

const healthCheckInterval = 30 * time.Second

// Run starts the interactive session and blocks until the operator leaves
// the shell or ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	settings := a.Settings()

	decision := guard.Run(ctx, a.guardOptions(settings))
	if decision.Exit {
		logging.Info("Application", "Another process took over, exiting")
		return nil
	}
	defer decision.Release()

	a.DiscoverPublicIP(ctx)
	a.orchestrator.Refresh(ctx)
	a.fleet.OnChange(func() { a.orchestrator.Refresh(ctx) })
	defer logging.CloseProfileLoggers()

	if a.config.Launch.ServerMonitor {
		return a.runMonitor(ctx)
	}

	watcher := fleet.NewWatcher(a.fleet, a.storage, 0)
	if err := watcher.Start(ctx); err != nil {
		logging.Warn("Application", "Profile watcher unavailable: %v", err)
	}
	defer watcher.Stop()

	logLevel := logging.LevelInfo
	if a.config.Debug {
		logLevel = logging.LevelDebug
	}
	logs := logging.InitForShell(logLevel)
	defer logging.CloseShellChannel()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sh := shell.New(shell.Config{
		Dispatcher:     a.bridge,
		Status:         a.ServerRows,
		Banner:         a.banner(),
		Prompt:         a.prompt(),
		Logs:           logs,
		SwitchRequests: guard.SwitchRequests(runCtx),
		Translate:      a.catalog.T,
		Stdin:          a.config.Stdin,
		Stdout:         a.config.Stdout,
		HistoryFile:    filepath.Join(settings.DataPath, ".history"),
	})

	supervisor := newBotSupervisor(runCtx, a.newBotHost(settings), a.catalog.Translate, sh.ReportError, a.catalog.T("DiscordBot_ErrorTitle"))
	sh.SetBotControl(supervisor)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		supervisor.consume(gctx)
		return nil
	})
	g.Go(func() error {
		a.watchStateChanges(gctx)
		return nil
	})
	g.Go(func() error {
		a.checkHealth(gctx)
		return nil
	})
	if settings.Bot.Enabled {
		_ = supervisor.StartBot()
	}
	g.Go(func() error {
		defer cancel()
		return sh.Run(gctx)
	})

	err := g.Wait()
	supervisor.StopBot()
	a.saveState()
	return err
}

func (a *Application) runMonitor(ctx context.Context) error {
	out := a.config.Stdout
	if out == nil {
		out = os.Stdout
	}
	m := &shell.Monitor{
		Status: a.ServerRows,
		Title:  a.banner(),
		Out:    out,
	}
	return m.Run(ctx)
}

func (a *Application) guardOptions(settings config.Config) guard.Options {
	opts := guard.Options{
		Prompter:         a.config.Prompter,
		Instances:        a.config.Instances,
		Elevator:         a.config.Elevator,
		RequireElevation: settings.RunAsAdministratorPrompt,
		Args:             a.config.Launch.Args,
		Translate:        a.catalog.T,
	}
	if opts.Prompter == nil {
		opts.Prompter = guard.NewTerminalPrompter()
	}
	if opts.Instances == nil {
		opts.Instances = guard.NewPidFile(filepath.Join(settings.RunPath(), "servermanager.pid"))
	}
	if opts.Elevator == nil {
		opts.Elevator = guard.SystemElevator{}
	}
	return opts
}

func (a *Application) newBotHost(settings config.Config) *bot.Host {
	factory := a.config.NewBotClient
	if factory == nil {
		factory = discord.Factory
	}
	host := bot.NewHost(bot.Config{
		Token:      settings.Bot.Token,
		Prefix:     settings.Bot.Prefix,
		Dispatcher: a.bridge,
		Translate:  a.catalog.Translate,
		NewClient:  factory,
	})
	host.OnStateChange(func(old, new bot.State) {
		logging.Info("Bot", "Chat bot %s", new)
	})
	return host
}

func (a *Application) watchStateChanges(ctx context.Context) {
	events := a.orchestrator.SubscribeToStateChanges()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Error != nil {
				logging.Warn("Server", "%s is %s: %v", ev.Name, ev.NewState, ev.Error)
				continue
			}
			logging.Info("Server", "%s is %s", ev.Name, ev.NewState)
		}
	}
}

func (a *Application) checkHealth(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.orchestrator.CheckHealth(ctx)
		}
	}
}

func (a *Application) banner() string {
	if t := a.config.Launch.Title; t != "" {
		return t
	}
	version := a.config.Version
	if version == "" {
		version = "dev"
	}
	if a.config.Launch.Beta {
		return a.catalog.Sprintf("Shell_BetaBanner", version)
	}
	return a.catalog.Sprintf("Shell_Banner", version)
}

func (a *Application) prompt() string {
	if a.config.Launch.Beta {
		return "servermanager (beta)> "
	}
	return "servermanager> "
}
