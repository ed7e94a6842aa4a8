package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"servermanager/internal/backup"
	"servermanager/internal/bridge"
	"servermanager/internal/config"
	"servermanager/internal/fleet"
	"servermanager/internal/formatting"
	"servermanager/internal/i18n"
	"servermanager/internal/launch"
	"servermanager/internal/lifecycle"
	"servermanager/internal/orchestrator"
	"servermanager/internal/template"
	"servermanager/pkg/logging"
)

// Application is the explicitly constructed application context shared by the
// headless dispatcher, the command bridge and the bot session host.
type Application struct {
	config     *Config
	configPath string

	mu       sync.RWMutex
	settings config.Config

	catalog      *i18n.Catalog
	fleet        *fleet.Fleet
	storage      *fleet.Storage
	orchestrator *orchestrator.Orchestrator
	registry     *lifecycle.Registry
	bridge       *bridge.Bridge
}

// NewApplication loads the configuration and profiles and builds the
// application context.
func NewApplication(cfg *Config) (*Application, error) {
	// Configure logging based on debug flag
	logLevel := logging.LevelInfo
	if cfg.Debug {
		logLevel = logging.LevelDebug
	}
	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.InitForCLI(logLevel, logOutput)

	configPath := cfg.ConfigPath
	if configPath == "" {
		var err error
		configPath, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	settings, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	if config.EnsureUniqueKey(&settings) {
		logging.Info("Bootstrap", "Generated installation key %s", settings.UniqueKey)
		if err := config.SaveConfig(configPath, settings); err != nil {
			logging.Warn("Bootstrap", "Could not persist installation key: %v", err)
		}
	}

	catalog, err := i18n.New(settings.CultureName)
	if err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}

	a := &Application{
		config:     cfg,
		configPath: configPath,
		settings:   settings,
		catalog:    catalog,
		fleet:      fleet.New(),
		storage:    fleet.NewStorage(settings.ProfilesPath()),
	}

	if err := fleet.Reload(a.fleet, a.storage); err != nil {
		logging.Warn("Bootstrap", "Some profiles could not be loaded: %v", err)
	}
	logging.Info("Bootstrap", "Loaded %d profile(s) from %s", a.fleet.Len(), a.storage.Dir())

	a.orchestrator = orchestrator.New(orchestrator.Config{
		Fleet:       a.fleet,
		Archiver:    backup.New(settings.BackupsPath()),
		Templates:   template.New(),
		RunDir:      settings.RunPath(),
		LogsDir:     settings.LogsPath(),
		PublicIP:    a.PublicIP,
		Parallelism: settings.Automation.Parallelism,
	})

	a.registry, err = lifecycle.RegistryFor(a.orchestrator)
	if err != nil {
		return nil, fmt.Errorf("failed to build action registry: %w", err)
	}
	a.bridge = bridge.New(a.fleet, a.registry)

	return a, nil
}

// Settings returns a copy of the loaded configuration.
func (a *Application) Settings() config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// PublicIP returns the stored public address of the machine.
func (a *Application) PublicIP() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings.MachinePublicIP
}

// Dispatcher returns the command bridge.
func (a *Application) Dispatcher() bridge.LifecycleDispatcher {
	return a.bridge
}

// ServerRows returns the current status of every profile.
func (a *Application) ServerRows() []formatting.ServerRow {
	return formatting.BuildRows(a.fleet.List(), a.orchestrator.GetAllServices())
}

// Refresh attaches to running servers of the fleet.
func (a *Application) Refresh(ctx context.Context) {
	a.orchestrator.Refresh(ctx)
}

// RunHeadless performs the automation action selected by the launch arguments
// and returns its exit code.
func (a *Application) RunHeadless(ctx context.Context) int {
	a.DiscoverPublicIP(ctx)
	a.orchestrator.Refresh(ctx)
	defer logging.CloseProfileLoggers()
	return launch.Run(ctx, a.config.Launch.Headless, a.orchestrator)
}

// saveState persists all profiles and the configuration.
func (a *Application) saveState() {
	for _, p := range a.fleet.List() {
		if err := a.storage.Save(p); err != nil {
			logging.Error("Application", err, "%s", a.catalog.Sprintf("Application_Profile_SaveFailedLabel", p.ID, err))
		}
	}

	settings := a.Settings()
	if err := config.SaveConfig(a.configPath, settings); err != nil {
		logging.Error("Application", err, "Failed to save configuration to %s", filepath.Join(a.configPath, "config.yaml"))
	}
}

// Profiles returns copies of all profiles sorted by id.
func (a *Application) Profiles() []*fleet.Profile {
	return a.fleet.List()
}

// Perform runs an action for a local caller. Unlike the command bridge it
// returns the action's error so callers can map it to an exit code.
func (a *Application) Perform(ctx context.Context, kind lifecycle.ActionKind, profileID string) ([]string, error) {
	id, ok := a.fleet.Resolve(profileID, "")
	if !ok {
		return nil, lifecycle.NewExitError(lifecycle.ExitProfileNotFound, fmt.Errorf("%w: %s", fleet.ErrProfileNotFound, profileID))
	}
	op, err := a.registry.Bind(kind, lifecycle.Request{ProfileID: id, OriginSystemID: "cli"})
	if err != nil {
		return nil, lifecycle.NewExitError(lifecycle.ExitInvalidArgument, err)
	}
	a.orchestrator.Refresh(ctx)
	return op(ctx)
}

// WatchProfiles reloads the fleet on profile file changes and calls onChange
// after each reload. The returned function stops the watch.
func (a *Application) WatchProfiles(ctx context.Context, onChange func()) (func(), error) {
	if onChange != nil {
		a.fleet.OnChange(onChange)
	}
	w := fleet.NewWatcher(a.fleet, a.storage, 0)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w.Stop, nil
}
