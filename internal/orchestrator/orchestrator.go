package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"servermanager/internal/backup"
	"servermanager/internal/fleet"
	"servermanager/internal/lifecycle"
	"servermanager/internal/services"
	"servermanager/internal/services/gameserver"
	"servermanager/internal/template"
	"servermanager/pkg/logging"
)

// Config holds the configuration for the orchestrator.
type Config struct {
	Fleet     *fleet.Fleet
	Archiver  *backup.Archiver
	Templates *template.Engine

	// RunDir holds pid and lock files.
	RunDir string

	// LogsDir is the root of the per-profile log folders.
	LogsDir string

	// PublicIP returns the machine's public address for argument templates.
	PublicIP func() string

	// Parallelism bounds the profiles processed at once by unattended runs.
	Parallelism int
}

// Orchestrator manages the game server services of the fleet.
type Orchestrator struct {
	cfg      Config
	registry services.ServiceRegistry

	mu                     sync.RWMutex
	locks                  map[string]*sync.Mutex
	stateChangeSubscribers []chan<- ServiceStateChangedEvent
}

var _ lifecycle.Implementation = (*Orchestrator)(nil)

// New creates a new orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Templates == nil {
		cfg.Templates = template.New()
	}
	if cfg.PublicIP == nil {
		cfg.PublicIP = func() string { return "" }
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: services.NewRegistry(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// GetServiceRegistry returns the registry of game server services.
func (o *Orchestrator) GetServiceRegistry() services.ServiceRegistry {
	return o.registry
}

// Refresh makes the registered services match the fleet: it creates services
// for new profiles, attaches to running processes and drops services of removed
// profiles that are not running.
func (o *Orchestrator) Refresh(ctx context.Context) {
	known := make(map[string]bool)
	for _, p := range o.cfg.Fleet.List() {
		known[p.Key()] = true
		if _, err := o.serviceFor(ctx, p); err != nil {
			logging.Warn("Orchestrator", "Cannot prepare %s: %v", p.ID, err)
		}
	}
	for _, svc := range o.registry.GetAll() {
		if known[fleet.NormalizeID(svc.GetName())] {
			continue
		}
		if gs, ok := svc.(*gameserver.Service); ok && gs.IsRunning(ctx) {
			continue
		}
		_ = o.registry.Unregister(svc.GetName())
		logging.Debug("Orchestrator", "Dropped service of removed profile %s", svc.GetName())
	}
}

// serviceFor returns the service of p, creating or reconfiguring it when needed.
func (o *Orchestrator) serviceFor(ctx context.Context, p *fleet.Profile) (*gameserver.Service, error) {
	cfg, err := o.serviceConfig(p)
	if err != nil {
		return nil, err
	}

	if existing, ok := o.registry.Get(p.ID); ok {
		gs := existing.(*gameserver.Service)
		if reflect.DeepEqual(gs.Config(), cfg) || gs.IsRunning(ctx) {
			return gs, nil
		}
		_ = o.registry.Unregister(p.ID)
	}

	gs := gameserver.New(cfg)
	if _, err := gs.Attach(ctx); err != nil {
		logging.Warn("Orchestrator", "Ignoring pid file of %s: %v", p.ID, err)
	}
	gs.SetStateChangeCallback(o.publishStateChangeEvent)
	if err := o.registry.Register(gs); err != nil {
		// Lost a race with a concurrent caller; use theirs.
		if existing, ok := o.registry.Get(p.ID); ok {
			return existing.(*gameserver.Service), nil
		}
		return nil, err
	}
	return gs, nil
}

func (o *Orchestrator) serviceConfig(p *fleet.Profile) (gameserver.Config, error) {
	data := o.templateData(p)
	args, err := o.cfg.Templates.RenderAll(p.Arguments, data)
	if err != nil {
		return gameserver.Config{}, fmt.Errorf("arguments: %w", err)
	}

	env := make([]string, 0, len(p.Environment))
	for k, v := range p.Environment {
		rendered, err := o.cfg.Templates.Render(v, data)
		if err != nil {
			return gameserver.Config{}, fmt.Errorf("environment %s: %w", k, err)
		}
		env = append(env, k+"="+rendered)
	}
	sort.Strings(env)

	return gameserver.Config{
		ProfileID:   p.ID,
		Executable:  resolveExecutable(p),
		Args:        args,
		Dir:         p.InstallDirectory,
		Env:         env,
		StopTimeout: p.EffectiveStopTimeout(),
		PIDFile:     filepath.Join(o.cfg.RunDir, "servers", strings.ToLower(p.ID)+".pid"),
		OutputPath:  filepath.Join(logging.ProfileLogFolder(o.cfg.LogsDir, p.ID), "server.log"),
	}, nil
}

func (o *Orchestrator) templateData(p *fleet.Profile) map[string]interface{} {
	return template.ProfileContext(p.ID, p.DisplayName(), p.InstallDirectory, o.cfg.PublicIP())
}

// resolveExecutable prefers a file in the install directory over a PATH lookup.
func resolveExecutable(p *fleet.Profile) string {
	if filepath.IsAbs(p.Executable) || p.InstallDirectory == "" {
		return p.Executable
	}
	candidate := filepath.Join(p.InstallDirectory, p.Executable)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return p.Executable
}

// lockProfile serializes actions on one profile within and across processes.
func (o *Orchestrator) lockProfile(profileID string, action lifecycle.ActionKind) (func(), error) {
	key := fleet.NormalizeID(profileID)

	o.mu.Lock()
	m, ok := o.locks[key]
	if !ok {
		m = &sync.Mutex{}
		o.locks[key] = m
	}
	o.mu.Unlock()

	if !m.TryLock() {
		return nil, lifecycle.NewExitError(lifecycle.ExitProfileBusy,
			fmt.Errorf("%s is busy with another action", profileID))
	}

	release, err := acquireLockFile(filepath.Join(o.cfg.RunDir, "locks"), profileID, action.String())
	if err != nil {
		m.Unlock()
		return nil, lifecycle.NewExitError(lifecycle.ExitProfileBusy,
			fmt.Errorf("%s is busy: %w", profileID, err))
	}
	return func() {
		release()
		m.Unlock()
	}, nil
}

// profile looks up a profile, mapping a miss to ExitProfileNotFound.
func (o *Orchestrator) profile(profileID string) (*fleet.Profile, error) {
	p, err := o.cfg.Fleet.Get(profileID)
	if err != nil {
		return nil, lifecycle.NewExitError(lifecycle.ExitProfileNotFound, err)
	}
	return p, nil
}

// actionLog returns the profile's action logger, or a discarding logger.
func (o *Orchestrator) actionLog(profileID string) *slog.Logger {
	if o.cfg.LogsDir != "" {
		if l, err := logging.ProfileLogger(o.cfg.LogsDir, profileID, "actions"); err == nil {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// output collects the lines of one action and mirrors them to the action log.
type output struct {
	log   *slog.Logger
	lines []string
}

func (o *output) add(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	o.lines = append(o.lines, line)
	o.log.Info(line)
}

// ServiceStatus represents the status of a game server.
type ServiceStatus struct {
	Name   string
	State  string
	Health string
	Error  error
	Data   map[string]interface{}
}

// GetAllServices returns the status of every profile's service, sorted by name.
func (o *Orchestrator) GetAllServices() []ServiceStatus {
	all := o.registry.GetAll()
	statuses := make([]ServiceStatus, 0, len(all))
	for _, service := range all {
		status := ServiceStatus{
			Name:   service.GetName(),
			State:  string(service.GetState()),
			Health: string(service.GetHealth()),
			Error:  service.GetLastError(),
		}
		if provider, ok := service.(services.ServiceDataProvider); ok {
			status.Data = provider.GetServiceData()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// CheckHealth refreshes the health of every service.
func (o *Orchestrator) CheckHealth(ctx context.Context) {
	for _, service := range o.registry.GetAll() {
		if checker, ok := service.(services.HealthChecker); ok {
			if _, err := checker.CheckHealth(ctx); err != nil {
				logging.Warn("Orchestrator", "Health check of %s: %v", service.GetName(), err)
			}
		}
	}
}

// ServiceStateChangedEvent represents a service state change event.
type ServiceStateChangedEvent struct {
	Name      string
	OldState  string
	NewState  string
	Health    string
	Error     error
	Timestamp int64
}

// SubscribeToStateChanges returns a channel for state change events.
func (o *Orchestrator) SubscribeToStateChanges() <-chan ServiceStateChangedEvent {
	eventChan := make(chan ServiceStateChangedEvent, 100)
	o.mu.Lock()
	o.stateChangeSubscribers = append(o.stateChangeSubscribers, eventChan)
	o.mu.Unlock()
	return eventChan
}

// publishStateChangeEvent publishes a state change event to all subscribers
func (o *Orchestrator) publishStateChangeEvent(name string, oldState, newState services.ServiceState, health services.HealthStatus, err error) {
	logging.Debug("Orchestrator", "Service %s state changed: %s -> %s (health: %s)", name, oldState, newState, health)

	event := ServiceStateChangedEvent{
		Name:      name,
		OldState:  string(oldState),
		NewState:  string(newState),
		Health:    string(health),
		Error:     err,
		Timestamp: time.Now().Unix(),
	}

	o.mu.RLock()
	subscribers := make([]chan<- ServiceStateChangedEvent, len(o.stateChangeSubscribers))
	copy(subscribers, o.stateChangeSubscribers)
	o.mu.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// Don't block if subscriber can't receive immediately
			logging.Debug("Orchestrator", "Subscriber blocked, skipping event for service %s", name)
		}
	}
}
