package gameserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"servermanager/internal/services"
	"servermanager/pkg/logging"
)

// ErrAlreadyRunning is returned by Start when the server process is alive.
var ErrAlreadyRunning = errors.New("server is already running")

// pollInterval is how often an attached process is checked while stopping.
const pollInterval = 250 * time.Millisecond

// Config describes how to run one server process.
type Config struct {
	ProfileID  string
	Executable string
	Args       []string
	Dir        string
	Env        []string

	// StopTimeout bounds the graceful stop before the process is killed.
	StopTimeout time.Duration

	// PIDFile records the running process. Empty disables attaching.
	PIDFile string

	// OutputPath receives the process output. Empty discards it.
	OutputPath string
}

// Service runs a game server process.
type Service struct {
	*services.BaseService
	cfg Config

	mu     sync.Mutex
	pid    int
	exited chan struct{} // closed when a process started by this Service exits
}

var _ services.Service = (*Service)(nil)

// New creates a stopped Service.
func New(cfg Config) *Service {
	s := &Service{
		BaseService: services.NewBaseService(cfg.ProfileID, services.TypeGameServer),
		cfg:         cfg,
	}
	s.UpdateState(services.StateStopped, services.HealthUnknown, nil)
	return s
}

// Config returns the configuration the service was created with.
func (s *Service) Config() Config {
	return s.cfg
}

// PID returns the pid of the tracked process, or 0.
func (s *Service) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Attach adopts a process recorded in the pid file by an earlier run. It
// reports whether a live process was found.
func (s *Service) Attach(ctx context.Context) (bool, error) {
	pid, err := readPIDFile(s.cfg.PIDFile)
	if err != nil {
		removePIDFile(s.cfg.PIDFile)
		return false, err
	}
	if pid == 0 {
		return false, nil
	}
	if !s.matches(ctx, pid) {
		logging.Debug("GameServer", "Stale pid file for %s (pid %d)", s.cfg.ProfileID, pid)
		removePIDFile(s.cfg.PIDFile)
		return false, nil
	}

	s.mu.Lock()
	s.pid = pid
	s.exited = nil
	s.mu.Unlock()
	s.UpdateState(services.StateRunning, services.HealthHealthy, nil)
	logging.Info("GameServer", "Attached to %s (pid %d)", s.cfg.ProfileID, pid)
	return true, nil
}

// matches reports whether pid is alive and runs the configured executable.
func (s *Service) matches(ctx context.Context, pid int) bool {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	if running, err := p.IsRunningWithContext(ctx); err != nil || !running {
		return false
	}
	want := strings.TrimSuffix(filepath.Base(s.cfg.Executable), filepath.Ext(s.cfg.Executable))
	if exe, err := p.ExeWithContext(ctx); err == nil && exe != "" {
		got := strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
		if strings.EqualFold(got, want) {
			return true
		}
	}
	// Scripts show up under their interpreter; fall back to the command line.
	if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
		return strings.Contains(strings.ToLower(cmdline), strings.ToLower(filepath.Base(s.cfg.Executable)))
	}
	return false
}

// Start launches the server process.
func (s *Service) Start(ctx context.Context) error {
	if s.isAlive(ctx) {
		return ErrAlreadyRunning
	}

	s.UpdateState(services.StateStarting, services.HealthUnknown, nil)

	cmd := exec.Command(s.cfg.Executable, s.cfg.Args...)
	cmd.Dir = s.cfg.Dir
	cmd.Env = append(os.Environ(), s.cfg.Env...)
	configureProcAttr(cmd)

	var output *os.File
	if s.cfg.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(s.cfg.OutputPath), 0o755); err != nil {
			s.UpdateState(services.StateFailed, services.HealthUnhealthy, err)
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.OpenFile(s.cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			s.UpdateState(services.StateFailed, services.HealthUnhealthy, err)
			return fmt.Errorf("failed to open server output: %w", err)
		}
		output = f
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if output != nil {
			_ = output.Close()
		}
		s.UpdateState(services.StateFailed, services.HealthUnhealthy, err)
		return fmt.Errorf("failed to start %s: %w", s.cfg.Executable, err)
	}

	pid := cmd.Process.Pid
	exited := make(chan struct{})
	s.mu.Lock()
	s.pid = pid
	s.exited = exited
	s.mu.Unlock()

	if err := writePIDFile(s.cfg.PIDFile, pid); err != nil {
		logging.Warn("GameServer", "Failed to record pid of %s: %v", s.cfg.ProfileID, err)
	}

	s.UpdateState(services.StateRunning, services.HealthHealthy, nil)
	go s.wait(cmd, output, exited)

	logging.Info("GameServer", "Started %s (pid %d)", s.cfg.ProfileID, pid)
	return nil
}

// wait reaps a process started by this Service.
func (s *Service) wait(cmd *exec.Cmd, output *os.File, exited chan struct{}) {
	err := cmd.Wait()
	if output != nil {
		_ = output.Close()
	}

	s.mu.Lock()
	if s.exited == exited {
		s.pid = 0
	}
	s.mu.Unlock()
	removePIDFile(s.cfg.PIDFile)

	state := s.GetState()
	if state == services.StateStopping || err == nil {
		s.UpdateState(services.StateStopped, services.HealthUnknown, nil)
	} else {
		s.UpdateState(services.StateFailed, services.HealthUnhealthy, fmt.Errorf("server exited: %w", err))
	}
	logging.Info("GameServer", "Server %s exited", s.cfg.ProfileID)
	close(exited)
}

// Stop ends the server process, killing it once the stop timeout has passed.
// Stopping a server that is not running is not an error.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	pid, exited := s.pid, s.exited
	s.mu.Unlock()

	if pid == 0 || !s.isAlive(ctx) {
		s.UpdateState(services.StateStopped, services.HealthUnknown, nil)
		return nil
	}

	s.UpdateState(services.StateStopping, services.HealthUnknown, nil)
	if err := terminate(pid); err != nil {
		logging.Debug("GameServer", "Terminate %s (pid %d): %v", s.cfg.ProfileID, pid, err)
	}

	timeout := s.cfg.StopTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if s.waitExit(ctx, pid, exited, timeout) {
		s.finishStop(exited)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	logging.Warn("GameServer", "Server %s did not stop within %s, killing it", s.cfg.ProfileID, timeout)
	if err := kill(pid); err != nil {
		logging.Debug("GameServer", "Kill %s (pid %d): %v", s.cfg.ProfileID, pid, err)
	}
	if !s.waitExit(ctx, pid, exited, 5*time.Second) {
		err := fmt.Errorf("server %s (pid %d) could not be stopped", s.cfg.ProfileID, pid)
		s.UpdateState(services.StateFailed, services.HealthUnhealthy, err)
		return err
	}
	s.finishStop(exited)
	return nil
}

func (s *Service) finishStop(exited chan struct{}) {
	if exited != nil {
		// wait has already recorded the final state.
		return
	}
	s.mu.Lock()
	s.pid = 0
	s.mu.Unlock()
	removePIDFile(s.cfg.PIDFile)
	s.UpdateState(services.StateStopped, services.HealthUnknown, nil)
}

// waitExit reports whether the process ended within timeout.
func (s *Service) waitExit(ctx context.Context, pid int, exited chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if exited != nil {
		select {
		case <-exited:
			return true
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if !processAlive(ctx, pid) {
			return true
		}
		select {
		case <-ticker.C:
		case <-timer.C:
			return !processAlive(ctx, pid)
		case <-ctx.Done():
			return false
		}
	}
}

// Restart stops and starts the server.
func (s *Service) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		return err
	}
	return s.Start(ctx)
}

// IsRunning reports whether the server process is alive.
func (s *Service) IsRunning(ctx context.Context) bool {
	return s.isAlive(ctx)
}

func (s *Service) isAlive(ctx context.Context) bool {
	pid := s.PID()
	if pid == 0 {
		return false
	}
	return processAlive(ctx, pid)
}

func processAlive(ctx context.Context, pid int) bool {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	running, err := p.IsRunningWithContext(ctx)
	if err != nil || !running {
		return false
	}
	if status, err := p.StatusWithContext(ctx); err == nil {
		for _, st := range status {
			if st == process.Zombie {
				return false
			}
		}
	}
	return true
}

// CheckHealth implements services.HealthChecker.
func (s *Service) CheckHealth(ctx context.Context) (services.HealthStatus, error) {
	if s.isAlive(ctx) {
		s.UpdateHealth(services.HealthHealthy)
		return services.HealthHealthy, nil
	}
	if s.GetState() == services.StateRunning {
		err := fmt.Errorf("server %s is no longer running", s.cfg.ProfileID)
		s.mu.Lock()
		s.pid = 0
		s.mu.Unlock()
		removePIDFile(s.cfg.PIDFile)
		s.UpdateState(services.StateFailed, services.HealthUnhealthy, err)
		return services.HealthUnhealthy, err
	}
	return s.GetHealth(), nil
}

// GetServiceData implements services.ServiceDataProvider.
func (s *Service) GetServiceData() map[string]interface{} {
	data := map[string]interface{}{
		"executable": s.cfg.Executable,
		"failures":   s.Failures(),
	}
	pid := s.PID()
	if pid == 0 {
		return data
	}
	data["pid"] = pid

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return data
	}
	if cpu, err := p.CPUPercent(); err == nil {
		data["cpuPercent"] = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		data["memoryRSS"] = mem.RSS
	}
	if created, err := p.CreateTime(); err == nil {
		data["uptime"] = time.Since(time.UnixMilli(created)).Truncate(time.Second)
	}
	return data
}
