package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"servermanager/internal/bridge"
	"servermanager/pkg/logging"
)

// Config holds everything a Host needs to run a session.
type Config struct {
	Token  string
	Prefix string

	Dispatcher bridge.LifecycleDispatcher
	Translate  func(key string) (string, bool)
	NewClient  ClientFactory

	// ReplyInterval paces reply lines. Zero means DefaultReplyInterval.
	ReplyInterval time.Duration
}

// Host owns the remote command session.
type Host struct {
	cfg Config

	mu      sync.Mutex
	state   State
	session *session
	changed func(old, new State)
}

// NewHost creates a Host in StateNotStarted.
func NewHost(cfg Config) *Host {
	return &Host{cfg: cfg, state: StateNotStarted}
}

// State returns the current state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// OnStateChange registers a callback invoked on every transition.
func (h *Host) OnStateChange(cb func(old, new State)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changed = cb
}

func (h *Host) setState(s State) {
	h.mu.Lock()
	old := h.state
	h.state = s
	cb := h.changed
	h.mu.Unlock()

	logging.Debug("Bot", "Session host %s -> %s", old, s)
	if cb != nil && old != s {
		cb(old, s)
	}
}

// configured reports whether every required setting is present.
func (c Config) configured() bool {
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.Prefix) != "" &&
		c.Dispatcher != nil && c.Translate != nil && c.NewClient != nil
}

// Start runs a session until ctx is cancelled. It returns nil when the host is
// not configured, when a session is already active, and after an orderly stop.
// A malformed prefix yields a *ConfigError.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	if !h.state.startable() {
		h.mu.Unlock()
		logging.Debug("Bot", "Session host already started")
		return nil
	}
	old := h.state
	h.state = StateValidating
	cb := h.changed
	h.mu.Unlock()
	if cb != nil {
		cb(old, StateValidating)
	}

	if !h.cfg.configured() {
		logging.Info("Bot", "Chat bot is not configured")
		h.setState(StateRejected)
		return nil
	}

	prefix, err := NormalizePrefix(h.cfg.Prefix)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			logging.Warn("Bot", "Rejected configuration: %s", cfgErr.describe())
		}
		h.setState(StateRejected)
		return err
	}

	client, err := h.cfg.NewClient(h.cfg.Token)
	if err != nil {
		h.setState(StateRejected)
		return fmt.Errorf("failed to connect chat client: %w", err)
	}
	if err := client.Open(ctx); err != nil {
		_ = client.Close()
		h.setState(StateRejected)
		return fmt.Errorf("failed to connect chat client: %w", err)
	}

	s := newSession(ctx, client, prefix, h.cfg.Dispatcher, h.cfg.Translate, h.cfg.ReplyInterval)
	h.mu.Lock()
	h.session = s
	h.mu.Unlock()
	h.setState(StateConnected)

	if err := s.onStartup(ctx); err != nil {
		h.stop(s)
		return err
	}
	h.setState(StateRunning)

	<-ctx.Done()

	h.stop(s)
	return nil
}

func (h *Host) stop(s *session) {
	h.setState(StateStopping)
	_ = s.teardown()

	h.mu.Lock()
	h.session = nil
	h.mu.Unlock()
	h.setState(StateStopped)
}
