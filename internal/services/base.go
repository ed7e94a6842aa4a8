package services

import (
	"sync"
	"time"
)

// BaseService holds the state every game server service shares: its
// lifecycle state, health, the last failure and how often it failed.
// Concrete services embed it and report transitions through UpdateState.
type BaseService struct {
	mu          sync.RWMutex
	name        string
	serviceType ServiceType

	state        ServiceState
	health       HealthStatus
	lastError    error
	runningSince time.Time
	failures     int

	onChange StateChangeCallback
	now      func() time.Time
}

// NewBaseService creates a base service for the given profile id.
func NewBaseService(name string, serviceType ServiceType) *BaseService {
	return &BaseService{
		name:        name,
		serviceType: serviceType,
		state:       StateUnknown,
		health:      HealthUnknown,
		now:         time.Now,
	}
}

func (b *BaseService) GetName() string      { return b.name }
func (b *BaseService) GetType() ServiceType { return b.serviceType }

func (b *BaseService) GetState() ServiceState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *BaseService) GetHealth() HealthStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.health
}

func (b *BaseService) GetLastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastError
}

// RunningSince returns when the service last entered StateRunning, or the
// zero time when it is not running.
func (b *BaseService) RunningSince() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.runningSince
}

// Failures counts transitions into StateFailed since creation.
func (b *BaseService) Failures() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.failures
}

func (b *BaseService) SetStateChangeCallback(callback StateChangeCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = callback
}

// UpdateState records a transition. The callback fires only when the state
// actually changes and is called without holding the lock.
func (b *BaseService) UpdateState(newState ServiceState, health HealthStatus, err error) {
	b.mu.Lock()
	oldState := b.state
	b.state = newState
	b.health = health
	b.lastError = err
	if newState != oldState {
		switch {
		case newState == StateRunning:
			b.runningSince = b.now()
		case oldState == StateRunning:
			b.runningSince = time.Time{}
		}
		if newState == StateFailed {
			b.failures++
		}
	}
	callback := b.onChange
	b.mu.Unlock()

	if callback != nil && oldState != newState {
		callback(b.name, oldState, newState, health, err)
	}
}

// UpdateHealth changes only the health; a change is reported with the
// unchanged state on both sides.
func (b *BaseService) UpdateHealth(health HealthStatus) {
	b.mu.Lock()
	if b.health == health {
		b.mu.Unlock()
		return
	}
	b.health = health
	state, err, callback := b.state, b.lastError, b.onChange
	b.mu.Unlock()

	if callback != nil {
		callback(b.name, state, state, health, err)
	}
}

// IsActive reports whether the service has a live process or is about to.
func (b *BaseService) IsActive() bool {
	switch b.GetState() {
	case StateStarting, StateRunning, StateStopping:
		return true
	default:
		return false
	}
}
