package services

import (
	"context"
)

// ServiceState is the runtime state of a service.
type ServiceState string

const (
	StateUnknown  ServiceState = "Unknown"
	StateStarting ServiceState = "Starting"
	StateRunning  ServiceState = "Running"
	StateStopping ServiceState = "Stopping"
	StateStopped  ServiceState = "Stopped"
	StateUpdating ServiceState = "Updating"
	StateFailed   ServiceState = "Failed"
)

// HealthStatus is the last observed health of a service.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "Unknown"
	HealthHealthy   HealthStatus = "Healthy"
	HealthUnhealthy HealthStatus = "Unhealthy"
)

// ServiceType represents the type of service
type ServiceType string

const (
	TypeGameServer ServiceType = "GameServer"
)

// Service is the core interface that all services must implement
type Service interface {
	// Lifecycle management
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error

	// State management
	GetState() ServiceState
	GetHealth() HealthStatus
	GetLastError() error

	// Service metadata
	GetName() string
	GetType() ServiceType

	// State change notifications
	// The service should call this callback when its state changes
	SetStateChangeCallback(callback StateChangeCallback)
}

// StateChangeCallback is called when a service's state changes
type StateChangeCallback func(name string, oldState, newState ServiceState, health HealthStatus, err error)

// StateUpdater is an optional interface for services that allow external state updates.
// The orchestrator uses it to flag a service as updating while its update command runs.
type StateUpdater interface {
	UpdateState(state ServiceState, health HealthStatus, err error)
}

// ServiceDataProvider is an optional interface for services that expose additional data
type ServiceDataProvider interface {
	// GetServiceData returns service-specific data for status views
	GetServiceData() map[string]interface{}
}

// HealthChecker is an optional interface for services that support health checking
type HealthChecker interface {
	// CheckHealth performs a health check and returns the current health status
	CheckHealth(ctx context.Context) (HealthStatus, error)
}

// ServiceRegistry manages all registered services
type ServiceRegistry interface {
	// Register adds a service to the registry
	Register(service Service) error

	// Unregister removes a service from the registry
	Unregister(name string) error

	// Get returns a service by name
	Get(name string) (Service, bool)

	// GetAll returns all registered services sorted by name
	GetAll() []Service

	// GetByType returns all services of a specific type
	GetByType(serviceType ServiceType) []Service
}
