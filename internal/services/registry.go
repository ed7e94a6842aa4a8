package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrServiceNotFound is returned when no service is registered under a name.
type ErrServiceNotFound struct {
	Name string
}

func (e *ErrServiceNotFound) Error() string {
	return fmt.Sprintf("service %s not found", e.Name)
}

// registry is a simple implementation of ServiceRegistry
type registry struct {
	mu       sync.RWMutex
	services map[string]Service
}

// NewRegistry creates a new service registry
func NewRegistry() ServiceRegistry {
	return &registry{
		services: make(map[string]Service),
	}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a service to the registry
func (r *registry) Register(service Service) error {
	if service == nil {
		return fmt.Errorf("cannot register nil service")
	}

	name := service.GetName()
	if name == "" {
		return fmt.Errorf("service has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[key(name)]; exists {
		return fmt.Errorf("service %s already registered", name)
	}

	r.services[key(name)] = service
	return nil
}

// Unregister removes a service from the registry
func (r *registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[key(name)]; !exists {
		return &ErrServiceNotFound{Name: name}
	}

	delete(r.services, key(name))
	return nil
}

// Get returns a service by name
func (r *registry) Get(name string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	service, exists := r.services[key(name)]
	return service, exists
}

// GetAll returns all registered services
func (r *registry) GetAll() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]Service, 0, len(r.services))
	for _, service := range r.services {
		services = append(services, service)
	}
	sort.Slice(services, func(i, j int) bool {
		return key(services[i].GetName()) < key(services[j].GetName())
	})
	return services
}

// GetByType returns all services of a specific type
func (r *registry) GetByType(serviceType ServiceType) []Service {
	var services []Service
	for _, service := range r.GetAll() {
		if service.GetType() == serviceType {
			services = append(services, service)
		}
	}
	return services
}
