package core

import (
	"time"

	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	StoreType     string     `json:"store_type"`
	EchoSweeps    int        `json:"echo_sweeps"`
	EchoesCreated int        `json:"echoes_created"`
	LastSweep     *time.Time `json:"last_sweep,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	storeType := "unknown"
	if comp, ok := s.store.(introspection.Component); ok {
		storeType = comp.ComponentType()
	}

	return ServiceState{
		StoreType:     storeType,
		EchoSweeps:    s.sweeps,
		EchoesCreated: s.echoesCreated,
		LastSweep:     s.lastSweep,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "desk-service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
