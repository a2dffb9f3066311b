package memory

import (
	"github.com/aretw0/introspection"

	"github.com/geonotes98/geonotes/pkg/core"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Notes       int  `json:"notes"`
	Stickers    int  `json:"stickers"`
	Settings    int  `json:"settings"`
	Commits     int  `json:"commits"`
	Subscribers int  `json:"subscribers"`
	ReadOnly    bool `json:"read_only"`
	Durable     bool `json:"durable"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreState{
		Notes:       s.state.Len(core.CollectionNotes),
		Stickers:    s.state.Len(core.CollectionStickers),
		Settings:    s.state.Len(core.CollectionSettings),
		Commits:     s.commits,
		Subscribers: len(s.subscribers),
		ReadOnly:    s.config.ReadOnly,
		Durable:     s.config.Persist != nil,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
