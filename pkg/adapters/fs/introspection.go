package fs

import (
	"time"

	"github.com/aretw0/introspection"

	"github.com/geonotes98/geonotes/pkg/core"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string            `json:"path"`
	Head          string            `json:"head"`
	Generations   []string          `json:"generations"`
	ReadOnly      bool              `json:"read_only"`
	Files         map[string]string `json:"files"`
	Notes         int               `json:"notes"`
	Stickers      int               `json:"stickers"`
	Settings      int               `json:"settings"`
	WatcherActive bool              `json:"watcher_active"`
	Subscriptions int               `json:"subscriptions"`
	LastReload    *time.Time        `json:"last_reload,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	snap := s.Snapshot()
	files := make(map[string]string, len(s.files))
	for _, f := range s.files {
		files[string(f.collection)] = f.name()
	}
	generations := s.generations()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreState{
		Path:          s.Path,
		Head:          s.head,
		Generations:   generations,
		ReadOnly:      s.config.ReadOnly,
		Files:         files,
		Notes:         snap.Len(core.CollectionNotes),
		Stickers:      snap.Len(core.CollectionStickers),
		Settings:      snap.Len(core.CollectionSettings),
		WatcherActive: s.watcherActive,
		Subscriptions: s.subscriptions,
		LastReload:    s.lastReload,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "fs-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
var _ core.Store = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}
