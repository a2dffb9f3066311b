// Package fs implements a durable core.Store on the local filesystem.
//
// Layout of a desk directory:
//
//	HEAD                         name of the current snapshot generation
//	snapshots/gen-000042/        one complete generation
//	    notes.json
//	    stickers.json
//	    settings.yaml
//	.geonotes.lock               cross-process writer lock (transient)
//
// A commit writes a whole new generation next to the current one and then
// swaps HEAD with an atomic rename. A crash before the swap leaves the old
// generation in charge, so a commit is either fully visible or not at all.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/geonotes98/geonotes/internal/atomicfile"
	"github.com/geonotes98/geonotes/pkg/adapters/memory"
	"github.com/geonotes98/geonotes/pkg/core"
)

const (
	headFile        = "HEAD"
	snapshotsDir    = "snapshots"
	generationStart = "gen-"
	lockName        = ".geonotes.lock"
)

// ErrStaleHead is returned by a commit when another process moved HEAD since
// this store last loaded it. The watcher (or a reopen) picks up the new state.
var ErrStaleHead = errors.New("store was modified by another process")

// Config holds the configuration for the filesystem store.
type Config struct {
	Path        string
	AutoInit    bool // create the directory and an empty generation if missing
	MustExist   bool
	ReadOnly    bool
	Logger      *slog.Logger
	LockTimeout time.Duration // zero means 5s
	EventBuffer int
	// ErrorHandler receives runtime watcher failures, which are otherwise only logged.
	ErrorHandler func(error)
	Serializers  map[core.Collection]Serializer
}

// Store implements core.Store backed by snapshot generations on disk.
// Reads are served from the in-memory copy of the current generation.
type Store struct {
	*memory.Store

	Path   string
	config Config
	logger *slog.Logger
	files  []collectionFile

	mu            sync.RWMutex
	head          string
	watcherActive bool
	subscriptions int
	stopWatcher   func()
	lastReload    *time.Time
}

// NewStore creates a new filesystem-backed store. Call Initialize before use.
func NewStore(config Config) *Store {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = 5 * time.Second
	}

	serializers := DefaultSerializers()
	for c, s := range config.Serializers {
		serializers[c] = s
	}

	s := &Store{
		Path:   config.Path,
		config: config,
		logger: logger,
	}
	for _, c := range core.Collections {
		s.files = append(s.files, collectionFile{
			collection: c,
			keyField:   keyFields[c],
			serializer: serializers[c],
		})
	}

	s.Store = memory.New(memory.Config{
		Logger:      logger,
		ReadOnly:    config.ReadOnly,
		EventBuffer: config.EventBuffer,
		Persist:     s.persist,
	})
	return s
}

// Initialize prepares the directory and loads the current generation.
func (s *Store) Initialize(ctx context.Context) error {
	info, err := os.Stat(s.Path)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("desk path is not a directory: %s", s.Path)
	case os.IsNotExist(err):
		if s.config.MustExist || s.config.ReadOnly {
			return fmt.Errorf("desk path does not exist: %s", s.Path)
		}
		if err := os.MkdirAll(s.Path, 0755); err != nil {
			return fmt.Errorf("failed to create desk directory: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to stat desk directory: %w", err)
	}

	head, err := s.readHead()
	if err != nil {
		return err
	}

	if head == "" {
		if s.config.AutoInit && !s.config.ReadOnly {
			if err := s.persist(ctx, memory.NewState(), core.Collections); err != nil {
				return fmt.Errorf("failed to initialize desk: %w", err)
			}
		}
		s.logger.Debug("opened empty desk", "path", s.Path)
		return nil
	}

	if !s.config.ReadOnly {
		unlock, err := lockFile(filepath.Join(s.Path, lockName), s.config.LockTimeout)
		if err != nil {
			return err
		}
		defer unlock()
		// HEAD may have moved while we waited.
		if head, err = s.readHead(); err != nil {
			return err
		}
	}

	state, err := s.loadGeneration(head)
	if err != nil {
		return err
	}
	s.setHead(head)
	s.Store.Load(state)

	if !s.config.ReadOnly {
		s.pruneGenerations(head)
	}
	s.logger.Debug("opened desk", "path", s.Path, "head", head)
	return nil
}

// Head returns the generation currently loaded.
func (s *Store) Head() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

func (s *Store) setHead(head string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = head
}

func (s *Store) readHead() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Path, headFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	head := strings.TrimSpace(string(data))
	if !strings.HasPrefix(head, generationStart) {
		return "", fmt.Errorf("corrupt HEAD: %q", head)
	}
	return head, nil
}

func (s *Store) generationPath(gen string) string {
	return filepath.Join(s.Path, snapshotsDir, gen)
}

// loadGeneration parses every collection file of a generation.
// A missing file means an empty collection; a missing generation is an error.
func (s *Store) loadGeneration(gen string) (*memory.State, error) {
	if _, err := os.Stat(s.generationPath(gen)); err != nil {
		return nil, fmt.Errorf("failed to open generation %s: %w", gen, err)
	}

	data := make(map[core.Collection][]core.Record, len(s.files))
	for _, f := range s.files {
		path := filepath.Join(s.generationPath(gen), f.name())
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		items, err := f.serializer.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		recs := make([]core.Record, 0, len(items))
		for i, item := range items {
			key, ok := item[f.keyField].(string)
			if !ok || key == "" {
				return nil, fmt.Errorf("failed to parse %s: item %d has no %q", path, i, f.keyField)
			}
			recs = append(recs, core.Record{Key: key, Data: item})
		}
		data[f.collection] = recs
	}
	return memory.StateFrom(data), nil
}

// persist writes next as a new generation and swaps HEAD to it.
// It runs under the memory store's writer lock.
func (s *Store) persist(ctx context.Context, next *memory.State, changed []core.Collection) error {
	unlock, err := lockFile(filepath.Join(s.Path, lockName), s.config.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	prev := s.Head()
	onDisk, err := s.readHead()
	if err != nil {
		return err
	}
	if onDisk != prev {
		return fmt.Errorf("%w: HEAD is %q, loaded %q", ErrStaleHead, onDisk, prev)
	}

	gen := nextGeneration(prev)
	genPath := s.generationPath(gen)
	if err := os.MkdirAll(genPath, 0755); err != nil {
		return fmt.Errorf("failed to create generation %s: %w", gen, err)
	}

	if err := s.writeGeneration(genPath, prev, next, changed); err != nil {
		_ = os.RemoveAll(genPath)
		return err
	}

	if err := atomicfile.WriteFile(filepath.Join(s.Path, headFile), []byte(gen+"\n"), 0644); err != nil {
		_ = os.RemoveAll(genPath)
		return fmt.Errorf("failed to swap HEAD: %w", err)
	}
	s.setHead(gen)

	if prev != "" {
		if err := os.RemoveAll(s.generationPath(prev)); err != nil {
			s.logger.Warn("failed to remove old generation", "gen", prev, "error", err)
		}
	}
	s.logger.Debug("generation committed", "gen", gen, "changed", changed)
	return nil
}

func (s *Store) writeGeneration(genPath, prev string, next *memory.State, changed []core.Collection) error {
	dirty := make(map[core.Collection]bool, len(changed))
	for _, c := range changed {
		dirty[c] = true
	}

	for _, f := range s.files {
		target := filepath.Join(genPath, f.name())

		// Untouched collections are hard-linked from the previous generation.
		if !dirty[f.collection] && prev != "" {
			source := filepath.Join(s.generationPath(prev), f.name())
			if err := os.Link(source, target); err == nil {
				continue
			}
		}

		recs := next.Records(f.collection)
		items := make([]core.Metadata, 0, len(recs))
		for _, rec := range recs {
			items = append(items, rec.Data)
		}
		data, err := f.serializer.Serialize(items)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", f.collection, err)
		}
		if err := atomicfile.WriteFile(target, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.collection, err)
		}
	}
	return nil
}

// pruneGenerations removes leftovers of interrupted commits.
func (s *Store) pruneGenerations(keep string) {
	entries, err := os.ReadDir(filepath.Join(s.Path, snapshotsDir))
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == keep || !strings.HasPrefix(e.Name(), generationStart) {
			continue
		}
		if err := os.RemoveAll(s.generationPath(e.Name())); err != nil {
			s.logger.Warn("failed to prune generation", "gen", e.Name(), "error", err)
		}
	}
}

// generations lists the generation directories present on disk.
func (s *Store) generations() []string {
	entries, err := os.ReadDir(filepath.Join(s.Path, snapshotsDir))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), generationStart) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

// reload adopts the generation named by HEAD if it differs from the loaded one.
// Writable stores hold the desk lock while reading, so the generation cannot
// be replaced and removed halfway through.
func (s *Store) reload() error {
	return s.Store.Reload(func(*memory.State) (*memory.State, bool, error) {
		if !s.config.ReadOnly {
			unlock, err := lockFile(filepath.Join(s.Path, lockName), s.config.LockTimeout)
			if err != nil {
				return nil, false, err
			}
			defer unlock()
		}

		head, err := s.readHead()
		if err != nil {
			return nil, false, err
		}
		if head == "" || head == s.Head() {
			return nil, false, nil
		}

		state, err := s.loadGeneration(head)
		if err != nil {
			return nil, false, err
		}
		s.setHead(head)

		now := time.Now()
		s.mu.Lock()
		s.lastReload = &now
		s.mu.Unlock()

		s.logger.Debug("reloaded desk from disk", "head", head)
		return state, true, nil
	})
}

func nextGeneration(prev string) string {
	n := 0
	if prev != "" {
		n, _ = strconv.Atoi(strings.TrimPrefix(prev, generationStart))
	}
	return fmt.Sprintf("%s%06d", generationStart, n+1)
}

// Transaction implements core.Store. When another process committed since
// the last load, the store reloads and runs fn once more against fresh state.
func (s *Store) Transaction(ctx context.Context, scope []core.Collection, fn func(tx core.Tx) error) error {
	err := s.Store.Transaction(ctx, scope, fn)
	if !errors.Is(err, ErrStaleHead) {
		return err
	}
	s.logger.Info("desk changed on disk, retrying commit", "scope", scope)
	if err := s.reload(); err != nil {
		return err
	}
	return s.Store.Transaction(ctx, scope, fn)
}

// Put implements core.Writer.
func (s *Store) Put(ctx context.Context, c core.Collection, rec core.Record) error {
	return s.Transaction(ctx, []core.Collection{c}, func(tx core.Tx) error {
		return tx.Put(ctx, c, rec)
	})
}

// BulkAdd implements core.Writer.
func (s *Store) BulkAdd(ctx context.Context, c core.Collection, recs []core.Record) error {
	return s.Transaction(ctx, []core.Collection{c}, func(tx core.Tx) error {
		return tx.BulkAdd(ctx, c, recs)
	})
}

// Delete implements core.Writer.
func (s *Store) Delete(ctx context.Context, c core.Collection, key string) error {
	return s.Transaction(ctx, []core.Collection{c}, func(tx core.Tx) error {
		return tx.Delete(ctx, c, key)
	})
}

// Clear implements core.Writer.
func (s *Store) Clear(ctx context.Context, c core.Collection) error {
	return s.Transaction(ctx, []core.Collection{c}, func(tx core.Tx) error {
		return tx.Clear(ctx, c)
	})
}
