// Package memory implements core.Store in process memory.
//
// Besides serving tests and ephemeral desks, the Store is the transactional
// engine reused by durable adapters: they plug a PersistFunc that makes a
// committed snapshot durable before it is published to readers.
package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/geonotes98/geonotes/pkg/core"
)

// PersistFunc makes next durable. changed lists the collections the commit wrote.
// Returning an error aborts the commit; readers keep seeing the previous snapshot.
type PersistFunc func(ctx context.Context, next *State, changed []core.Collection) error

// Config holds the configuration for the in-memory store.
type Config struct {
	Logger      *slog.Logger
	ReadOnly    bool
	EventBuffer int // per-subscriber channel size, zero means 100
	Persist     PersistFunc
}

type subscriber struct {
	pattern string
	ch      chan core.Event
}

// Store implements core.Store and core.Watchable.
type Store struct {
	config Config
	logger *slog.Logger

	writeMu sync.Mutex // serializes transactions

	mu          sync.RWMutex // guards state, subscribers, commits
	state       *State
	subscribers map[int]*subscriber
	nextSub     int
	commits     int
}

// New creates an empty store.
func New(config Config) *Store {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 100
	}
	return &Store{
		config:      config,
		logger:      logger,
		state:       NewState(),
		subscribers: make(map[int]*subscriber),
	}
}

// Initialize implements core.Store. The memory store needs no setup.
func (s *Store) Initialize(ctx context.Context) error {
	return nil
}

// Snapshot returns the currently published state.
func (s *Store) Snapshot() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Load replaces the published state without persisting it, and notifies
// watchers with one reload event per collection.
func (s *Store) Load(next *State) {
	_ = s.Reload(func(*State) (*State, bool, error) {
		return next, true, nil
	})
}

// Reload runs fn under the writer lock, so no commit interleaves, and
// publishes the returned state when fn reports a change. Adapters use it to
// adopt their durable form after it was modified from outside the process.
func (s *Store) Reload(fn func(current *State) (next *State, changed bool, err error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, changed, err := fn(s.Snapshot())
	if err != nil || !changed {
		return err
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	now := core.Millis(time.Now())
	events := make([]core.Event, 0, len(core.Collections))
	for _, c := range core.Collections {
		events = append(events, core.Event{Type: core.EventReload, Collection: c, Timestamp: now})
	}
	s.publish(events)
	return nil
}

// Get implements core.Reader.
func (s *Store) Get(ctx context.Context, c core.Collection, key string) (core.Record, error) {
	if !c.Valid() {
		return core.Record{}, fmt.Errorf("%w: %q", core.ErrUnknownCollection, c)
	}
	rec, ok := s.Snapshot().Get(c, key)
	if !ok {
		return core.Record{}, fmt.Errorf("%w: %s/%s", core.ErrNotFound, c, key)
	}
	return rec, nil
}

// ToArray implements core.Reader.
func (s *Store) ToArray(ctx context.Context, c core.Collection) ([]core.Record, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownCollection, c)
	}
	return s.Snapshot().Records(c), nil
}

// Put implements core.Writer as a single-collection transaction.
func (s *Store) Put(ctx context.Context, c core.Collection, rec core.Record) error {
	return s.Transaction(ctx, []core.Collection{c}, func(tx core.Tx) error {
		return tx.Put(ctx, c, rec)
	})
}

// BulkAdd implements core.Writer as a single-collection transaction.
func (s *Store) BulkAdd(ctx context.Context, c core.Collection, recs []core.Record) error {
	return s.Transaction(ctx, []core.Collection{c}, func(tx core.Tx) error {
		return tx.BulkAdd(ctx, c, recs)
	})
}

// Delete implements core.Writer as a single-collection transaction.
func (s *Store) Delete(ctx context.Context, c core.Collection, key string) error {
	return s.Transaction(ctx, []core.Collection{c}, func(tx core.Tx) error {
		return tx.Delete(ctx, c, key)
	})
}

// Clear implements core.Writer as a single-collection transaction.
func (s *Store) Clear(ctx context.Context, c core.Collection) error {
	return s.Transaction(ctx, []core.Collection{c}, func(tx core.Tx) error {
		return tx.Clear(ctx, c)
	})
}

// Transaction implements core.Store.
// fn must only use tx; calling the Store's own writers from fn deadlocks.
func (s *Store) Transaction(ctx context.Context, scope []core.Collection, fn func(tx core.Tx) error) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := NewTransaction(s.Snapshot(), scope)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		s.logger.Debug("transaction rolled back", "scope", scope, "error", err)
		return err
	}

	changed := tx.Changed()
	next, events, err := tx.Result()
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	// The commit runs to completion once started, even if ctx is cancelled.
	if s.config.Persist != nil {
		if err := s.config.Persist(context.WithoutCancel(ctx), next, changed); err != nil {
			s.logger.Warn("commit aborted: persist failed", "scope", scope, "error", err)
			return err
		}
	}

	s.mu.Lock()
	s.state = next
	s.commits++
	s.mu.Unlock()

	s.logger.Debug("transaction committed", "changed", changed, "events", len(events))
	s.publish(events)
	return nil
}

// Watch implements core.Watchable. pattern is a doublestar glob matched
// against collection names ("notes", "{notes,stickers}", "*").
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern: %q", pattern)
	}

	sub := &subscriber{pattern: pattern, ch: make(chan core.Event, s.config.EventBuffer)}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = sub
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers, id)
		close(sub.ch)
		s.mu.Unlock()
	}()

	return sub.ch, nil
}

func (s *Store) publish(events []core.Event) {
	if len(events) == 0 {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscribers {
		for _, e := range events {
			if sub.pattern != "" {
				ok, err := doublestar.Match(sub.pattern, string(e.Collection))
				if err != nil || !ok {
					continue
				}
			}
			select {
			case sub.ch <- e:
			default:
				s.logger.Warn("event dropped: subscriber buffer full", "event", e.String())
			}
		}
	}
}
