package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/geonotes98/geonotes/pkg/core"
)

const reloadDelay = 50 * time.Millisecond

// watchWorker follows HEAD swaps made by other processes and reloads the
// store, which in turn publishes RELOAD events to watchers.
type watchWorker struct {
	*worker.BaseWorker
	store   *Store
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func newWatchWorker(store *Store) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		store:      store,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// HEAD is replaced by rename, so the directory is watched, not the file.
	if err := watcher.Add(w.store.Path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.store.Path, err)
	}

	w.watcher = watcher
	w.store.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.store.logger
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", panicErr, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", panicErr)
			}
			err = panicErr
		}
	}()
	defer w.store.setWatcherActive(false)
	defer w.watcher.Close()

	// Several fsnotify events arrive per swap; a single reload follows the burst.
	timer := time.NewTimer(reloadDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Base(event.Name) != headFile {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("HEAD changed on disk", "op", event.Op.String())
			timer.Reset(reloadDelay)

		case <-timer.C:
			if err := w.store.reload(); err != nil {
				w.store.reportError(fmt.Errorf("reload failed: %w", err))
			}

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.store.reportError(wErr)
		}
	}
}

// Watch implements core.Watchable. Events for local commits are published
// directly; commits from other processes arrive as RELOAD events once the
// disk watcher sees HEAD move. The disk watcher runs while at least one
// subscription is alive.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	subCtx, unsubscribe := context.WithCancel(ctx)
	events, err := s.Store.Watch(subCtx, pattern)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	// The stop function is registered before the worker starts so that a
	// release racing with Start always finds something to stop.
	var (
		w      *watchWorker
		runCtx context.Context
		cancel context.CancelFunc
	)
	s.mu.Lock()
	s.subscriptions++
	if s.subscriptions == 1 {
		runCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
		w = newWatchWorker(s)
		s.stopWatcher = sync.OnceFunc(func() {
			cancel()
			if err := w.Stop(context.Background()); err != nil {
				s.reportError(fmt.Errorf("watcher shutdown: %w", err))
			}
		})
	}
	s.mu.Unlock()

	if w != nil {
		if err := w.Start(runCtx); err != nil {
			cancel()
			s.mu.Lock()
			s.subscriptions--
			s.stopWatcher = nil
			s.mu.Unlock()
			unsubscribe()
			return nil, err
		}
	}

	lifecycle.Go(subCtx, func(ctx context.Context) error {
		<-ctx.Done()
		if stop := s.release(); stop != nil {
			stop()
		}
		return nil
	}, lifecycle.WithErrorHandler(s.reportError))

	return events, nil
}

// release drops one subscription and hands back the watcher's stop function
// when it was the last one.
func (s *Store) release() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions--
	if s.subscriptions > 0 {
		return nil
	}
	stop := s.stopWatcher
	s.stopWatcher = nil
	return stop
}

func (s *Store) reportError(err error) {
	s.logger.Error("fs watcher error", "error", err)
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
	}
}
