// Package lifecycle exposes desk store changes as a lifecycle.Source, so a
// lifecycle-managed application can react to notes, stickers and settings
// changing without knowing about the store.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/geonotes98/geonotes/pkg/core"
)

type deskSource struct {
	watch   core.Watchable
	pattern string
	out     chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits the store's change events
// for collections matching pattern. Watching starts with Start.
func NewSource(watch core.Watchable, pattern string) lifecycle.Source {
	return &deskSource{
		watch:   watch,
		pattern: pattern,
		out:     make(chan lifecycle.Event),
	}
}

func (s *deskSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *deskSource) Start(ctx context.Context) error {
	events, err := s.watch.Watch(ctx, s.pattern)
	if err != nil {
		return err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				// core.Event satisfies lifecycle.Event through String().
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
