// Package capsule implements the GeoNotes 98 time capsule: a snapshot of the
// desk (notes, stickers, theme) written as a self-contained HTML document that
// can be read by a person and imported back by the application.
package capsule

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geonotes98/geonotes/pkg/core"
	"github.com/geonotes98/geonotes/pkg/typed"
)

// Bundle is the unit of export and import. Valid bundles carry non-nil
// Notes and Stickers; a nil ThemeID means no theme was selected.
type Bundle struct {
	CreatedAt int64          `json:"createdAt"` // epoch millis
	Notes     []core.Note    `json:"notes"`
	Stickers  []core.Sticker `json:"stickers"`
	ThemeID   *string        `json:"themeId"`
}

// Builder assembles bundles from the desk store.
type Builder struct {
	store core.Reader
	now   func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderClock overrides the time stamped on new bundles.
func WithBuilderClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder reading from store.
func NewBuilder(store core.Reader, opts ...BuilderOption) *Builder {
	b := &Builder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateBundle snapshots the desk. The notes, stickers and theme reads run
// concurrently; a read failure is returned as is.
func (b *Builder) CreateBundle(ctx context.Context) (Bundle, error) {
	var (
		notes    []core.Note
		stickers []core.Sticker
		themeID  *string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		notes, err = typed.Notes.All(gctx, b.store)
		return err
	})
	g.Go(func() error {
		var err error
		stickers, err = typed.Stickers.All(gctx, b.store)
		return err
	})
	g.Go(func() error {
		rec, err := b.store.Get(gctx, core.CollectionSettings, core.SettingThemeID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if v, ok := rec.Data["value"].(string); ok {
			themeID = &v
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}

	return Bundle{
		CreatedAt: core.Millis(b.now()),
		Notes:     notes,
		Stickers:  stickers,
		ThemeID:   themeID,
	}, nil
}
