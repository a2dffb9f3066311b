package capsule

import (
	"context"
	"io"
	"log/slog"

	"github.com/geonotes98/geonotes/pkg/core"
	"github.com/geonotes98/geonotes/pkg/typed"
)

// importScope is every collection an import may touch.
var importScope = []core.Collection{core.CollectionNotes, core.CollectionStickers, core.CollectionSettings}

// Importer replaces the desk contents with a bundle.
type Importer struct {
	store  core.Store
	logger *slog.Logger
}

// NewImporter creates an Importer writing to store.
func NewImporter(store core.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{store: store, logger: logger}
}

// ImportBundle clears notes and stickers, inserts the bundle's ones and, when
// the bundle names a theme, selects it. Everything happens in one transaction:
// on failure the desk is left exactly as it was and the store error is
// returned as is. b must already be validated.
func (i *Importer) ImportBundle(ctx context.Context, b Bundle) error {
	err := i.store.Transaction(ctx, importScope, func(tx core.Tx) error {
		if err := tx.Clear(ctx, core.CollectionNotes); err != nil {
			return err
		}
		if err := tx.Clear(ctx, core.CollectionStickers); err != nil {
			return err
		}
		if err := typed.Notes.BulkAdd(ctx, tx, b.Notes); err != nil {
			return err
		}
		if err := typed.Stickers.BulkAdd(ctx, tx, b.Stickers); err != nil {
			return err
		}
		if b.ThemeID != nil {
			return typed.Settings.Put(ctx, tx, core.Setting{Key: core.SettingThemeID, Value: *b.ThemeID})
		}
		return nil
	})
	if err != nil {
		i.logger.Warn("import rolled back", "error", err)
		return err
	}

	i.logger.Info("bundle imported", "notes", len(b.Notes), "stickers", len(b.Stickers))
	return nil
}
