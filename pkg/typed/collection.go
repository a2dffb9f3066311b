// Package typed provides a type-safe view over the raw record collections of
// a core.Store. Structs are mapped to core.Record payloads through their JSON
// representation, so the `json` tags of the domain types are the storage schema.
package typed

import (
	"context"
	"fmt"

	"github.com/geonotes98/geonotes/pkg/core"
)

// Collection wraps one core collection to provide typed access.
// The same value works against a Store or a Tx, since both are Readers/Writers.
type Collection[T any] struct {
	name core.Collection
	key  func(T) string
}

// NewCollection creates a typed wrapper. key extracts the record key of a value.
func NewCollection[T any](name core.Collection, key func(T) string) *Collection[T] {
	return &Collection[T]{name: name, key: key}
}

// Name returns the wrapped collection name.
func (c *Collection[T]) Name() core.Collection {
	return c.name
}

// Get retrieves a value by key and unmarshals it.
func (c *Collection[T]) Get(ctx context.Context, r core.Reader, key string) (T, error) {
	var zero T
	rec, err := r.Get(ctx, c.name, key)
	if err != nil {
		return zero, err
	}
	return core.FromRecord[T](rec)
}

// All returns every value of the collection in store iteration order.
// The result is never nil.
func (c *Collection[T]) All(ctx context.Context, r core.Reader) ([]T, error) {
	recs, err := r.ToArray(ctx, c.name)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := core.FromRecord[T](rec)
		if err != nil {
			return nil, fmt.Errorf("failed to process %s/%s: %w", c.name, rec.Key, err)
		}
		result = append(result, v)
	}
	return result, nil
}

// Put creates or replaces a value.
func (c *Collection[T]) Put(ctx context.Context, w core.Writer, v T) error {
	rec, err := core.ToRecord(c.key(v), v)
	if err != nil {
		return err
	}
	return w.Put(ctx, c.name, rec)
}

// BulkAdd inserts new values in order.
func (c *Collection[T]) BulkAdd(ctx context.Context, w core.Writer, vs []T) error {
	recs := make([]core.Record, 0, len(vs))
	for _, v := range vs {
		rec, err := core.ToRecord(c.key(v), v)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	return w.BulkAdd(ctx, c.name, recs)
}

// Delete removes a value by key.
func (c *Collection[T]) Delete(ctx context.Context, w core.Writer, key string) error {
	return w.Delete(ctx, c.name, key)
}

// Desk collections.
var (
	Notes    = NewCollection(core.CollectionNotes, func(n core.Note) string { return n.ID })
	Stickers = NewCollection(core.CollectionStickers, func(s core.Sticker) string { return s.ID })
	Settings = NewCollection(core.CollectionSettings, func(s core.Setting) string { return s.Key })
)
