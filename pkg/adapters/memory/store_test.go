package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geonotes98/geonotes/pkg/adapters/memory"
	"github.com/geonotes98/geonotes/pkg/core"
)

func rec(key, title string) core.Record {
	return core.Record{Key: key, Data: core.Metadata{"id": key, "title": title}}
}

func keys(recs []core.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Key)
	}
	return out
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.Config{})

	require.NoError(t, store.Put(ctx, core.CollectionNotes, rec("a", "first")))
	require.NoError(t, store.Put(ctx, core.CollectionNotes, rec("b", "second")))

	got, err := store.Get(ctx, core.CollectionNotes, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Data["title"])

	// Replacing keeps the iteration slot.
	require.NoError(t, store.Put(ctx, core.CollectionNotes, rec("a", "edited")))
	all, err := store.ToArray(ctx, core.CollectionNotes)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys(all))
	assert.Equal(t, "edited", all[0].Data["title"])

	require.NoError(t, store.Delete(ctx, core.CollectionNotes, "a"))
	_, err = store.Get(ctx, core.CollectionNotes, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, store.Clear(ctx, core.CollectionNotes))
	all, err = store.ToArray(ctx, core.CollectionNotes)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_BulkAddRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.Config{})
	require.NoError(t, store.Put(ctx, core.CollectionStickers, rec("s1", "")))

	err := store.BulkAdd(ctx, core.CollectionStickers, []core.Record{rec("s2", ""), rec("s1", "")})
	assert.ErrorIs(t, err, core.ErrKeyExists)

	err = store.BulkAdd(ctx, core.CollectionStickers, []core.Record{rec("s3", ""), rec("s3", "")})
	assert.ErrorIs(t, err, core.ErrKeyExists)

	all, err := store.ToArray(ctx, core.CollectionStickers)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, keys(all), "a rejected batch inserts nothing")
}

func TestStore_TransactionIsolationAndRollback(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.Config{})
	require.NoError(t, store.Put(ctx, core.CollectionNotes, rec("keep", "old")))

	boom := errors.New("boom")
	err := store.Transaction(ctx, []core.Collection{core.CollectionNotes, core.CollectionStickers}, func(tx core.Tx) error {
		require.NoError(t, tx.Clear(ctx, core.CollectionNotes))
		require.NoError(t, tx.Put(ctx, core.CollectionNotes, rec("new", "staged")))

		// Staged writes are visible inside the body only.
		inside, err := tx.ToArray(ctx, core.CollectionNotes)
		require.NoError(t, err)
		assert.Equal(t, []string{"new"}, keys(inside))

		outside, err := store.ToArray(ctx, core.CollectionNotes)
		require.NoError(t, err)
		assert.Equal(t, []string{"keep"}, keys(outside))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := store.ToArray(ctx, core.CollectionNotes)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, keys(all))
}

func TestStore_TransactionScope(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.Config{})

	err := store.Transaction(ctx, []core.Collection{core.CollectionNotes}, func(tx core.Tx) error {
		return tx.Put(ctx, core.CollectionSettings, core.Record{Key: "themeId", Data: core.Metadata{"value": "x"}})
	})
	assert.ErrorIs(t, err, core.ErrOutOfScope)

	err = store.Transaction(ctx, []core.Collection{"bogus"}, func(tx core.Tx) error { return nil })
	assert.ErrorIs(t, err, core.ErrUnknownCollection)
}

func TestStore_PersistFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	diskFull := errors.New("disk full")
	fail := false

	store := memory.New(memory.Config{
		Persist: func(ctx context.Context, next *memory.State, changed []core.Collection) error {
			if fail {
				return diskFull
			}
			return nil
		},
	})
	require.NoError(t, store.Put(ctx, core.CollectionNotes, rec("a", "v1")))

	fail = true
	err := store.Put(ctx, core.CollectionNotes, rec("a", "v2"))
	assert.ErrorIs(t, err, diskFull)

	got, err := store.Get(ctx, core.CollectionNotes, "a")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Data["title"])
}

func TestStore_ReadOnly(t *testing.T) {
	store := memory.New(memory.Config{ReadOnly: true})
	err := store.Put(context.Background(), core.CollectionNotes, rec("a", ""))
	assert.ErrorIs(t, err, core.ErrReadOnly)
}

func TestStore_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.New(memory.Config{})
	events, err := store.Watch(ctx, "{notes,stickers}")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, core.CollectionSettings, core.Record{Key: "themeId", Data: core.Metadata{"value": "x"}}))
	require.NoError(t, store.Put(ctx, core.CollectionNotes, rec("a", "")))

	select {
	case e := <-events:
		assert.Equal(t, core.EventCreate, e.Type)
		assert.Equal(t, core.CollectionNotes, e.Collection)
		assert.Equal(t, "a", e.Key)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	_, err = store.Watch(ctx, "[")
	assert.Error(t, err)
}
