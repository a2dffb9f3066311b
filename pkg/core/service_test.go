package core_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geonotes98/geonotes/pkg/adapters/memory"
	"github.com/geonotes98/geonotes/pkg/core"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newService(t *testing.T) (*core.Service, *memory.Store, *fakeClock) {
	t.Helper()
	store := memory.New(memory.Config{})
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := core.NewService(store,
		core.WithClock(clock.Now),
		core.WithIDGenerator(seqIDs()),
		core.WithRand(rand.New(rand.NewPCG(1, 2))),
	)
	return svc, store, clock
}

func TestService_NotesCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newService(t)

	first, err := svc.CreateNote(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Untitled note", first.Title)
	assert.Contains(t, core.NoteColors, first.Color)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	clock.Advance(time.Minute)
	second, err := svc.CreateNote(ctx, "groceries")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	content := "milk, eggs"
	updated, err := svc.UpdateNote(ctx, first.ID, core.NotePatch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, content, updated.Content)
	assert.Equal(t, core.Millis(clock.Now()), updated.UpdatedAt)

	notes, err := svc.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, first.ID, notes[0].ID, "most recently updated first")
	assert.Equal(t, second.ID, notes[1].ID)

	require.NoError(t, svc.DeleteNote(ctx, first.ID))
	_, err = svc.GetNote(ctx, first.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.UpdateNote(ctx, "missing", core.NotePatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_EchoSweep(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newService(t)

	old, err := svc.CreateNote(ctx, "")
	require.NoError(t, err)

	clock.Advance(20 * 24 * time.Hour)
	_, err = svc.CreateNote(ctx, "recent")
	require.NoError(t, err)

	t.Run("Young notes are left alone", func(t *testing.T) {
		created, err := svc.RunEchoSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, created)
	})

	t.Run("Notes at the threshold are echoed", func(t *testing.T) {
		clock.Advance(10 * 24 * time.Hour)
		created, err := svc.RunEchoSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, created)

		notes, err := svc.ListNotes(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 3)

		var echo core.Note
		for _, n := range notes {
			if n.IsEcho() {
				echo = n
			}
		}
		assert.Equal(t, old.ID, echo.EchoParentID)
		assert.Equal(t, "Untitled note — echo", echo.Title)
		assert.Equal(t, core.Millis(clock.Now()), echo.CreatedAt)

		original, err := svc.GetNote(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, core.Millis(clock.Now()), original.LastEchoCheck)
	})

	t.Run("Swept notes rest before echoing again", func(t *testing.T) {
		clock.Advance(24 * time.Hour)
		created, err := svc.RunEchoSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, created, "original was just swept, echoes are never echoed, recent is too young")
	})

	state, ok := svc.State().(core.ServiceState)
	require.True(t, ok)
	assert.Equal(t, 3, state.EchoSweeps)
	assert.Equal(t, 1, state.EchoesCreated)
	assert.Equal(t, "memory-store", state.StoreType)
}

func TestService_Stickers(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	a, err := svc.AddSticker(ctx, "star.png")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ZIndex)
	assert.InDelta(t, 0.5, a.X, 0.3)
	assert.InDelta(t, 0.5, a.Y, 0.3)
	assert.InDelta(t, 0, a.Rotation, 5)
	assert.Equal(t, 1.0, a.Scale)

	z := int64(7)
	_, err = svc.UpdateSticker(ctx, a.ID, core.StickerPatch{ZIndex: &z})
	require.NoError(t, err)

	b, err := svc.AddSticker(ctx, "moon.png")
	require.NoError(t, err)
	assert.Equal(t, int64(8), b.ZIndex, "new stickers land on top")

	off := 1.5
	moved, err := svc.UpdateSticker(ctx, b.ID, core.StickerPatch{X: &off})
	require.NoError(t, err, "stickers may hang off the desk edge")
	assert.Equal(t, 1.5, moved.X)

	zero := 0.0
	_, err = svc.UpdateSticker(ctx, b.ID, core.StickerPatch{Scale: &zero})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	_, err = svc.AddSticker(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	require.NoError(t, svc.RemoveSticker(ctx, a.ID))
	stickers, err := svc.ListStickers(ctx)
	require.NoError(t, err)
	require.Len(t, stickers, 1)
	assert.Equal(t, b.ID, stickers[0].ID)
}

func TestService_Settings(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	settings, err := svc.DesktopSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultDesktopSettings(), settings)

	require.NoError(t, svc.SetTheme(ctx, "night-desk"))
	on := true
	require.NoError(t, svc.UpdateSettings(ctx, core.SettingsPatch{Clock24h: &on}))

	settings, err = svc.DesktopSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "night-desk", settings.ThemeID)
	assert.True(t, settings.Clock24h)
	assert.True(t, settings.AmbientMessages)

	rec, err := store.Get(ctx, core.CollectionSettings, core.SettingThemeID)
	require.NoError(t, err)
	assert.Equal(t, "night-desk", rec.Data["value"])

	assert.ErrorIs(t, svc.SetTheme(ctx, ""), core.ErrInvalidRecord)
}

func TestService_EnsureSeedData(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	seeded, err := svc.EnsureSeedData(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	notes, err := svc.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "Welcome to GeoNotes 98", notes[0].Title)

	settings, err := store.ToArray(ctx, core.CollectionSettings)
	require.NoError(t, err)
	assert.Len(t, settings, 3)

	seeded, err = svc.EnsureSeedData(ctx)
	require.NoError(t, err)
	assert.False(t, seeded, "a populated desk is left untouched")
}

// storeOnly hides the Watchable side of the wrapped store.
type storeOnly struct{ core.Store }

func TestService_WatchUnsupported(t *testing.T) {
	svc := core.NewService(storeOnly{memory.New(memory.Config{})})

	_, err := svc.Watch(context.Background(), "*")
	require.Error(t, err)
	assert.Equal(t, "store does not support watching", err.Error())
}
