package capsule_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geonotes98/geonotes/pkg/adapters/memory"
	"github.com/geonotes98/geonotes/pkg/capsule"
	"github.com/geonotes98/geonotes/pkg/core"
	"github.com/geonotes98/geonotes/pkg/typed"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func strPtr(s string) *string { return &s }

func sampleBundle() capsule.Bundle {
	return capsule.Bundle{
		CreatedAt: core.Millis(fixedNow),
		Notes: []core.Note{
			{ID: "n1", Title: "Groceries", Content: "milk\n  eggs\tbread", CreatedAt: 1700000000000, UpdatedAt: 1700000300000, Color: "#fefcf7"},
			{ID: "n2", Title: "", Content: "日本語 ✨ emoji 🎉", CreatedAt: 1700000000001, UpdatedAt: 1700000000001},
			{ID: "n3", Title: "Groceries — echo", Content: "milk", CreatedAt: 1710000000000, UpdatedAt: 1710000000000, EchoParentID: "n1"},
		},
		Stickers: []core.Sticker{
			{ID: "s1", Asset: "assets/star.png", X: 0.25, Y: 0.7312, Scale: 1, Rotation: -3.5, DriftSeed: 0.123456789, ZIndex: 1, CreatedAt: 1700000000000},
			{ID: "s2", Asset: "https://example.com/moon.svg?a=1&b=2", X: 0.5, Y: 0.5, Scale: 1.25, Rotation: 0, DriftSeed: 0, ZIndex: 2, CreatedAt: 1700000001000},
		},
		ThemeID: strPtr("sunset-desk"),
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		bundle capsule.Bundle
	}{
		{"Full desk", sampleBundle()},
		{"Empty desk with null theme", capsule.Bundle{
			CreatedAt: 0,
			Notes:     []core.Note{},
			Stickers:  []core.Sticker{},
		}},
		{"Markup in every text field", capsule.Bundle{
			CreatedAt: 1,
			Notes: []core.Note{{
				ID: "<id>", Title: "</pre><script>x</script>", Content: "&amp; &lt; already escaped",
				CreatedAt: 5, UpdatedAt: 6,
			}},
			Stickers: []core.Sticker{},
			ThemeID:  strPtr(`"quoted" & <b>`),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := capsule.BundleToHTML(tt.bundle)
			require.NoError(t, err)

			got, err := capsule.ExtractBundle(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.bundle, got)
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := capsule.BundleToHTML(sampleBundle())
	require.NoError(t, err)
	b, err := capsule.BundleToHTML(sampleBundle())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, strings.Count(a, `id="geonotes-export"`), "exactly one payload container")
}

func TestEncode_Escaping(t *testing.T) {
	b := capsule.Bundle{
		CreatedAt: core.Millis(fixedNow),
		Notes: []core.Note{{
			ID: "x", Title: "<script>alert(1)</script>", Content: "A & B > C",
			CreatedAt: 1, UpdatedAt: 1,
		}},
		Stickers: []core.Sticker{},
	}

	doc, err := capsule.BundleToHTML(b)
	require.NoError(t, err)

	human := doc[:strings.Index(doc, "<details>")]
	assert.Contains(t, human, "<h2>&lt;script&gt;alert(1)&lt;/script&gt;</h2>")
	assert.Contains(t, human, "<pre>A &amp; B &gt; C</pre>")
	assert.NotContains(t, doc, "<script>", "no live markup anywhere in the document")

	payload, err := capsule.ExtractPayload(doc)
	require.NoError(t, err)
	assert.Contains(t, payload, `"title":"<script>alert(1)</script>"`)
	assert.Contains(t, payload, `"content":"A & B > C"`)
}

func TestEncode_HumanReadable(t *testing.T) {
	b := sampleBundle()

	doc, err := capsule.BundleToHTML(b)
	require.NoError(t, err)
	assert.Contains(t, doc, "<title>GeoNotes 98 Export</title>")
	assert.Contains(t, doc, "<h2>Untitled</h2>", "empty titles get a placeholder")
	assert.Contains(t, doc, "<pre>milk\n  eggs\tbread</pre>", "whitespace is preserved")
	assert.Contains(t, doc, "Last edited Nov 14, 2023, 10:18 PM UTC")
	assert.Contains(t, doc, "Generated May 17, 2024, 9:30 AM UTC")
	assert.NotContains(t, doc, "<style>", "no theme, no style")

	paris := time.FixedZone("CEST", 2*60*60)
	codec := capsule.NewCodec(
		capsule.WithLocation(paris),
		capsule.WithClock24h(true),
		capsule.WithTheme(map[string]string{"--ink": "#000000"}),
	)
	doc, err = codec.Encode(b)
	require.NoError(t, err)
	assert.Contains(t, doc, "Generated May 17, 2024, 11:30 CEST")
	assert.Contains(t, doc, "<style>body{background:#f8f4e3;color:#000000}</style>")

	got, err := codec.Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, b, got, "presentation options do not touch the payload")
}

func TestEncode_NilSlicesBecomeEmptyArrays(t *testing.T) {
	payload, err := capsule.MarshalPayload(capsule.Bundle{CreatedAt: 42})
	require.NoError(t, err)
	assert.Equal(t, `{"createdAt":42,"notes":[],"stickers":[],"themeId":null}`, payload)
}

func TestDecode_Errors(t *testing.T) {
	wrap := func(payload string) string {
		return `<html><body><details><pre id="geonotes-export" data-format="geonotes98/v1">` + payload + `</pre></details></body></html>`
	}

	tests := []struct {
		name  string
		doc   string
		kind  error
		field string
	}{
		{"No marker", "<html><body><pre>{}</pre></body></html>", capsule.ErrPayloadNotFound, ""},
		{"Empty document", "", capsule.ErrPayloadNotFound, ""},
		{"Not JSON", wrap("{not json"), capsule.ErrPayloadMalformed, ""},
		{"Trailing data", wrap(`{"createdAt":1,"notes":[],"stickers":[],"themeId":null} {}`), capsule.ErrPayloadMalformed, ""},
		{"String timestamp", wrap(`{"createdAt": "not-a-number", "notes": [], "stickers": [], "themeId": null}`), capsule.ErrPayloadInvalid, "createdAt"},
		{"Bad note field", wrap(`{"createdAt":1,"notes":[{"id":"a","title":"t","content":"c","createdAt":1,"updatedAt":"x"}],"stickers":[],"themeId":null}`), capsule.ErrPayloadInvalid, "notes[0].updatedAt"},
		{"Numeric theme", wrap(`{"createdAt":1,"notes":[],"stickers":[],"themeId":7}`), capsule.ErrPayloadInvalid, "themeId"},
		{"Top-level array", wrap(`[]`), capsule.ErrPayloadInvalid, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := capsule.ExtractBundle(tt.doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var perr *capsule.PayloadError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.field, perr.Field)
		})
	}
}

func TestSuggestedFilename(t *testing.T) {
	b := capsule.Bundle{CreatedAt: core.Millis(time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC))}
	assert.Equal(t, "geonotes98-2024-12-31.html", capsule.SuggestedFilename(b))
}

// --- Builder ---

func seedStore(t *testing.T, b capsule.Bundle) *memory.Store {
	t.Helper()
	store := memory.New(memory.Config{})
	require.NoError(t, capsule.NewImporter(store, nil).ImportBundle(context.Background(), b))
	return store
}

func TestBuilder_CreateBundle(t *testing.T) {
	ctx := context.Background()
	want := sampleBundle()
	store := seedStore(t, want)

	got, err := capsule.NewBuilder(store, capsule.WithBuilderClock(fixedClock)).CreateBundle(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBuilder_ThemeMustBeString(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.Config{})

	got, err := capsule.NewBuilder(store).CreateBundle(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.ThemeID, "no theme setting")
	assert.NotNil(t, got.Notes)
	assert.NotNil(t, got.Stickers)

	require.NoError(t, typed.Settings.Put(ctx, store, core.Setting{Key: core.SettingThemeID, Value: 12}))
	got, err = capsule.NewBuilder(store).CreateBundle(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.ThemeID, "non-string theme setting")
}

// failingReader fails every read of one collection.
type failingReader struct {
	core.Reader
	fail core.Collection
	err  error
}

func (r failingReader) ToArray(ctx context.Context, c core.Collection) ([]core.Record, error) {
	if c == r.fail {
		return nil, r.err
	}
	return r.Reader.ToArray(ctx, c)
}

func TestBuilder_PropagatesReadFailureUnchanged(t *testing.T) {
	diskGone := errors.New("disk gone")
	reader := failingReader{Reader: memory.New(memory.Config{}), fail: core.CollectionStickers, err: diskGone}

	_, err := capsule.NewBuilder(reader).CreateBundle(context.Background())
	assert.Same(t, diskGone, err)
}

// --- Importer ---

// stickerFailStore fails the sticker insert step of any transaction.
type stickerFailStore struct {
	*memory.Store
	err error
}

type stickerFailTx struct {
	core.Tx
	err error
}

func (tx stickerFailTx) BulkAdd(ctx context.Context, c core.Collection, recs []core.Record) error {
	if c == core.CollectionStickers {
		return tx.err
	}
	return tx.Tx.BulkAdd(ctx, c, recs)
}

func (s *stickerFailStore) Transaction(ctx context.Context, scope []core.Collection, fn func(tx core.Tx) error) error {
	return s.Store.Transaction(ctx, scope, func(tx core.Tx) error {
		return fn(stickerFailTx{Tx: tx, err: s.err})
	})
}

func TestImporter_AtomicOnFailure(t *testing.T) {
	ctx := context.Background()
	before := sampleBundle()
	mem := seedStore(t, before)

	quota := errors.New("quota exceeded")
	store := &stickerFailStore{Store: mem, err: quota}

	incoming := capsule.Bundle{
		CreatedAt: 1,
		Notes:     []core.Note{{ID: "new", Title: "new", CreatedAt: 1, UpdatedAt: 1}},
		Stickers:  []core.Sticker{{ID: "new-s", Asset: "a", Scale: 1, CreatedAt: 1}},
		ThemeID:   strPtr("night-desk"),
	}
	err := capsule.NewImporter(store, nil).ImportBundle(ctx, incoming)
	assert.Same(t, quota, err, "store failure is returned unchanged")

	notes, err := typed.Notes.All(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, before.Notes, notes)

	stickers, err := typed.Stickers.All(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, before.Stickers, stickers)

	theme, err := mem.Get(ctx, core.CollectionSettings, core.SettingThemeID)
	require.NoError(t, err)
	assert.Equal(t, "sunset-desk", theme.Data["value"])
}

func TestImporter_ReplacesDesk(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, sampleBundle())

	incoming := capsule.Bundle{
		CreatedAt: 1,
		Notes:     []core.Note{{ID: "only", Title: "only", CreatedAt: 1, UpdatedAt: 2}},
		Stickers:  []core.Sticker{},
	}
	require.NoError(t, capsule.NewImporter(store, nil).ImportBundle(ctx, incoming))

	notes, err := typed.Notes.All(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, incoming.Notes, notes)

	stickers, err := typed.Stickers.All(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, stickers)

	theme, err := store.Get(ctx, core.CollectionSettings, core.SettingThemeID)
	require.NoError(t, err)
	assert.Equal(t, "sunset-desk", theme.Data["value"], "a null theme keeps the current one")
}

func TestImporter_DuplicateIDsRollBack(t *testing.T) {
	ctx := context.Background()
	before := sampleBundle()
	store := seedStore(t, before)

	dup := capsule.Bundle{
		Notes:    []core.Note{{ID: "d", CreatedAt: 1, UpdatedAt: 1}, {ID: "d", CreatedAt: 1, UpdatedAt: 1}},
		Stickers: []core.Sticker{},
	}
	err := capsule.NewImporter(store, nil).ImportBundle(ctx, dup)
	assert.ErrorIs(t, err, core.ErrKeyExists)

	notes, err := typed.Notes.All(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, before.Notes, notes)
}

func TestReexportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	source := seedStore(t, sampleBundle())
	svc := capsule.NewService(source, nil, nil, capsule.WithBuilderClock(fixedClock))

	first, _, _, err := svc.Render(ctx)
	require.NoError(t, err)

	target := memory.New(memory.Config{})
	_, err = capsule.NewService(target, nil, nil).ImportDocument(ctx, first)
	require.NoError(t, err)

	second, _, _, err := capsule.NewService(target, nil, nil, capsule.WithBuilderClock(fixedClock)).Render(ctx)
	require.NoError(t, err)

	p1, err := capsule.ExtractPayload(first)
	require.NoError(t, err)
	p2, err := capsule.ExtractPayload(second)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestService_InvalidDocumentLeavesDeskUntouched(t *testing.T) {
	ctx := context.Background()
	before := sampleBundle()
	store := seedStore(t, before)

	_, err := capsule.NewService(store, nil, nil).ImportDocument(ctx, "<html>nothing here</html>")
	assert.ErrorIs(t, err, capsule.ErrPayloadNotFound)

	notes, err := typed.Notes.All(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, before.Notes, notes)
}

func TestImport_RecordsStayEditable(t *testing.T) {
	ctx := context.Background()
	doc := `<pre id="geonotes-export">{"createdAt":1,"themeId":null,` +
		`"notes":[{"id":"old","title":"moon landing","content":"","createdAt":-5,"updatedAt":-10}],` +
		`"stickers":[{"id":"edge","asset":"","x":1.2,"y":-0.1,"scale":1,"rotation":0,"driftSeed":0,"createdAt":-1,"zIndex":3}]}</pre>`

	store := memory.New(memory.Config{})
	_, err := capsule.NewService(store, nil, nil).ImportDocument(ctx, doc)
	require.NoError(t, err)

	desk := core.NewService(store, core.WithClock(fixedClock))

	tilt := 4.0
	st, err := desk.UpdateSticker(ctx, "edge", core.StickerPatch{Rotation: &tilt})
	require.NoError(t, err)
	assert.Equal(t, 1.2, st.X)
	assert.Equal(t, 4.0, st.Rotation)

	n, err := desk.UpdateNote(ctx, "old", core.NotePatch{Title: strPtr("apollo")})
	require.NoError(t, err)
	assert.Equal(t, "apollo", n.Title)
	assert.Equal(t, int64(-5), n.CreatedAt)
	assert.Equal(t, core.Millis(fixedNow), n.UpdatedAt)
}

func TestDecode_MissingZIndexFollowsArrayOrder(t *testing.T) {
	doc := `<pre id="geonotes-export">{"createdAt":1,"notes":[],"themeId":null,"stickers":[` +
		`{"id":"a","asset":"a.png","x":0,"y":0,"scale":1,"rotation":0,"driftSeed":0,"createdAt":1},` +
		`{"id":"b","asset":"b.png","x":0,"y":0,"scale":1,"rotation":0,"driftSeed":0,"createdAt":1,"zIndex":9},` +
		`{"id":"c","asset":"c.png","x":0,"y":0,"scale":1,"rotation":0,"driftSeed":0,"createdAt":1}]}</pre>`

	b, err := capsule.ExtractBundle(doc)
	require.NoError(t, err)
	require.Len(t, b.Stickers, 3)
	assert.Equal(t, int64(1), b.Stickers[0].ZIndex)
	assert.Equal(t, int64(9), b.Stickers[1].ZIndex, "an explicit zIndex is kept")
	assert.Equal(t, int64(3), b.Stickers[2].ZIndex)
}
