package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// EchoAge is how old a note must be before the sweep echoes it, and how long
// a swept note rests before it can be echoed again.
const EchoAge = 30 * 24 * time.Hour

// NoteColors is the paper palette new notes are drawn from.
var NoteColors = []string{"#fefcf7", "#f7ede2", "#e0f2f1", "#f3e8ff"}

// Service handles the desk operations around notes, stickers and settings.
type Service struct {
	store    Store
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	newID    func() string

	randMu sync.Mutex
	rand   *rand.Rand

	mu            sync.RWMutex
	sweeps        int
	echoesCreated int
	lastSweep     *time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger of the Service.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how record ids are minted.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// WithRand sets the random source used for note colors and sticker placement.
func WithRand(r *rand.Rand) ServiceOption {
	return func(s *Service) { s.rand = r }
}

// NewService creates a new Service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
		rand:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

func (s *Service) float64() float64 {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Float64()
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

func (s *Service) putNote(ctx context.Context, w Writer, n Note) error {
	if err := s.check(n); err != nil {
		return err
	}
	rec, err := ToRecord(n.ID, n)
	if err != nil {
		return err
	}
	return w.Put(ctx, CollectionNotes, rec)
}

func (s *Service) putSticker(ctx context.Context, w Writer, st Sticker) error {
	if err := s.check(st); err != nil {
		return err
	}
	rec, err := ToRecord(st.ID, st)
	if err != nil {
		return err
	}
	return w.Put(ctx, CollectionStickers, rec)
}

func decodeAll[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := FromRecord[T](rec)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", rec.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// --- Notes ---

// CreateNote adds an empty note and returns it. An empty title becomes "Untitled note".
func (s *Service) CreateNote(ctx context.Context, title string) (Note, error) {
	if title == "" {
		title = "Untitled note"
	}
	now := Millis(s.now())
	n := Note{
		ID:        s.newID(),
		Title:     title,
		Content:   "",
		CreatedAt: now,
		UpdatedAt: now,
		Color:     NoteColors[int(s.float64()*float64(len(NoteColors)))],
	}
	if err := s.putNote(ctx, s.store, n); err != nil {
		return Note{}, err
	}
	s.logger.Debug("note created", "id", n.ID)
	return n, nil
}

// GetNote retrieves a note by id.
func (s *Service) GetNote(ctx context.Context, id string) (Note, error) {
	if id == "" {
		return Note{}, ErrEmptyKey
	}
	rec, err := s.store.Get(ctx, CollectionNotes, id)
	if err != nil {
		return Note{}, err
	}
	return FromRecord[Note](rec)
}

// ListNotes returns every note, most recently updated first.
func (s *Service) ListNotes(ctx context.Context) ([]Note, error) {
	recs, err := s.store.ToArray(ctx, CollectionNotes)
	if err != nil {
		return nil, err
	}
	notes, err := decodeAll[Note](recs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt > notes[j].UpdatedAt
	})
	return notes, nil
}

// NotePatch lists the editable fields of a note; nil fields are left alone.
type NotePatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Color   *string `json:"color,omitempty"`
}

// UpdateNote applies patch and bumps updatedAt.
func (s *Service) UpdateNote(ctx context.Context, id string, patch NotePatch) (Note, error) {
	var updated Note
	err := s.store.Transaction(ctx, []Collection{CollectionNotes}, func(tx Tx) error {
		rec, err := tx.Get(ctx, CollectionNotes, id)
		if err != nil {
			return err
		}
		n, err := FromRecord[Note](rec)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			n.Title = *patch.Title
		}
		if patch.Content != nil {
			n.Content = *patch.Content
		}
		if patch.Color != nil {
			n.Color = *patch.Color
		}
		n.UpdatedAt = max(Millis(s.now()), n.CreatedAt)
		updated = n
		return s.putNote(ctx, tx, n)
	})
	return updated, err
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyKey
	}
	return s.store.Delete(ctx, CollectionNotes, id)
}

// RunEchoSweep resurfaces old notes. Every original note created at least
// EchoAge ago, and not swept within EchoAge, gets an echo copy; the original
// is stamped with lastEchoCheck. It returns the number of echoes created.
func (s *Service) RunEchoSweep(ctx context.Context) (int, error) {
	now := s.now()
	nowMs := Millis(now)
	threshold := Millis(now.Add(-EchoAge))
	created := 0

	err := s.store.Transaction(ctx, []Collection{CollectionNotes}, func(tx Tx) error {
		recs, err := tx.ToArray(ctx, CollectionNotes)
		if err != nil {
			return err
		}
		notes, err := decodeAll[Note](recs)
		if err != nil {
			return err
		}

		for _, n := range notes {
			if n.IsEcho() {
				continue
			}
			if n.LastEchoCheck != 0 && n.LastEchoCheck > threshold {
				continue
			}
			if n.CreatedAt > threshold {
				continue
			}

			title := n.Title
			if title == "" {
				title = "Untitled"
			}
			echo := Note{
				ID:           s.newID(),
				Title:        title + " — echo",
				Content:      n.Content,
				CreatedAt:    nowMs,
				UpdatedAt:    nowMs,
				Color:        n.Color,
				EchoParentID: n.ID,
			}
			if err := s.putNote(ctx, tx, echo); err != nil {
				return err
			}

			n.LastEchoCheck = nowMs
			if err := s.putNote(ctx, tx, n); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.sweeps++
	s.echoesCreated += created
	s.lastSweep = &now
	s.mu.Unlock()

	s.logger.Info("echo sweep finished", "created", created)
	return created, nil
}

// --- Stickers ---

// AddSticker places a new sticker on top of every existing one, at a random
// spot away from the desk edges with a slight tilt.
func (s *Service) AddSticker(ctx context.Context, asset string) (Sticker, error) {
	if asset == "" {
		return Sticker{}, fmt.Errorf("%w: sticker asset cannot be empty", ErrInvalidRecord)
	}

	var added Sticker
	err := s.store.Transaction(ctx, []Collection{CollectionStickers}, func(tx Tx) error {
		recs, err := tx.ToArray(ctx, CollectionStickers)
		if err != nil {
			return err
		}
		existing, err := decodeAll[Sticker](recs)
		if err != nil {
			return err
		}

		var maxZ int64
		for _, st := range existing {
			maxZ = max(maxZ, st.ZIndex)
		}

		added = Sticker{
			ID:        s.newID(),
			Asset:     asset,
			X:         0.2 + s.float64()*0.6,
			Y:         0.2 + s.float64()*0.6,
			Scale:     1,
			Rotation:  (s.float64() - 0.5) * 10,
			DriftSeed: s.float64(),
			ZIndex:    maxZ + 1,
			CreatedAt: Millis(s.now()),
		}
		return s.putSticker(ctx, tx, added)
	})
	if err != nil {
		return Sticker{}, err
	}
	return added, nil
}

// ListStickers returns every sticker in store order.
func (s *Service) ListStickers(ctx context.Context) ([]Sticker, error) {
	recs, err := s.store.ToArray(ctx, CollectionStickers)
	if err != nil {
		return nil, err
	}
	return decodeAll[Sticker](recs)
}

// StickerPatch lists the editable fields of a sticker; nil fields are left alone.
type StickerPatch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	ZIndex   *int64   `json:"zIndex,omitempty"`
}

// UpdateSticker applies patch to a sticker.
func (s *Service) UpdateSticker(ctx context.Context, id string, patch StickerPatch) (Sticker, error) {
	if patch.Scale != nil && *patch.Scale <= 0 {
		return Sticker{}, fmt.Errorf("%w: sticker scale must be positive", ErrInvalidRecord)
	}

	var updated Sticker
	err := s.store.Transaction(ctx, []Collection{CollectionStickers}, func(tx Tx) error {
		rec, err := tx.Get(ctx, CollectionStickers, id)
		if err != nil {
			return err
		}
		st, err := FromRecord[Sticker](rec)
		if err != nil {
			return err
		}
		if patch.X != nil {
			st.X = *patch.X
		}
		if patch.Y != nil {
			st.Y = *patch.Y
		}
		if patch.Scale != nil {
			st.Scale = *patch.Scale
		}
		if patch.Rotation != nil {
			st.Rotation = *patch.Rotation
		}
		if patch.ZIndex != nil {
			st.ZIndex = *patch.ZIndex
		}
		updated = st
		return s.putSticker(ctx, tx, st)
	})
	return updated, err
}

// RemoveSticker removes a sticker.
func (s *Service) RemoveSticker(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyKey
	}
	return s.store.Delete(ctx, CollectionStickers, id)
}

// --- Settings ---

// DesktopSettings reads the settings collection, filling absent or
// mistyped entries with defaults.
func (s *Service) DesktopSettings(ctx context.Context) (DesktopSettings, error) {
	settings := DefaultDesktopSettings()

	recs, err := s.store.ToArray(ctx, CollectionSettings)
	if err != nil {
		return settings, err
	}
	for _, rec := range recs {
		switch rec.Key {
		case SettingThemeID:
			if v, ok := rec.Data["value"].(string); ok && v != "" {
				settings.ThemeID = v
			}
		case SettingAmbientMessages:
			if v, ok := rec.Data["value"].(bool); ok {
				settings.AmbientMessages = v
			}
		case SettingClock24h:
			if v, ok := rec.Data["value"].(bool); ok {
				settings.Clock24h = v
			}
		}
	}
	return settings, nil
}

// SettingsPatch lists the editable desktop settings; nil fields are left alone.
type SettingsPatch struct {
	ThemeID         *string `json:"themeId,omitempty"`
	AmbientMessages *bool   `json:"ambientMessages,omitempty"`
	Clock24h        *bool   `json:"clock24h,omitempty"`
}

// UpdateSettings writes the set fields of patch in a single commit.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) error {
	if patch.ThemeID != nil && *patch.ThemeID == "" {
		return fmt.Errorf("%w: theme id cannot be empty", ErrInvalidRecord)
	}

	var settings []Setting
	if patch.ThemeID != nil {
		settings = append(settings, Setting{Key: SettingThemeID, Value: *patch.ThemeID})
	}
	if patch.AmbientMessages != nil {
		settings = append(settings, Setting{Key: SettingAmbientMessages, Value: *patch.AmbientMessages})
	}
	if patch.Clock24h != nil {
		settings = append(settings, Setting{Key: SettingClock24h, Value: *patch.Clock24h})
	}
	if len(settings) == 0 {
		return nil
	}

	return s.store.Transaction(ctx, []Collection{CollectionSettings}, func(tx Tx) error {
		return putSettings(ctx, tx, settings)
	})
}

// SetTheme selects the desk theme.
func (s *Service) SetTheme(ctx context.Context, themeID string) error {
	return s.UpdateSettings(ctx, SettingsPatch{ThemeID: &themeID})
}

func putSettings(ctx context.Context, w Writer, settings []Setting) error {
	for _, setting := range settings {
		rec, err := ToRecord(setting.Key, setting)
		if err != nil {
			return err
		}
		if err := w.Put(ctx, CollectionSettings, rec); err != nil {
			return err
		}
	}
	return nil
}

// --- Seed ---

// EnsureSeedData fills a fresh desk: two welcome notes when there are no
// notes, and default settings when there are no settings. It reports whether
// anything was written.
func (s *Service) EnsureSeedData(ctx context.Context) (bool, error) {
	seeded := false
	err := s.store.Transaction(ctx, []Collection{CollectionNotes, CollectionSettings}, func(tx Tx) error {
		notes, err := tx.ToArray(ctx, CollectionNotes)
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			now := Millis(s.now())
			welcome := []Note{
				{
					ID:        s.newID(),
					Title:     "Welcome to GeoNotes 98",
					Content:   "This desk is yours. Jot notes, doodle, leave reminders. GeoNotes 98 keeps everything local so thoughts stay personal.",
					CreatedAt: now,
					UpdatedAt: now,
					Color:     NoteColors[0],
				},
				{
					ID:        s.newID(),
					Title:     "Remember",
					Content:   "Notes are like seeds—some bloom later. Leave them be. Return when you feel the pull.",
					CreatedAt: now,
					UpdatedAt: now,
					Color:     NoteColors[1],
				},
			}
			recs := make([]Record, 0, len(welcome))
			for _, n := range welcome {
				rec, err := ToRecord(n.ID, n)
				if err != nil {
					return err
				}
				recs = append(recs, rec)
			}
			if err := tx.BulkAdd(ctx, CollectionNotes, recs); err != nil {
				return err
			}
			seeded = true
		}

		settings, err := tx.ToArray(ctx, CollectionSettings)
		if err != nil {
			return err
		}
		if len(settings) == 0 {
			d := DefaultDesktopSettings()
			if err := putSettings(ctx, tx, []Setting{
				{Key: SettingThemeID, Value: d.ThemeID},
				{Key: SettingAmbientMessages, Value: d.AmbientMessages},
				{Key: SettingClock24h, Value: d.Clock24h},
			}); err != nil {
				return err
			}
			seeded = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		s.logger.Info("desk seeded")
	}
	return seeded, nil
}

// Watch observes changes in the store if supported.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.store.(Watchable)
	if !ok {
		return nil, errors.New("store does not support watching")
	}
	return w.Watch(ctx, pattern)
}
