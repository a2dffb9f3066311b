// Package server exposes a desk over HTTP. Export is served as a browser
// download of the time-capsule document; import accepts the document as the
// raw request body or as the "file" field of a multipart form.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/aretw0/introspection"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/geonotes98/geonotes/internal/platform"
	"github.com/geonotes98/geonotes/pkg/capsule"
	"github.com/geonotes98/geonotes/pkg/core"
	"github.com/geonotes98/geonotes/pkg/delivery"
)

// DefaultMaxUpload bounds an imported document when no limit is configured.
const DefaultMaxUpload = 10 << 20

// Server routes the desk API.
type Server struct {
	app       *platform.App
	router    *mux.Router
	logger    *slog.Logger
	validate  *validator.Validate
	maxUpload int64
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUpload bounds the size of an imported document.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// New builds the router over app.
func New(app *platform.App, opts ...Option) *Server {
	s := &Server{
		app:       app,
		router:    mux.NewRouter(),
		logger:    app.Logger,
		validate:  validator.New(),
		maxUpload: DefaultMaxUpload,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(loggerMiddleware(s.logger))

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/export", s.handleExport).Methods("GET")
	api.HandleFunc("/import", s.handleImport).Methods("POST")

	api.HandleFunc("/notes", s.handleListNotes).Methods("GET")
	api.HandleFunc("/notes", s.handleCreateNote).Methods("POST")
	api.HandleFunc("/notes/{id}", s.handleDeleteNote).Methods("DELETE")
	api.HandleFunc("/echo", s.handleEchoSweep).Methods("POST")

	api.HandleFunc("/stickers", s.handleListStickers).Methods("GET")
	api.HandleFunc("/stickers", s.handleAddSticker).Methods("POST")
	api.HandleFunc("/stickers/{id}", s.handleRemoveSticker).Methods("DELETE")

	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods("PUT")

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving desk", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// --- Capsule ---

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	svc, err := s.app.Capsule(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	doc, filename, _, err := svc.Render(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if _, err := delivery.NewDownloadDelivery(w).DeliverText(r.Context(), doc, filename); err != nil {
		s.logger.Error("export download failed", "error", err)
	}
}

type importResult struct {
	CreatedAt int64   `json:"createdAt"`
	Notes     int     `json:"notes"`
	Stickers  int     `json:"stickers"`
	ThemeID   *string `json:"themeId"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			// A form without the field is a dismissed picker.
			src = nil
		} else {
			defer file.Close()
			src = file
		}
	}

	svc, err := s.app.Capsule(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	b, err := svc.Import(r.Context(), delivery.NewStreamAcquirer(src, s.maxUpload))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResult{
		CreatedAt: b.CreatedAt,
		Notes:     len(b.Notes),
		Stickers:  len(b.Stickers),
		ThemeID:   b.ThemeID,
	})
}

// --- Notes ---

type createNoteRequest struct {
	Title string `json:"title" validate:"max=200"`
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.app.Desk.ListNotes(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	note, err := s.app.Desk.CreateNote(r.Context(), req.Title)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Desk.DeleteNote(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleEchoSweep(w http.ResponseWriter, r *http.Request) {
	created, err := s.app.Desk.RunEchoSweep(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

// --- Stickers ---

type addStickerRequest struct {
	Asset string `json:"asset" validate:"required"`
}

func (s *Server) handleListStickers(w http.ResponseWriter, r *http.Request) {
	stickers, err := s.app.Desk.ListStickers(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stickers)
}

func (s *Server) handleAddSticker(w http.ResponseWriter, r *http.Request) {
	var req addStickerRequest
	if !s.decode(w, r, &req) {
		return
	}
	sticker, err := s.app.Desk.AddSticker(r.Context(), req.Asset)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sticker)
}

func (s *Server) handleRemoveSticker(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Desk.RemoveSticker(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// --- Settings ---

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.app.Desk.DesktopSettings(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	if !s.decode(w, r, &patch) {
		return
	}
	if err := s.app.Desk.UpdateSettings(r.Context(), patch); err != nil {
		s.fail(w, err)
		return
	}
	s.handleGetSettings(w, r)
}

// --- Status ---

type componentStatus struct {
	Type  string `json:"type"`
	State any    `json:"state"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]componentStatus{}
	for name, c := range map[string]any{"store": s.app.Store, "desk": s.app.Desk} {
		entry := componentStatus{}
		if comp, ok := c.(introspection.Component); ok {
			entry.Type = comp.ComponentType()
		}
		if intro, ok := c.(introspection.Introspectable); ok {
			entry.State = intro.State()
		}
		status[name] = entry
	}
	writeJSON(w, http.StatusOK, status)
}

// --- Helpers ---

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// fail maps domain errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capsule.ErrPayloadNotFound),
		errors.Is(err, capsule.ErrPayloadMalformed),
		errors.Is(err, capsule.ErrPayloadInvalid),
		errors.Is(err, delivery.ErrNoFileSelected),
		errors.Is(err, delivery.ErrReadFailed),
		errors.Is(err, core.ErrInvalidRecord),
		errors.Is(err, core.ErrKeyExists),
		errors.Is(err, core.ErrEmptyKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrReadOnly):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
