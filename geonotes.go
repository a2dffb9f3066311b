package geonotes

import (
	"log/slog"
	"time"

	"github.com/geonotes98/geonotes/internal/platform"
	"github.com/geonotes98/geonotes/pkg/adapters/fs"
	"github.com/geonotes98/geonotes/pkg/core"
)

// --- Types ---

// App is a wired desk: store, desk operations and capsule flows.
type App = platform.App

// --- Configuration ---

// Option defines a functional option for configuring a desk.
type Option = platform.Option

// WithAutoInit creates the desk directory and an empty snapshot when missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the desk directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore allows injecting a custom storage adapter.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithAdapter selects the storage adapter by name ("fs" or "memory").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithSerializer replaces the file format of one collection in the fs adapter.
func WithSerializer(c core.Collection, s fs.Serializer) Option {
	return platform.WithSerializer(c, s)
}

// WithEventBuffer sets the size of each watcher's event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithLockTimeout bounds how long a commit waits for the desk lock.
func WithLockTimeout(d time.Duration) Option {
	return platform.WithLockTimeout(d)
}

// WithWatcherErrorHandler registers a callback for watch loop errors.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithReadOnly opens the desk without write access.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the temp-dir sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithTimezone sets the zone of human-readable times in exported documents.
func WithTimezone(loc *time.Location) Option {
	return platform.WithTimezone(loc)
}

// WithClock24h forces the exported clock format.
func WithClock24h(enabled bool) Option {
	return platform.WithClock24h(enabled)
}

// WithTheme styles exported documents with theme color tokens.
func WithTheme(tokens map[string]string) Option {
	return platform.WithTheme(tokens)
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// --- Factory ---

// New opens the desk at path and wires its services.
func New(path string, opts ...Option) (*App, error) {
	return platform.New(path, opts...)
}

// Init opens and initializes only the store.
func Init(path string, opts ...Option) (core.Store, error) {
	return platform.Init(path, opts...)
}

// --- Safety & Utils ---

// ResolveDeskPath determines the actual desk directory based on safety rules.
func ResolveDeskPath(userPath string, forceTemp bool) string {
	return platform.ResolveDeskPath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindDeskRoot looks upwards for a desk directory.
func FindDeskRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
