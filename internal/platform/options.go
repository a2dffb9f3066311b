package platform

import (
	"log/slog"
	"time"

	"github.com/geonotes98/geonotes/pkg/adapters/fs"
	"github.com/geonotes98/geonotes/pkg/core"
)

// options holds the internal configuration for a GeoNotes desk.
type options struct {
	store        core.Store
	logger       *slog.Logger
	adapter      string
	autoInit     bool
	mustExist    bool
	readOnly     bool
	forceTemp    bool
	devSafety    bool
	eventBuffer  int
	lockTimeout  time.Duration
	errorHandler func(error)
	serializers  map[core.Collection]fs.Serializer

	location *time.Location
	clock24h *bool
	theme    map[string]string
	now      func() time.Time
}

// Option defines a functional option for configuring a desk.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:     "fs",
		devSafety:   true,
		serializers: make(map[core.Collection]fs.Serializer),
		location:    time.UTC,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSerializer replaces the file format of one collection in the fs adapter.
func WithSerializer(c core.Collection, s fs.Serializer) Option {
	return func(o *options) {
		o.serializers[c] = s
	}
}

// WithAutoInit creates the desk directory and an empty snapshot when missing.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithMustExist ensures the desk directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a custom storage adapter. The named adapter is skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAdapter selects the storage adapter by name: "fs" (default) or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithEventBuffer sets the per-subscriber event channel size. Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithLockTimeout bounds how long a commit waits for the desk lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithWatcherErrorHandler registers a callback for errors of the watch loop,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithReadOnly opens the desk without write access.
// Writes return core.ErrReadOnly, nothing is created on disk and the dev
// sandbox is bypassed.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// By default (true) the desk is re-rooted under a temporary directory.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithTimezone sets the zone of the human-readable times in exported documents.
func WithTimezone(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithClock24h forces the exported clock format, overriding the desk's
// clock24h setting.
func WithClock24h(enabled bool) Option {
	return func(o *options) {
		o.clock24h = &enabled
	}
}

// WithTheme styles exported documents with theme color tokens.
func WithTheme(tokens map[string]string) Option {
	return func(o *options) {
		o.theme = tokens
	}
}

// WithClock overrides the wall clock of the desk and the exporter.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
