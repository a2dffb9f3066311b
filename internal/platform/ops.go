package platform

import (
	"context"
	"fmt"

	"github.com/geonotes98/geonotes/pkg/adapters/fs"
	"github.com/geonotes98/geonotes/pkg/adapters/memory"
	"github.com/geonotes98/geonotes/pkg/core"
)

// Init opens the desk store selected by the options and initializes it.
// The 'uri' argument is adapter-specific (a directory for 'fs', ignored by 'memory').
func Init(uri string, opts ...Option) (core.Store, error) {
	return initStore(context.Background(), uri, applyOptions(opts))
}

func initStore(ctx context.Context, uri string, o *options) (core.Store, error) {
	if o.store != nil {
		return o.store, nil
	}

	var store core.Store
	switch o.adapter {
	case "fs", "":
		store = initFS(uri, o)
	case "memory":
		store = memory.New(memory.Config{
			Logger:      o.logger,
			ReadOnly:    o.readOnly,
			EventBuffer: o.eventBuffer,
		})
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}

	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// initFS resolves the desk directory and builds the filesystem store.
func initFS(path string, o *options) *fs.Store {
	// Read-only access cannot damage anything, so it skips the sandbox.
	bypassSafety := o.readOnly || !o.devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypassSafety)
	resolved := ResolveDeskPath(path, useTemp)

	if o.logger != nil && useTemp && resolved != path {
		o.logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", path, "resolved_path", resolved)
	}

	return fs.NewStore(fs.Config{
		Path:         resolved,
		AutoInit:     o.autoInit,
		MustExist:    o.mustExist,
		ReadOnly:     o.readOnly,
		Logger:       o.logger,
		LockTimeout:  o.lockTimeout,
		EventBuffer:  o.eventBuffer,
		ErrorHandler: o.errorHandler,
		Serializers:  o.serializers,
	})
}
