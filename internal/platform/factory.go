package platform

import (
	"context"
	"io"
	"log/slog"

	"github.com/geonotes98/geonotes/pkg/capsule"
	"github.com/geonotes98/geonotes/pkg/core"
)

// App is a wired desk: the store, the desk operations and the capsule flows
// over the same store.
type App struct {
	Store  core.Store
	Desk   *core.Service
	Logger *slog.Logger

	opts *options
}

// New opens the desk at uri and wires its services.
//
//	app, err := geonotes.New("./desk", geonotes.WithAutoInit(true))
func New(uri string, opts ...Option) (*App, error) {
	o := applyOptions(opts)
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := initStore(context.Background(), uri, o)
	if err != nil {
		return nil, err
	}

	serviceOpts := []core.ServiceOption{core.WithServiceLogger(o.logger)}
	if o.now != nil {
		serviceOpts = append(serviceOpts, core.WithClock(o.now))
	}

	return &App{
		Store:  store,
		Desk:   core.NewService(store, serviceOpts...),
		Logger: o.logger,
		opts:   o,
	}, nil
}

// Capsule returns the export/import service. Exported times follow the desk's
// clock24h setting unless WithClock24h was given.
func (a *App) Capsule(ctx context.Context) (*capsule.Service, error) {
	clock24h := false
	if a.opts.clock24h != nil {
		clock24h = *a.opts.clock24h
	} else {
		settings, err := a.Desk.DesktopSettings(ctx)
		if err != nil {
			return nil, err
		}
		clock24h = settings.Clock24h
	}

	codec := capsule.NewCodec(
		capsule.WithLocation(a.opts.location),
		capsule.WithClock24h(clock24h),
		capsule.WithTheme(a.opts.theme),
	)

	var builderOpts []capsule.BuilderOption
	if a.opts.now != nil {
		builderOpts = append(builderOpts, capsule.WithBuilderClock(a.opts.now))
	}
	return capsule.NewService(a.Store, codec, a.Logger, builderOpts...), nil
}
