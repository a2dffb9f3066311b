package capsule

import (
	"context"
	"io"
	"log/slog"

	"github.com/geonotes98/geonotes/pkg/core"
	"github.com/geonotes98/geonotes/pkg/delivery"
)

// Service runs the two capsule flows:
// export is Builder, then Codec encode, then delivery;
// import is acquisition, then Codec decode, then Importer.
type Service struct {
	builder  *Builder
	codec    *Codec
	importer *Importer
	logger   *slog.Logger
}

// NewService wires a Service over store.
func NewService(store core.Store, codec *Codec, logger *slog.Logger, opts ...BuilderOption) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if codec == nil {
		codec = NewCodec()
	}
	return &Service{
		builder:  NewBuilder(store, opts...),
		codec:    codec,
		importer: NewImporter(store, logger),
		logger:   logger,
	}
}

// Render snapshots the desk and returns the document with its suggested name.
func (s *Service) Render(ctx context.Context) (doc, filename string, b Bundle, err error) {
	b, err = s.builder.CreateBundle(ctx)
	if err != nil {
		return "", "", Bundle{}, err
	}
	doc, err = s.codec.Encode(b)
	if err != nil {
		return "", "", Bundle{}, err
	}
	return doc, SuggestedFilename(b), b, nil
}

// Export renders the desk and hands it to d. A cancelled delivery is not an error.
func (s *Service) Export(ctx context.Context, d delivery.Deliverer) (delivery.Outcome, Bundle, error) {
	doc, filename, b, err := s.Render(ctx)
	if err != nil {
		return delivery.OutcomeCancelled, Bundle{}, err
	}

	outcome, err := d.DeliverText(ctx, doc, filename)
	if err != nil {
		return outcome, b, err
	}
	s.logger.Info("export finished", "outcome", outcome.String(), "file", filename,
		"notes", len(b.Notes), "stickers", len(b.Stickers))
	return outcome, b, nil
}

// ImportDocument decodes doc and, only if it is a valid capsule, replaces
// the desk with it.
func (s *Service) ImportDocument(ctx context.Context, doc string) (Bundle, error) {
	b, err := s.codec.Decode(doc)
	if err != nil {
		return Bundle{}, err
	}
	if err := s.importer.ImportBundle(ctx, b); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// Import reads a document from a and imports it.
func (s *Service) Import(ctx context.Context, a delivery.Acquirer) (Bundle, error) {
	doc, err := a.AcquireText(ctx)
	if err != nil {
		return Bundle{}, err
	}
	return s.ImportDocument(ctx, doc)
}
