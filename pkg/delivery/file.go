package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/geonotes98/geonotes/internal/atomicfile"
)

// Chooser stands in for the save and open dialogs. An empty path with a nil
// error means the user cancelled.
type Chooser interface {
	ChooseSave(ctx context.Context, suggestedName string) (string, error)
	ChooseOpen(ctx context.Context) (string, error)
}

// FixedPath is a Chooser that always answers with the same path. When the
// path is an existing directory, saves go to the suggested name inside it.
type FixedPath string

func (p FixedPath) ChooseSave(ctx context.Context, suggestedName string) (string, error) {
	path := string(p)
	if path == "" {
		return "", nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, suggestedName), nil
	}
	return path, nil
}

func (p FixedPath) ChooseOpen(ctx context.Context) (string, error) {
	return string(p), nil
}

// FileDelivery saves and opens documents on the local filesystem.
type FileDelivery struct {
	chooser Chooser
	logger  *slog.Logger
}

// NewFileDelivery creates a FileDelivery prompting through chooser.
func NewFileDelivery(chooser Chooser, logger *slog.Logger) *FileDelivery {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileDelivery{chooser: chooser, logger: logger}
}

// DeliverText writes content to the chosen path. The write is atomic: a
// failure never leaves a partial destination behind.
func (d *FileDelivery) DeliverText(ctx context.Context, content, suggestedName string) (Outcome, error) {
	path, err := d.chooser.ChooseSave(ctx, suggestedName)
	if err != nil {
		return OutcomeCancelled, err
	}
	if path == "" {
		d.logger.Debug("export cancelled")
		return OutcomeCancelled, nil
	}

	err = atomicfile.Write(path, 0644, func(w io.Writer) error {
		_, err := io.WriteString(w, content)
		return err
	})
	if err != nil {
		return OutcomeCancelled, fmt.Errorf("failed to save export: %w", err)
	}
	d.logger.Info("export saved", "path", path, "bytes", len(content))
	return OutcomeDelivered, nil
}

// AcquireText reads the whole chosen file.
func (d *FileDelivery) AcquireText(ctx context.Context) (string, error) {
	path, err := d.chooser.ChooseOpen(ctx)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrNoFileSelected
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return string(data), nil
}

var _ Deliverer = (*FileDelivery)(nil)
var _ Acquirer = (*FileDelivery)(nil)
