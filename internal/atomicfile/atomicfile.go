// Package atomicfile writes files so that readers observe either the old
// content or the complete new content, never a partial write.
package atomicfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// TempFilePrefix marks in-flight writes. Stray files with this prefix are
// leftovers of an interrupted process and safe to delete.
const TempFilePrefix = ".geonotes-tmp-"

// WriteFile replaces filename with data.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	return Write(filename, perm, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	})
}

// Write streams the new content of filename through fill. The target is
// replaced only if fill and the flush to disk both succeed; otherwise the
// temp file is removed and filename is untouched. After the rename the
// parent directory is synced so the new name survives a crash.
func Write(filename string, perm os.FileMode, fill func(w io.Writer) error) error {
	dir := filepath.Dir(filename)

	// rename is only atomic within one directory.
	tmp, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := fill(tmp); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filename), err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	committed = true

	return syncDir(dir)
}

func syncDir(dir string) error {
	// Directories cannot be opened for sync on Windows.
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("failed to sync %s: %w", dir, err)
	}
	return nil
}
