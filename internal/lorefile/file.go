// Package lorefile handles durable persistence of the lore document:
// crash-safe atomic writes, first-use initialization, and save coalescing.
package lorefile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/laguz/internal/models"
)

// DefaultName is the fixed filename of the lore document at a project root.
const DefaultName = "lore.json"

// Marshal serializes a document to its canonical persisted form.
func Marshal(doc *models.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("lorefile: marshal: %w", err)
	}
	return append(data, '\n'), nil
}

// Writer performs crash-safe replacement writes of the lore document.
type Writer struct {
	logger *slog.Logger

	// syncFile flushes the temp file before rename; replaceable for
	// fault-injection tests.
	syncFile func(*os.File) error
}

// NewWriter creates a Writer. logger may be nil.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		logger:   logger,
		syncFile: (*os.File).Sync,
	}
}

// Write atomically replaces path with data: temp file in the same
// directory → fsync → close → rename. Until the rename, the destination
// still holds its previous valid snapshot; an error anywhere before the
// rename leaves it untouched.
func (w *Writer) Write(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".laguz-*.tmp")
	if err != nil {
		return fmt.Errorf("lorefile: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("lorefile: write temp: %w", err)
	}
	if err := w.syncFile(tmp); err != nil {
		return fmt.Errorf("lorefile: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("lorefile: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("lorefile: rename: %w", err)
	}
	success = true

	w.syncDir(dir)
	return nil
}

// WriteDocument marshals and atomically writes doc to path.
func (w *Writer) WriteDocument(path string, doc *models.Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	return w.Write(path, data)
}

// syncDir flushes directory metadata so the rename survives a crash.
// Best-effort: failure is logged, never surfaced, since the read path does
// not depend on it.
func (w *Writer) syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		w.logger.Debug("lorefile: open dir for sync failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	if err := d.Sync(); err != nil {
		w.logger.Debug("lorefile: dir sync failed", slog.String("dir", dir), slog.String("error", err.Error()))
	}
	_ = d.Close()
}

// Read returns the raw bytes of the lore file at path.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lorefile: read %s: %w", path, err)
	}
	return data, nil
}
