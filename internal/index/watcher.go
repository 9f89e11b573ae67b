package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/laguz/internal/checksum"
)

// Watch starts an fsnotify watcher on the directory holding the lore file
// and processes change events until ctx is cancelled. When the file is
// replaced by another writer, onExternal receives the new bytes so the
// caller can refresh its in-memory snapshot and resync the index.
//
// isOwnWrite filters echoes of this process's own atomic writes: it gets
// the checksum of the file content and returns true when we produced it.
// Reload is debounced because an external save can surface as several
// events (create of the temp file, rename, chmod).
func Watch(ctx context.Context, lorePath string, logger *slog.Logger, isOwnWrite func(sum string) bool, onExternal func(data []byte)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(lorePath)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", lorePath))

	// reloadTimer debounces bursts of events into one reload pass.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			data, readErr := os.ReadFile(lorePath)
			if readErr != nil {
				logger.Warn("watcher: read failed", slog.String("error", readErr.Error()))
				continue
			}
			if isOwnWrite(checksum.Sum(data)) {
				logger.Debug("watcher: own write, skipping")
				continue
			}
			logger.Info("watcher: lore file changed externally, reloading")
			onExternal(data)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Only the lore file itself matters; the atomic-replace dance
			// of external tools shows up as Create/Write/Rename on it.
			if filepath.Clean(ev.Name) != filepath.Clean(lorePath) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
