// ABOUTME: Filesystem watcher that reloads credentials written by other kitchat processes
// ABOUTME: Debounces SQLite file and WAL writes before re-reading the settings record

package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce absorbs the burst of WAL and shm writes a single save causes.
const reloadDebounce = 250 * time.Millisecond

// Watch follows the directory holding the SQLite file at dbPath and reloads
// s whenever that file or its -wal/-shm companions change. It runs until ctx
// is cancelled. Saves made by this process trigger a reload too; Reload only
// publishes when the pair actually differs.
func Watch(ctx context.Context, dbPath string, s *Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "credentials.watch")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(dbPath)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	base := filepath.Base(dbPath)

	logger.Debug("watcher started", "dir", dir)

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Debug("watcher stopped")
			return nil

		case <-reloadCh:
			changed, err := s.Reload(ctx)
			if err != nil {
				logger.Warn("reload failed", "error", err)
				continue
			}
			if changed {
				logger.Info("credentials changed on disk")
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", watchErr)
		}
	}
}
