package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch observes the config file and invokes fn with the freshly loaded
// config whenever it changes on disk. It watches the parent directory so
// atomic rename-into-place saves are picked up. Watch blocks until ctx is
// cancelled.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			cfg, err := s.Load()
			if err != nil {
				logger.Warn("config changed on disk but failed to load", "path", s.path, "error", err)
				continue
			}
			logger.Debug("config reloaded", "path", s.path)
			fn(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
