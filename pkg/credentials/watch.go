package credentials

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reports server keys whose credential file changed on disk. The
// returned channel is closed when ctx is cancelled. Environment-provided
// credentials are not watched; only files in the config directory are.
func (m *Manager) Watch(ctx context.Context, logger *zap.Logger) (<-chan string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := watcher.Add(m.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", m.dir, err)
	}

	keys := make(chan string)

	go func() {
		defer close(keys)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				key, ok := keyForFileName(filepath.Base(event.Name))
				if !ok {
					continue
				}
				logger.Debug("credential file changed",
					zap.String("key", key),
					zap.String("op", event.Op.String()),
				)
				select {
				case keys <- key:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("credential watcher error", zap.Error(err))
			}
		}
	}()

	return keys, nil
}
