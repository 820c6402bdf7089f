package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/arbor/internal/logging"
)

// DefaultDebounce groups bursts of filesystem events (editors often write twice).
const DefaultDebounce = 200 * time.Millisecond

// Watch reports the key of every tree file that changes under BasePath until ctx
// is done. Rapid successive events for the same key are reported once.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure tree directory: %w", err)
	}
	return watchDir(ctx, s.BasePath, DefaultDebounce, s.keyOf, s.logger)
}

// WatchFile reports changes of a single file until ctx is done.
// The parent directory is watched so that editors replacing the file via rename are
// still observed.
func WatchFile(ctx context.Context, path string, logger *slog.Logger) (<-chan string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	base := filepath.Base(abs)
	match := func(name string) (string, bool) {
		return abs, name == base
	}
	return watchDir(ctx, filepath.Dir(abs), DefaultDebounce, match, logger)
}

func watchDir(ctx context.Context, dir string, debounce time.Duration, match func(name string) (string, bool), logger *slog.Logger) (<-chan string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer w.Close()

		pending := make(map[string]bool)
		timer := time.NewTimer(debounce)
		timer.Stop()
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return

			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				key, ok := match(filepath.Base(event.Name))
				if !ok {
					continue
				}
				logger.Debug("File changed", "file", event.Name, "op", event.Op.String())
				pending[key] = true
				timer.Reset(debounce)
				fire = timer.C

			case <-fire:
				fire = nil
				keys := make([]string, 0, len(pending))
				for k := range pending {
					keys = append(keys, k)
				}
				clear(pending)
				slices.Sort(keys)
				for _, k := range keys {
					select {
					case out <- k:
					case <-ctx.Done():
						return
					}
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("File watcher error", "err", err)
			}
		}
	}()
	return out, nil
}
