package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads path whenever it or one of its includes changes, until ctx
// is done. onChange runs on the watcher goroutine with the new result or the
// load error. Directories are watched rather than files so that editors
// replacing the file by rename are seen.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func(*LoadResult, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer w.Close()

	watched := map[string]bool{}
	files := map[string]bool{}
	track := func(paths []string) {
		for _, p := range paths {
			p = filepath.Clean(p)
			files[p] = true
			dir := filepath.Dir(p)
			if watched[dir] {
				continue
			}
			if err := w.Add(dir); err != nil {
				logger.Debug("watch config dir", "dir", dir, "error", err)
				continue
			}
			watched[dir] = true
		}
	}
	track([]string{path, canonicalPath(path)})
	if res, err := LoadFromPath(path); err == nil {
		track(res.Files)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(ev.Name)] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				continue
			}
			logger.Debug("config change detected", "op", ev.Op.String(), "file", ev.Name)
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		case <-fire:
			fire = nil
			res, err := LoadFromPath(path)
			if err == nil {
				track(res.Files)
			}
			onChange(res, err)
		}
	}
}
