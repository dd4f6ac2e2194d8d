package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads the configuration whenever one of paths is written and hands
// the result to onChange. The parent directories are watched so editors that
// replace the file are seen too. It returns once the watcher is running and
// stops when ctx is done.
func Watch(ctx context.Context, load func() (Config, error), onChange func(Config), paths ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}

	names := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		names[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("config: watch %s: %w", dir, err)
		}
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		c, err := load()
		if err != nil {
			logging.Warnf("[config] reload failed: %v", err)
			return
		}
		logging.Info("[config] configuration reloaded")
		onChange(c)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				mu.Unlock()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !names[filepath.Clean(event.Name)] {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, reload)
				mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warnf("[config] watcher error: %v", err)
			}
		}
	}()
	return nil
}
