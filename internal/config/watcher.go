package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration when the config file changes on disk,
// so operational knobs (most importantly watchdog.enabled) can be
// flipped without restarting the process.
//
// The parent directory is watched rather than the file itself: editors
// and AtomicWrite replace the file by rename, which would silently
// detach a file-level watch.
type Watcher struct {
	path     string
	onChange func(*Config)
	logger   *slog.Logger

	fsw *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given config file. onChange is
// invoked with the freshly loaded config after every observed change;
// reload failures are logged and the previous config stays in effect.
func NewWatcher(path string, onChange func(*Config), logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Start runs the watch loop until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer func() { _ = w.fsw.Close() }()

		// Debounce: editors and atomic renames produce event bursts.
		var pending *time.Timer
		fire := make(chan struct{}, 1)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if pending == nil {
					pending = time.AfterFunc(100*time.Millisecond, func() {
						select {
						case fire <- struct{}{}:
						default:
						}
					})
				} else {
					pending.Reset(100 * time.Millisecond)
				}
			case <-fire:
				pending = nil
				w.reload()
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watch error", "error", err)
			}
		}
	}()
}

func (w *Watcher) reload() {
	cfg, err := NewLoader().WithConfigFile(w.path).Load()
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config", "error", err)
		return
	}
	if err := ValidateConfig(cfg); err != nil {
		w.logger.Warn("reloaded config is invalid, keeping previous config", "error", err)
		return
	}

	w.logger.Info("config reloaded", "file", w.path)
	w.onChange(cfg)
}
