package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the configuration file for edits while a session is
// running. Unlike a typical config reloader it never re-reads into a
// live worker — edits route through the same reset-request path as a
// disallowed mid-stream change, leaving the host to tear down and
// rebuild the session with the edited file.
//
// Grounded on smazurov-videonode/internal/config's fsnotify Watcher,
// narrowed from a generic typed reload-and-notify loop to a single
// debounced notify callback.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWatcher builds a Watcher for path. onChange is invoked (debounced)
// whenever the file is written or replaced; it is expected to be the
// session's reset-request notification.
func NewWatcher(path string, onChange func(), logger *slog.Logger) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		debounce: 1500 * time.Millisecond,
		onChange: onChange,
		logger:   logger.With("component", "config.Watcher", "path", path),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins watching. The caller must call Stop to release the
// underlying fsnotify handle.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.path); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	w.logger.Info("config watcher started", "debounce", w.debounce)
	go w.watch()
	return nil
}

// Stop ends the watch loop and closes the fsnotify handle.
func (w *Watcher) Stop() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) watch() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Debug("config watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug("config file change detected", "op", event.Op.String())
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case <-timerC:
			w.logger.Info("config file changed, requesting session reset")
			timerC = nil
			if w.onChange != nil {
				w.onChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}
