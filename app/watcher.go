package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kilianp07/nightplan/infra/logger"
)

// targetWatcher reports changes of one file. The parent directory is
// watched so that editors replacing the file by rename are seen.
type targetWatcher struct {
	path     string
	debounce time.Duration
	w        *fsnotify.Watcher
	log      logger.Logger
}

func newTargetWatcher(path string, debounce time.Duration, log logger.Logger) (*targetWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &targetWatcher{path: abs, debounce: debounce, w: w, log: log}, nil
}

// run calls changed once per burst of events on the file until ctx ends.
func (t *targetWatcher) run(ctx context.Context, changed func()) {
	defer t.w.Close()
	timer := time.NewTimer(t.debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev, ok := <-t.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != t.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(t.debounce)
		case err, ok := <-t.w.Errors:
			if !ok {
				return
			}
			t.log.Errorf("watch %s: %v", t.path, err)
		case <-timer.C:
			t.log.Infof("target list %s changed", t.path)
			changed()
		}
	}
}
