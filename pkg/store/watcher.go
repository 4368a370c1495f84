package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports changes to the strategies directory made outside the
// editor (another process writing, deleting or renaming strategy files),
// so the host can refresh its library view.
type Watcher struct {
	fw   *fsnotify.Watcher
	done chan struct{}
}

// Watch starts watching the store's directory. fn is called with the
// strategy name for every create, write, rename or remove of a strategy
// file; calls arrive from the watcher's own goroutine.
func (s *Store) Watch(fn func(name string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: watcher: %w", err)
	}
	if err := fw.Add(s.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("store: watch %s: %w", s.dir, err)
	}

	w := &Watcher{fw: fw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				base := filepath.Base(ev.Name)
				if !strings.HasSuffix(base, ext) {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				fn(strings.TrimSuffix(base, ext))
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				s.log.Warn("strategy watcher error", zap.Error(err))
			}
		}
	}()
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
