package lorebook

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// reloadDebounce coalesces bursts of filesystem events (editors typically
// emit several per save) into a single reload.
const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the library when files in the lorebook directory change.
type Watcher struct {
	library  *Library
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a Watcher over the library's directory.
func NewWatcher(library *Library) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		library:  library,
		watcher:  fsWatcher,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching. A directory that cannot be watched logs a warning
// and disables hot reload; the initial load result stays in effect.
func (w *Watcher) Start() {
	if err := w.watcher.Add(w.library.dir); err != nil {
		logrus.WithError(err).Warnf("Cannot watch lorebook directory %q, hot reload disabled", w.library.dir)
		return
	}

	w.wg.Add(1)
	go w.run()
	logrus.Debugf("Watching lorebook directory %q", w.library.dir)
}

func (w *Watcher) run() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}
		case <-timerC:
			logrus.Info("Lorebook directory changed, reloading")
			w.library.Reload()
			timer = nil
			timerC = nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("Lorebook watcher error")
		case <-w.stopChan:
			return
		}
	}
}

// Stop terminates the watcher.
func (w *Watcher) Stop(ctx context.Context) {
	close(w.stopChan)
	w.watcher.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logrus.Warn("Lorebook watcher stop timed out")
	}
}
