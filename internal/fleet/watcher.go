package fleet

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"servermanager/pkg/logging"
)

// Watcher reloads the fleet whenever a profile file changes on disk.
// Bursts of events are collapsed into a single reload.
type Watcher struct {
	fleet    *Fleet
	storage  *Storage
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher for storage's directory.
func NewWatcher(f *Fleet, s *Storage, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{fleet: f, storage: s, debounce: debounce}
}

// Start begins watching. It returns once the watch is established; events are
// processed until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return nil
	}

	if err := os.MkdirAll(w.storage.Dir(), 0755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.storage.Dir()); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	go w.loop(ctx, watcher, w.done)

	logging.Info("ProfileWatcher", "Watching %s for profile changes", w.storage.Dir())
	return nil
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	watcher, done := w.watcher, w.done
	w.watcher = nil
	w.mu.Unlock()

	if watcher == nil {
		return
	}
	_ = watcher.Close()
	<-done
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

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
			_ = watcher.Close()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isProfileFile(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			logging.Debug("ProfileWatcher", "Profile file event %s", event)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("ProfileWatcher", "Watcher error: %v", err)
		case <-fire:
			fire = nil
			if err := Reload(w.fleet, w.storage); err != nil {
				logging.Error("ProfileWatcher", err, "Failed to reload profiles")
				continue
			}
			logging.Info("ProfileWatcher", "Reloaded %d profiles", w.fleet.Len())
		}
	}
}
