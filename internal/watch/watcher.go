// Package watch notifies the dashboard when credential or config files
// change on disk, so a re-login or config edit shows up without waiting for
// the next poll.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"quotamon/internal/logging"
)

// Event reports that a watched file changed.
type Event struct {
	Path string
}

// Watcher watches a fixed set of files via their parent directories.
// fsnotify loses the watch if the file itself is replaced (editors and
// Claude Code both write-then-rename), so directories are watched and
// events are filtered by basename.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	targets  map[string]struct{} // absolute file paths
	dirs     map[string]struct{}
	events   chan Event
	debounce map[string]time.Time
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// New creates a watcher for the given files. The files need not exist yet;
// their directories must.
func New(paths ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		targets:  make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		events:   make(chan Event, 8),
		debounce: make(map[string]time.Time),
		interval: 500 * time.Millisecond, // Debounce rapid saves
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.targets[abs] = struct{}{}
		w.dirs[filepath.Dir(abs)] = struct{}{}
	}
	return w, nil
}

// Events returns the change notification channel.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching. Non-blocking; the watch loop runs in a goroutine
// until Stop or ctx cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	log := logging.Get(logging.CategoryWatch)
	for dir := range w.dirs {
		if err := w.fsw.Add(dir); err != nil {
			// Directory may not exist (e.g. no ~/.claude). Keep going with
			// whatever can be watched.
			log.Warn("cannot watch %s: %v", dir, err)
			continue
		}
		log.Info("watching %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	log := logging.Get(logging.CategoryWatch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if w.debounced(ev.Name) {
				continue
			}
			log.Info("change detected: %s (%s)", ev.Name, ev.Op)
			select {
			case w.events <- Event{Path: ev.Name}:
			default:
				// Consumer is behind; dropping is fine, any event just
				// means "refresh soon".
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	_, ok := w.targets[abs]
	return ok
}

func (w *Watcher) debounced(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	if last, ok := w.debounce[path]; ok && now.Sub(last) < w.interval {
		return true
	}
	w.debounce[path] = now
	return false
}
