package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"academic_advisor/internal/models"
)

// ReloadFunc receives the outcome of every directory reload.
type ReloadFunc func(warnings map[string][]models.Diagnostic, err error)

// Watcher reloads a Registry whenever catalog files in a directory change.
type Watcher struct {
	dir      string
	registry *Registry
	onReload ReloadFunc
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher prepares a watcher for dir. onReload may be nil.
func NewWatcher(dir string, registry *Registry, onReload ReloadFunc) *Watcher {
	return &Watcher{
		dir:      dir,
		registry: registry,
		onReload: onReload,
		debounce: 250 * time.Millisecond,
	}
}

// Start begins watching. It returns once the watch is registered; events
// are handled in the background until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch catalog dir %s: %w", w.dir, err)
	}
	w.watcher = fw
	w.done = make(chan struct{})
	go w.run(ctx, fw, w.done)
	return nil
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fw, done := w.watcher, w.done
	w.watcher = nil
	w.mu.Unlock()

	if fw == nil {
		return
	}
	_ = fw.Close()
	<-done
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			// Debounce bursts of writes from editors and copies
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if w.onReload != nil {
				w.onReload(nil, err)
			}
		}
	}
}

func (w *Watcher) reload() {
	warnings, err := w.registry.LoadDir(w.dir)
	if w.onReload != nil {
		w.onReload(warnings, err)
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	_, err := FormatFromPath(ev.Name)
	return err == nil
}
