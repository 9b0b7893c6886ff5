package session

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"petshop/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Manager when another process rewrites the shared store
// file, so a login or logout in one terminal reaches every other one.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	manager     *Manager
	dir         string
	base        string
	dirty       bool
	lastEvent   time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	reloads     int
}

// NewWatcher watches dbPath (and its journal/WAL siblings) for m.
func NewWatcher(dbPath string, m *Manager) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     w,
		manager:     m,
		dir:         filepath.Dir(dbPath),
		base:        filepath.Base(dbPath),
		debounceDur: 100 * time.Millisecond, // sqlite touches several files per commit
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Session("Watcher: watching %s in %s", w.base, w.dir)

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

	if err := w.watcher.Close(); err != nil {
		logging.SessionWarn("Watcher: error closing: %v", err)
	}
}

// Reloads returns how many times a change was picked up.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounceDur / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.SessionWarn("Watcher error: %v", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasPrefix(filepath.Base(event.Name), w.base) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.dirty = true
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

// flush reloads once the file has been quiet for debounceDur.
func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.dirty || time.Since(w.lastEvent) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.dirty = false
	w.mu.Unlock()

	changed, err := w.manager.Reload()
	if err != nil {
		logging.SessionWarn("Watcher: reload failed: %v", err)
		return
	}
	if changed {
		w.mu.Lock()
		w.reloads++
		w.mu.Unlock()
		logging.Session("Watcher: session changed by another process")
	}
}
