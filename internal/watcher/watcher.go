// file: internal/watcher/watcher.go
// version: 2.0.0
// guid: d6e7f8a9-b0c1-4d2e-3f4a-b5c6d7e8f9a0

// Package watcher monitors the library tree for metadata and artwork
// changes and reports each affected file. Coalescing of bursts is the
// coordinator's job; the watcher only filters and forwards.
package watcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/mediafile"
)

// Callback is invoked once per changed target file.
type Callback func(path string)

// Watcher monitors a directory tree for .nfo and rewritable image
// changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	rootDir   string
	callback  Callback
	stop      chan struct{}
	stopped   chan struct{}
	mu        sync.Mutex
	running   bool
}

// New creates a Watcher delivering changed file paths to callback.
func New(callback Callback) *Watcher {
	return &Watcher{
		callback: callback,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins watching rootDir recursively. It is safe to call only once.
// After a failed Start the watcher is back in its initial state and Stop
// is a no-op.
func (w *Watcher) Start(rootDir string) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.init(rootDir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}

	go w.eventLoop()
	return nil
}

func (w *Watcher) init(rootDir string) error {
	if _, err := os.Stat(rootDir); err != nil {
		return fmt.Errorf("watch root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsWatcher = fsw
	w.rootDir = rootDir

	if err := w.addRecursive(rootDir, false); err != nil {
		fsw.Close()
		w.fsWatcher = nil
		return err
	}
	return nil
}

// Stop gracefully shuts down the watcher and waits for the event loop to
// exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	<-w.stopped
}

// addRecursive watches every directory under root. When announce is set,
// target files already present are forwarded too: a directory can be
// populated before its watch attaches.
func (w *Watcher) addRecursive(root string, announce bool) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if d.IsDir() {
			if watchErr := w.fsWatcher.Add(path); watchErr != nil {
				log.Printf("[WARN] watcher: cannot watch %s: %v", path, watchErr)
			}
			return nil
		}
		if announce && mediafile.IsTarget(path) {
			w.callback(path)
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[ERROR] watcher: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name, true)
			return
		}
	}

	relevant := event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) != 0
	if !relevant {
		return
	}
	if !mediafile.IsTarget(event.Name) {
		return
	}

	w.callback(event.Name)
}
