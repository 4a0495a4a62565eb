// file: internal/scanner/scanner.go
// version: 2.0.0
// guid: f8a9b0c1-d2e3-4f4a-5b6c-d7e8f9a0b1c2

// Package scanner periodically sweeps the library tree and reports every
// target file, catching anything the realtime watcher missed (events
// dropped under load, files changed while the service was down).
package scanner

import (
	"log"
	"sync"
	"time"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/mediafile"
)

// Callback is invoked once per discovered target file.
type Callback func(path string)

// Scanner walks the library tree on a fixed interval.
type Scanner struct {
	rootDir  string
	interval time.Duration
	callback Callback

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Scanner sweeping rootDir every interval.
func New(rootDir string, interval time.Duration, callback Callback) *Scanner {
	return &Scanner{
		rootDir:  rootDir,
		interval: interval,
		callback: callback,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
func (s *Scanner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.loop()
}

// Stop halts the loop and waits for an in-progress sweep to finish.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stop)
	<-s.stopped
}

func (s *Scanner) loop() {
	defer close(s.stopped)

	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Scanner) sweep() {
	targets := mediafile.FindTargets(s.rootDir)
	log.Printf("[INFO] scanner: sweep of %s found %d target files", s.rootDir, len(targets))
	for _, path := range targets {
		select {
		case <-s.stop:
			return
		default:
		}
		s.callback(path)
	}
}
