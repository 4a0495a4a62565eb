// file: internal/coordinator/coordinator.go
// version: 1.1.0
// guid: b4c5d6e7-f8a9-4b0c-1d2e-f3a4b5c6d7e8

// Package coordinator funnels file events from the watcher and the
// periodic scanner into a fixed pool of workers. Events for a path
// already queued or being processed are dropped: the watcher and scanner
// both announce the same file regularly, and one pipeline run per file
// at a time is both sufficient and required for safe rewriting.
package coordinator

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
)

// ProcessFunc runs the full pipeline for one file.
type ProcessFunc func(ctx context.Context, path string) models.ProcessResult

// queueCapacity bounds pending work. A saturated queue drops new events;
// the periodic scanner re-announces every target, so dropped files are
// picked up on the next sweep.
const queueCapacity = 1024

// Coordinator owns the worker pool and the in-flight set.
type Coordinator struct {
	process  ProcessFunc
	onResult func(models.ProcessResult)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	inflight map[string]struct{}
	work     chan string
}

// New builds a coordinator running at most workers pipelines at once.
// onResult observes every finished pipeline and may be nil.
func New(process ProcessFunc, onResult func(models.ProcessResult), workers int) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		process:  process,
		onResult: onResult,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
		work:     make(chan string, queueCapacity),
	}
	c.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go c.worker()
	}
	return c
}

// Submit queues path for processing. Returns false when the event was
// coalesced away: the path is already queued or in flight, the
// coordinator is closed, or the queue is saturated.
func (c *Coordinator) Submit(path string) bool {
	key := canonical(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if _, busy := c.inflight[key]; busy {
		return false
	}
	select {
	case c.work <- key:
		c.inflight[key] = struct{}{}
		return true
	default:
		log.Printf("[WARN] work queue full, dropping %s until the next sweep", key)
		return false
	}
}

func (c *Coordinator) worker() {
	defer c.wg.Done()
	for key := range c.work {
		c.runOne(key)
	}
}

func (c *Coordinator) runOne(key string) {
	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	start := time.Now()
	result := c.process(c.ctx, key)
	result.Duration = time.Since(start)
	if result.Err != nil {
		log.Printf("[ERROR] %s: %s", key, result.Message)
	} else if !result.Success {
		log.Printf("[WARN] %s: %s", key, result.Message)
	} else {
		log.Printf("[INFO] %s: %s", key, result.Message)
	}
	if c.onResult != nil {
		c.onResult(result)
	}
}

// InFlight reports how many paths are queued or processing.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Close stops accepting submissions, cancels in-flight pipelines, and
// waits for the workers to drain the queue.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.work)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
