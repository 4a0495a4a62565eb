// file: internal/service/service.go
// version: 1.0.0
// guid: a5b6c7d8-e9f0-4a1b-2c3d-e4f5a6b7c8d9

// Package service assembles the rewrite pipeline: cache, provider
// client, processors, coordinator, watcher, scanner, and the status
// listener, with one Start/Stop pair owning their lifecycles.
package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/backup"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/cache"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/config"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/coordinator"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/mediafile"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/metrics"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/processor"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/scanner"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/selection"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/server"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/tmdb"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/watcher"
)

// Service is the assembled rewrite pipeline.
type Service struct {
	cfg   config.Config
	prefs []selection.Preference

	store    *cache.Store
	backups  *backup.Manager
	metadata *processor.MetadataProcessor
	image    *processor.ImageProcessor
	coord    *coordinator.Coordinator
	watch    *watcher.Watcher
	scan     *scanner.Scanner
	srv      *server.Server

	started time.Time
}

// New builds the pipeline from cfg. The TMDB network client is only
// exercised once files start flowing.
func New(cfg config.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prefs, skipped := selection.ParsePreferences(cfg.PreferredLanguages)
	for _, token := range skipped {
		log.Printf("[WARN] ignoring malformed language preference %q (need language-REGION, e.g. zh-CN)", token)
	}
	if len(prefs) == 0 {
		return nil, fmt.Errorf("no usable language preferences in %v", cfg.PreferredLanguages)
	}

	store, err := cache.Open(cfg.CacheDir, cfg.CacheDuration)
	if err != nil {
		return nil, err
	}
	metrics.Register()
	store.OnHit = metrics.IncCacheHit
	store.OnMiss = metrics.IncCacheMiss

	provider := tmdb.NewCached(tmdb.New(cfg.TmdbAPIKey), store)
	backups := backup.NewManager(cfg.BackupDir, cfg.RootDir)

	s := &Service{
		cfg:      cfg,
		prefs:    prefs,
		store:    store,
		backups:  backups,
		metadata: processor.NewMetadataProcessor(provider, backups, prefs),
		image:    processor.NewImageProcessor(provider, backups, prefs),
	}

	s.coord = coordinator.New(s.processFile, s.observeResult, cfg.Workers)
	s.watch = watcher.New(s.submit)
	s.scan = scanner.New(cfg.RootDir, cfg.ScanInterval, s.submit)
	s.srv = server.New(s.statusSnapshot)
	return s, nil
}

// Start launches the enabled inputs and the status listener.
func (s *Service) Start() error {
	s.started = time.Now()
	log.Printf("[INFO] starting metadata rewrite service for %s (languages: %v)", s.cfg.RootDir, s.cfg.PreferredLanguages)

	if s.cfg.EnableFileMonitor {
		if err := s.watch.Start(s.cfg.RootDir); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		log.Printf("[INFO] file monitor started")
	} else {
		log.Printf("[INFO] file monitor disabled")
	}

	if s.cfg.EnableFileScanner {
		s.scan.Start()
		log.Printf("[INFO] periodic scanner started (interval: %s)", s.cfg.ScanInterval)
	} else {
		log.Printf("[INFO] periodic scanner disabled")
	}

	if s.cfg.ListenAddr != "" {
		s.srv.Start(s.cfg.ListenAddr)
	}
	return nil
}

// Stop shuts everything down in dependency order and waits for in-flight
// pipelines to drain.
func (s *Service) Stop() {
	log.Printf("[INFO] stopping metadata rewrite service")

	if s.cfg.EnableFileMonitor {
		s.watch.Stop()
	}
	if s.cfg.EnableFileScanner {
		s.scan.Stop()
	}
	s.coord.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.srv.Stop(ctx)

	if err := s.store.Close(); err != nil {
		log.Printf("[WARN] cache close: %v", err)
	}
	log.Printf("[INFO] service stopped")
}

func (s *Service) submit(path string) {
	if !s.coord.Submit(path) {
		metrics.IncCoalesced()
	}
	metrics.SetInFlight(s.coord.InFlight())
}

// processFile routes one file to its processor.
func (s *Service) processFile(ctx context.Context, path string) models.ProcessResult {
	switch {
	case mediafile.IsNFO(path):
		return s.metadata.Process(ctx, path)
	case !s.cfg.EnableImageRewrite:
		return models.ProcessResult{FilePath: path, Success: true, Message: "image rewrite disabled; skipped"}
	default:
		return s.image.Process(ctx, path)
	}
}

func (s *Service) observeResult(res models.ProcessResult) {
	kind := fileKind(res.FilePath)
	metrics.IncProcessed(kind)
	metrics.ObserveProcessDuration(kind, res.Duration)
	if res.FileModified {
		metrics.IncRewritten(kind)
	}
	if !res.Success {
		metrics.IncFailed(kind)
	}
	if res.BackupCreated {
		metrics.IncBackupCreated()
	}
	metrics.SetInFlight(s.coord.InFlight())
}

func fileKind(path string) string {
	if mediafile.IsNFO(path) {
		return "nfo"
	}
	if info, ok := mediafile.ParseImageName(filepath.Base(path)); ok {
		return info.Kind
	}
	return "other"
}

func (s *Service) statusSnapshot() map[string]any {
	return map[string]any{
		"running":             true,
		"root_dir":            s.cfg.RootDir,
		"preferred_languages": s.cfg.PreferredLanguages,
		"file_monitor":        s.cfg.EnableFileMonitor,
		"file_scanner":        s.cfg.EnableFileScanner,
		"image_rewrite":       s.cfg.EnableImageRewrite,
		"in_flight":           s.coord.InFlight(),
		"uptime_seconds":      int(time.Since(s.started).Seconds()),
	}
}
