// file: internal/processor/processor.go
// version: 1.0.0
// guid: c9d0e1f2-a3b4-4c5d-6e7f-a8b9c0d1e2f3

// Package processor holds the per-file processing units: one for .nfo
// metadata files, one for poster/clearlogo images. Each takes a file
// path and runs the full resolve-select-rewrite pipeline, returning a
// ProcessResult describing what happened.
package processor

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/retry"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/selection"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/tmdb"
)

// Provider is the slice of the TMDB client the processors use. The
// cached decorator satisfies it in production; tests substitute stubs.
type Provider interface {
	Translations(ctx context.Context, ids models.TmdbIDs) (map[string]models.TranslatedContent, error)
	Images(ctx context.Context, ids models.TmdbIDs, kind string) ([]models.ImageCandidate, error)
	FindByExternalIDs(ctx context.Context, ext models.ExternalIDs) (int, error)
	SeriesOriginalDetails(ctx context.Context, ids models.TmdbIDs) (tmdb.OriginalDetails, error)
	DownloadImage(ctx context.Context, filePath string) ([]byte, error)
}

// Default retry budgets. NFO parsing retries longer because Sonarr may
// still be writing the file when the event arrives; the tvshow.nfo
// sibling of a fresh image can lag by a few seconds.
var (
	DefaultParseRetry   = retry.Policy{MaxElapsed: 10 * time.Second, Interval: 500 * time.Millisecond}
	DefaultSiblingRetry = retry.Policy{MaxElapsed: 5 * time.Second, Interval: time.Second}
)

func preferredList(prefs []selection.Preference) string {
	raw := make([]string, len(prefs))
	for i, p := range prefs {
		raw[i] = p.Raw
	}
	return strings.Join(raw, ", ")
}

func availableList(translations map[string]models.TranslatedContent) string {
	if len(translations) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(translations))
	for k := range translations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func failure(path, message string) models.ProcessResult {
	return models.ProcessResult{FilePath: path, Message: message}
}

func processError(path string, err error) models.ProcessResult {
	return models.ProcessResult{FilePath: path, Message: "processing error: " + err.Error(), Err: err}
}
