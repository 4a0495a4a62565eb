// file: internal/processor/image.go
// version: 1.0.0
// guid: e1f2a3b4-c5d6-4e7f-8a9b-c0d1e2f3a4b5

package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/backup"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/fileops"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/marker"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/mediafile"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/nfo"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/retry"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/selection"
)

// ImageProcessor replaces poster and clearlogo files with the best
// candidate in the preferred languages, stamping each download with an
// embedded marker so repeat passes are free.
type ImageProcessor struct {
	Provider     Provider
	Backups      *backup.Manager
	Prefs        []selection.Preference
	SiblingRetry retry.Policy
}

// NewImageProcessor builds a processor with the default sibling retry
// budget.
func NewImageProcessor(provider Provider, backups *backup.Manager, prefs []selection.Preference) *ImageProcessor {
	return &ImageProcessor{
		Provider:     provider,
		Backups:      backups,
		Prefs:        prefs,
		SiblingRetry: DefaultSiblingRetry,
	}
}

// Process runs the artwork pipeline on one image path. The path may not
// exist on disk yet (or anymore): resolution works off the sibling
// tvshow.nfo, and the marker check consults whichever file currently
// represents the target.
func (p *ImageProcessor) Process(ctx context.Context, path string) models.ProcessResult {
	info, ok := mediafile.ParseImageName(filepath.Base(path))
	if !ok {
		return failure(path, "unrecognized image file: "+filepath.Base(path))
	}

	ids, err := p.resolveFromSibling(ctx, path, info)
	if err != nil {
		return failure(path, "could not resolve TMDB ID from tvshow.nfo: "+err.Error())
	}

	candidates, err := p.Provider.Images(ctx, ids, info.Kind)
	if err != nil {
		return processError(path, err)
	}

	candidate, found := selection.SelectImage(candidates, p.Prefs)
	if !found {
		return p.noCandidate(path, info.Kind)
	}

	desired := marker.Marker{
		ResourceReference: candidate.FilePath,
		LanguageTag:       candidate.Language,
		RegionTag:         candidate.Region,
	}
	langTag := candidate.LanguageTag()

	// Marker check before the download so an unchanged selection costs
	// no bandwidth.
	if fileops.AlreadyCurrent(path, desired) {
		return models.ProcessResult{
			FilePath:         path,
			Success:          true,
			Message:          fmt.Sprintf("%s already matches selected candidate (%s)", info.Kind, langTag),
			TmdbIDs:          &ids,
			SelectedLanguage: langTag,
		}
	}

	ext := strings.ToLower(filepath.Ext(candidate.FilePath))
	if !mediafile.IsImageExtension(ext) {
		return failure(path, "unsupported image format from provider: "+ext)
	}

	data, err := p.Provider.DownloadImage(ctx, candidate.FilePath)
	if err != nil {
		return processError(path, err)
	}

	res := fileops.Rewrite(path, marker.Encode(data, desired), ext, desired, p.Backups)
	res.TmdbIDs = &ids
	if res.Success && res.FileModified {
		res.Message = fmt.Sprintf("%s rewritten with %s version", info.Kind, langTag)
		res.SelectedLanguage = langTag
	}
	return res
}

// resolveFromSibling reads the tvshow.nfo that Kodi keeps next to
// series artwork. The file may trail the image by a few seconds when
// Sonarr is mid-import, so absence is retried; a present file without a
// TMDB ID is a hard failure.
func (p *ImageProcessor) resolveFromSibling(ctx context.Context, imagePath string, info mediafile.ImageInfo) (models.TmdbIDs, error) {
	nfoPath := filepath.Join(filepath.Dir(imagePath), "tvshow.nfo")

	retryable := func(err error) bool { return isNotExist(err) }
	return retry.DoValue(ctx, p.SiblingRetry, retryable, func() (models.TmdbIDs, error) {
		data, err := os.ReadFile(nfoPath)
		if err != nil {
			return models.TmdbIDs{}, err
		}
		doc, err := nfo.Parse(data)
		if err != nil {
			return models.TmdbIDs{}, err
		}
		parsed := nfo.Extract(doc.Blocks[0])
		if parsed.TmdbID == 0 {
			return models.TmdbIDs{}, fmt.Errorf("no TMDB ID in %s", nfoPath)
		}
		return models.TmdbIDs{SeriesID: parsed.TmdbID, Season: info.Season}, nil
	})
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// noCandidate handles the no-preferred-artwork case: a previously
// rewritten file (it carries a marker, its backup does not) is reverted
// to the original; anything else stays untouched.
func (p *ImageProcessor) noCandidate(path, kind string) models.ProcessResult {
	prefs := preferredList(p.Prefs)

	live, hasLive := fileops.LiveSibling(path)
	backupPath, hasBackup := p.Backups.BackupPath(path)
	if !hasLive || !hasBackup {
		return failure(path, fmt.Sprintf("no %s available in preferred languages [%s]", kind, prefs))
	}

	currentMarker := marker.ReadFile(live)
	backupMarker := marker.ReadFile(backupPath)

	switch {
	case currentMarker != nil && backupMarker == nil:
		if _, err := p.Backups.Restore(path); err != nil {
			return processError(path, err)
		}
		return models.ProcessResult{
			FilePath:     path,
			Success:      true,
			Message:      fmt.Sprintf("reverted %s to original - no image available in preferred languages [%s]", kind, prefs),
			FileModified: true,
		}
	case currentMarker == nil:
		return failure(path, fmt.Sprintf("file unchanged - already original and no %s available in preferred languages [%s]", kind, prefs))
	default:
		return failure(path, fmt.Sprintf("no %s available in preferred languages [%s]", kind, prefs))
	}
}
