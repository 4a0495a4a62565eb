// file: internal/processor/metadata.go
// version: 1.0.0
// guid: d0e1f2a3-b4c5-4d6e-7f8a-b9c0d1e2f3a4

package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/backup"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/fileops"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/nfo"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/retry"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/selection"
)

// languageOriginal tags content restored from the file itself rather
// than fetched from the provider.
const languageOriginal = "original"

// parentSearchLevels bounds the upward walk for a tvshow.nfo when an
// episode file carries no series ID of its own.
const parentSearchLevels = 3

// MetadataProcessor rewrites .nfo files with translated titles and
// descriptions.
type MetadataProcessor struct {
	Provider   Provider
	Backups    *backup.Manager
	Prefs      []selection.Preference
	ParseRetry retry.Policy
}

// NewMetadataProcessor builds a processor with the default parse retry
// budget.
func NewMetadataProcessor(provider Provider, backups *backup.Manager, prefs []selection.Preference) *MetadataProcessor {
	return &MetadataProcessor{
		Provider:   provider,
		Backups:    backups,
		Prefs:      prefs,
		ParseRetry: DefaultParseRetry,
	}
}

// Process runs the full translation workflow on one .nfo file.
func (p *MetadataProcessor) Process(ctx context.Context, path string) models.ProcessResult {
	doc, err := p.parseWithRetry(ctx, path)
	if err != nil {
		return processError(path, err)
	}
	if doc.MultiEpisode() {
		return p.processMulti(ctx, path, doc)
	}
	return p.processSingle(ctx, path, doc)
}

func (p *MetadataProcessor) processSingle(ctx context.Context, path string, doc *nfo.Document) models.ProcessResult {
	block := doc.Blocks[0]
	info := nfo.Extract(block)

	ids, ok := p.resolveIDs(ctx, info, path)
	if !ok {
		return failure(path, "no TMDB ID found in .nfo file")
	}

	translations, err := p.Provider.Translations(ctx, ids)
	if err != nil {
		return processError(path, err)
	}

	selected, found := selection.SelectTranslation(translations, p.Prefs)
	if found {
		if info.Title == selected.Title.Content && info.Description == selected.Description.Content {
			return models.ProcessResult{
				FilePath: path,
				Success:  true,
				Message:  "content already matches preferred translation",
				TmdbIDs:  &ids,
			}
		}
	} else {
		// Nothing available in the preferred languages: restore the
		// original text from the backup if the file was rewritten before.
		revert, ok := p.revertTranslation(path, info)
		if !ok {
			msg := fmt.Sprintf(
				"file unchanged - no translation available in preferred languages [%s]; available: [%s]",
				preferredList(p.Prefs), availableList(translations),
			)
			res := failure(path, msg)
			res.TmdbIDs = &ids
			return res
		}
		selected = revert
	}

	selected = p.applyFallback(ctx, info, ids, selected)

	backupCreated, err := p.Backups.Backup(path)
	if err != nil {
		return processError(path, err)
	}

	nfo.ApplyTranslation(block, selected)
	if err := writeDocument(path, doc); err != nil {
		return processError(path, err)
	}

	return models.ProcessResult{
		FilePath:         path,
		Success:          true,
		Message:          successMessage(selected),
		TmdbIDs:          &ids,
		BackupCreated:    backupCreated,
		FileModified:     true,
		SelectedLanguage: selected.Title.Language,
	}
}

func (p *MetadataProcessor) processMulti(ctx context.Context, path string, doc *nfo.Document) models.ProcessResult {
	translated := 0
	var firstIDs *models.TmdbIDs

	for _, block := range doc.Blocks {
		info := nfo.Extract(block)
		ids, ok := p.resolveIDs(ctx, info, path)
		if !ok {
			continue
		}
		if firstIDs == nil {
			firstIDs = &ids
		}

		translations, err := p.Provider.Translations(ctx, ids)
		if err != nil {
			continue
		}
		selected, found := selection.SelectTranslation(translations, p.Prefs)
		if !found {
			continue
		}
		selected = p.applyFallback(ctx, info, ids, selected)
		nfo.ApplyTranslation(block, selected)
		translated++
	}

	if translated == 0 {
		return failure(path, "no translations found for any episode in file")
	}

	backupCreated, err := p.Backups.Backup(path)
	if err != nil {
		return processError(path, err)
	}
	if err := writeDocument(path, doc); err != nil {
		return processError(path, err)
	}

	return models.ProcessResult{
		FilePath:      path,
		Success:       true,
		Message:       fmt.Sprintf("translated %d/%d episodes", translated, len(doc.Blocks)),
		TmdbIDs:       firstIDs,
		BackupCreated: backupCreated,
		FileModified:  true,
	}
}

func (p *MetadataProcessor) parseWithRetry(ctx context.Context, path string) (*nfo.Document, error) {
	// Sonarr may still be mid-write when the event fires; corrupt or
	// partial XML heals within the retry budget or not at all.
	return retry.DoValue(ctx, p.ParseRetry, func(error) bool { return true }, func() (*nfo.Document, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return nfo.Parse(data)
	})
}

// resolveIDs determines the complete TMDB coordinates for one block.
// Resolution is tiered: the file's own tmdb uniqueid, then a parent
// tvshow.nfo, then a provider lookup by TVDB/IMDB identifier.
func (p *MetadataProcessor) resolveIDs(ctx context.Context, info nfo.Info, path string) (models.TmdbIDs, bool) {
	seriesID := info.TmdbID

	var parent *nfo.Info
	if seriesID == 0 && info.Kind == nfo.KindEpisode {
		parent = findParentInfo(path)
		if parent != nil {
			seriesID = parent.TmdbID
		}
	}

	if seriesID == 0 {
		seriesID = p.findByExternalIDs(ctx, info.ExternalIDs)
	}
	if seriesID == 0 && parent != nil {
		seriesID = p.findByExternalIDs(ctx, parent.ExternalIDs)
	}
	if seriesID == 0 {
		return models.TmdbIDs{}, false
	}

	switch info.Kind {
	case nfo.KindSeries:
		return models.TmdbIDs{SeriesID: seriesID}, true
	case nfo.KindEpisode:
		if info.Season == nil || info.Episode == nil {
			return models.TmdbIDs{}, false
		}
		return models.TmdbIDs{SeriesID: seriesID, Season: info.Season, Episode: info.Episode}, true
	default:
		return models.TmdbIDs{}, false
	}
}

func (p *MetadataProcessor) findByExternalIDs(ctx context.Context, ext models.ExternalIDs) int {
	if ext.TvdbID == 0 && ext.ImdbID == "" {
		return 0
	}
	id, err := p.Provider.FindByExternalIDs(ctx, ext)
	if err != nil {
		return 0
	}
	return id
}

// findParentInfo walks up the directory tree looking for a tvshow.nfo
// with a usable series block.
func findParentInfo(episodePath string) *nfo.Info {
	dir := filepath.Dir(episodePath)
	for i := 0; i < parentSearchLevels; i++ {
		candidate := filepath.Join(dir, "tvshow.nfo")
		if data, err := os.ReadFile(candidate); err == nil {
			if doc, err := nfo.Parse(data); err == nil {
				info := nfo.Extract(doc.Blocks[0])
				if info.Kind == nfo.KindSeries {
					return &info
				}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil
}

// revertTranslation produces the original content from the backup copy
// when the live file has drifted from it. ok is false when there is no
// backup or the file already shows the original text.
func (p *MetadataProcessor) revertTranslation(path string, current nfo.Info) (models.TranslatedContent, bool) {
	backupPath, ok := p.Backups.BackupPath(path)
	if !ok {
		return models.TranslatedContent{}, false
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return models.TranslatedContent{}, false
	}
	doc, err := nfo.Parse(data)
	if err != nil {
		return models.TranslatedContent{}, false
	}
	original := nfo.Extract(doc.Blocks[0])

	if current.Title == original.Title && current.Description == original.Description {
		return models.TranslatedContent{}, false
	}
	return models.TranslatedContent{
		Title:       models.TranslatedString{Content: original.Title, Language: languageOriginal},
		Description: models.TranslatedString{Content: original.Description, Language: languageOriginal},
	}, true
}

// applyFallback fills empty translation fields from the file's current
// content. An empty title additionally consults the series' original
// details: when the original language is in the same family as the
// preferred one, the provider's original title is the better fill.
func (p *MetadataProcessor) applyFallback(ctx context.Context, info nfo.Info, ids models.TmdbIDs, tr models.TranslatedContent) models.TranslatedContent {
	if tr.Title.Content != "" && tr.Description.Content != "" {
		return tr
	}

	if tr.Title.Content == "" {
		preferred := tr.Title.Language
		if preferred == "" {
			preferred = tr.Description.Language
		}
		if title := p.originalTitleIfFamilyMatches(ctx, ids, preferred); title != "" {
			tr.Title = models.TranslatedString{Content: title, Language: preferred}
		} else {
			tr.Title = models.TranslatedString{Content: info.Title, Language: languageOriginal}
		}
	}
	if tr.Description.Content == "" {
		tr.Description = models.TranslatedString{Content: info.Description, Language: languageOriginal}
	}
	return tr
}

func (p *MetadataProcessor) originalTitleIfFamilyMatches(ctx context.Context, ids models.TmdbIDs, preferred string) string {
	if preferred == "" || preferred == languageOriginal {
		return ""
	}
	details, err := p.Provider.SeriesOriginalDetails(ctx, ids)
	if err != nil {
		return ""
	}
	preferredBase, _, _ := strings.Cut(preferred, "-")
	originalBase, _, _ := strings.Cut(details.Language, "-")
	if preferredBase != originalBase {
		return ""
	}
	return details.Title
}

func writeDocument(path string, doc *nfo.Document) error {
	out, err := nfo.Marshal(doc)
	if err != nil {
		return err
	}
	return fileops.WriteAtomic(path, out)
}

func successMessage(tr models.TranslatedContent) string {
	if tr.Title.Language == tr.Description.Language {
		return "translated to " + tr.Title.Language
	}
	var parts []string
	if tr.Title.Content != "" {
		parts = append(parts, "title: "+tr.Title.Language)
	}
	if tr.Description.Content != "" {
		parts = append(parts, "description: "+tr.Description.Language)
	}
	return "translated (" + strings.Join(parts, ", ") + ")"
}
