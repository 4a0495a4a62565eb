// file: internal/models/models.go
// version: 1.0.0
// guid: 4f2a9c1e-7b3d-4e8f-9a0b-c1d2e3f4a5b6

package models

import (
	"fmt"
	"time"
)

// TmdbIDs identifies a series, season, or episode on TMDB.
// Season and Episode are nil for series-level files. Season 0 is the
// specials season and is a valid value.
type TmdbIDs struct {
	SeriesID int
	Season   *int
	Episode  *int
}

// ResourcePath returns the TMDB API resource path for these IDs.
func (t TmdbIDs) ResourcePath() string {
	if t.Season != nil && t.Episode != nil {
		return fmt.Sprintf("tv/%d/season/%d/episode/%d", t.SeriesID, *t.Season, *t.Episode)
	}
	return fmt.Sprintf("tv/%d", t.SeriesID)
}

func (t TmdbIDs) String() string { return t.ResourcePath() }

// ExternalIDs holds identifiers from providers other than TMDB, used to
// look up the TMDB series ID when an .nfo file lacks a tmdb uniqueid.
type ExternalIDs struct {
	TvdbID int
	ImdbID string
}

// TranslatedString is one translated field together with the language it
// came from. Language is "original" when the value fell back to the
// on-disk content.
type TranslatedString struct {
	Content  string
	Language string
}

// TranslatedContent is the title/description pair selected for a metadata
// file. Title and description may come from different preferred languages.
type TranslatedContent struct {
	Title       TranslatedString
	Description TranslatedString
}

// ImageCandidate is one artwork option returned by the provider.
// Language or Region may be empty when the provider did not tag them;
// untagged candidates never match a region-qualified preference.
type ImageCandidate struct {
	FilePath    string  `json:"file_path"`
	Language    string  `json:"iso_639_1"`
	Region      string  `json:"iso_3166_1"`
	VoteAverage float64 `json:"vote_average"`
}

// LanguageTag returns the candidate's language-region tag, e.g. "en-US",
// or just the language when no region is tagged.
func (c ImageCandidate) LanguageTag() string {
	if c.Region == "" {
		return c.Language
	}
	return c.Language + "-" + c.Region
}

// ProcessResult is the outcome of one rewrite attempt for one file.
type ProcessResult struct {
	FilePath         string
	Success          bool
	Message          string
	TmdbIDs          *TmdbIDs
	BackupCreated    bool
	FileModified     bool
	SelectedLanguage string
	Duration         time.Duration
	Err              error
}
