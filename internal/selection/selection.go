// file: internal/selection/selection.go
// version: 1.0.0
// guid: d4e5f6a7-b8c9-4d0e-1f2a-b3c4d5e6f7a8

// Package selection picks the single best translation or artwork
// candidate for an ordered language-region preference list. First
// preference with any exact match wins; candidates missing a language or
// region tag never match.
package selection

import (
	"golang.org/x/text/language"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
)

// Preference is one validated language-region token.
type Preference struct {
	// Raw is the token as configured, e.g. "zh-CN".
	Raw string
	// Language and Region are the canonicalized parts.
	Language string
	Region   string
}

// Tag returns the canonical "language-REGION" form.
func (p Preference) Tag() string { return p.Language + "-" + p.Region }

// ParsePreferences validates tokens as region-qualified BCP 47 tags,
// preserving order. Malformed or region-less tokens are dropped, never
// fatal; the caller is expected to log what was skipped.
func ParsePreferences(tokens []string) (prefs []Preference, skipped []string) {
	for _, raw := range tokens {
		tag, err := language.Parse(raw)
		if err != nil {
			skipped = append(skipped, raw)
			continue
		}
		region, conf := tag.Region()
		if conf != language.Exact || !region.IsCountry() {
			// Region was inferred, not written; the token is not
			// region-qualified.
			skipped = append(skipped, raw)
			continue
		}
		base, _ := tag.Base()
		prefs = append(prefs, Preference{Raw: raw, Language: base.String(), Region: region.String()})
	}
	return prefs, skipped
}

// SelectImage returns the best artwork candidate: the first preference
// tier holding at least one exact language+region match, with ties
// inside a tier broken by the provider's popularity signal (highest vote
// average wins, provider order breaks exact vote ties). ok is false when
// no preference matches anything; that is a normal outcome.
func SelectImage(candidates []models.ImageCandidate, prefs []Preference) (models.ImageCandidate, bool) {
	for _, pref := range prefs {
		var best models.ImageCandidate
		found := false
		for _, cand := range candidates {
			if cand.Language == "" || cand.Region == "" {
				continue
			}
			if cand.Language != pref.Language || cand.Region != pref.Region {
				continue
			}
			if !found || cand.VoteAverage > best.VoteAverage {
				best = cand
				found = true
			}
		}
		if found {
			return best, true
		}
	}
	return models.ImageCandidate{}, false
}

// SelectTranslation merges the best title and description from the
// preference list. Each field is taken from the first preferred language
// that provides it, so the title and description may come from different
// languages. ok is false when no preference yields either field.
func SelectTranslation(translations map[string]models.TranslatedContent, prefs []Preference) (models.TranslatedContent, bool) {
	var title, description models.TranslatedString

	for _, pref := range prefs {
		tr, ok := translations[pref.Tag()]
		if !ok {
			continue
		}
		if title.Content == "" && tr.Title.Content != "" {
			title = tr.Title
		}
		if description.Content == "" && tr.Description.Content != "" {
			description = tr.Description
		}
		if title.Content != "" && description.Content != "" {
			break
		}
	}

	if title.Content == "" && description.Content == "" {
		return models.TranslatedContent{}, false
	}
	return models.TranslatedContent{Title: title, Description: description}, true
}
