// file: internal/mediafile/mediafile.go
// version: 1.0.0
// guid: 8b0c2d4e-6f1a-4b3c-9d5e-7f8a9b0c1d2e

// Package mediafile centralizes the filename rules for rewritable files:
// .nfo metadata documents and the fixed set of artwork basenames
// (poster, clearlogo, season posters) with their supported extensions.
package mediafile

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// imageExtensions are the container extensions artwork may use.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var seasonPosterRe = regexp.MustCompile(`^season(\d+)-poster$`)

// Artwork kinds.
const (
	KindPoster    = "poster"
	KindClearlogo = "clearlogo"
)

// ImageInfo describes a recognized artwork filename. Season is nil for
// series-level artwork; 0 is the specials season.
type ImageInfo struct {
	Kind   string
	Season *int
}

// ParseImageName matches basename against the recognized artwork
// templates, case-insensitively. ok is false for anything else.
func ParseImageName(basename string) (ImageInfo, bool) {
	ext := strings.ToLower(filepath.Ext(basename))
	if !imageExtensions[ext] {
		return ImageInfo{}, false
	}
	stem := strings.ToLower(strings.TrimSuffix(basename, filepath.Ext(basename)))

	switch stem {
	case "poster":
		return ImageInfo{Kind: KindPoster}, true
	case "clearlogo":
		return ImageInfo{Kind: KindClearlogo}, true
	case "season-specials-poster":
		specials := 0
		return ImageInfo{Kind: KindPoster, Season: &specials}, true
	}
	if m := seasonPosterRe.FindStringSubmatch(stem); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return ImageInfo{}, false
		}
		return ImageInfo{Kind: KindPoster, Season: &n}, true
	}
	return ImageInfo{}, false
}

// IsNFO reports whether path has a .nfo extension (case-insensitive).
func IsNFO(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".nfo")
}

// IsRewritableImage reports whether path matches a recognized artwork
// filename template.
func IsRewritableImage(path string) bool {
	_, ok := ParseImageName(filepath.Base(path))
	return ok
}

// IsTarget reports whether path is processed by the rewrite pipeline.
func IsTarget(path string) bool {
	return IsNFO(path) || IsRewritableImage(path)
}

// IsImageExtension reports whether ext (with leading dot) is a supported
// artwork container extension.
func IsImageExtension(ext string) bool {
	return imageExtensions[strings.ToLower(ext)]
}

// FindTargets walks root and returns every .nfo file and rewritable
// image beneath it. Inaccessible subtrees are skipped, not fatal.
func FindTargets(root string) []string {
	var targets []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && IsTarget(path) {
			targets = append(targets, path)
		}
		return nil
	})
	return targets
}
