// file: internal/mediafile/mediafile_test.go
// version: 1.0.0
// guid: 1f3e5d7c-9b0a-4e2f-8c6d-a1b2c3d4e5f6

package mediafile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseImageName(t *testing.T) {
	series := func(kind string) ImageInfo { return ImageInfo{Kind: kind} }
	season := func(n int) ImageInfo { return ImageInfo{Kind: KindPoster, Season: &n} }

	tests := []struct {
		name string
		want ImageInfo
		ok   bool
	}{
		{"poster.jpg", series(KindPoster), true},
		{"poster.jpeg", series(KindPoster), true},
		{"poster.png", series(KindPoster), true},
		{"Poster.PNG", series(KindPoster), true},
		{"clearlogo.png", series(KindClearlogo), true},
		{"season01-poster.jpg", season(1), true},
		{"season12-poster.png", season(12), true},
		{"season-specials-poster.jpg", season(0), true},
		{"poster.gif", ImageInfo{}, false},
		{"banner.jpg", ImageInfo{}, false},
		{"season-poster.jpg", ImageInfo{}, false},
		{"poster", ImageInfo{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseImageName(tt.name)
		if ok != tt.ok {
			t.Errorf("ParseImageName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if got.Kind != tt.want.Kind {
			t.Errorf("ParseImageName(%q) kind = %q, want %q", tt.name, got.Kind, tt.want.Kind)
		}
		switch {
		case got.Season == nil && tt.want.Season != nil,
			got.Season != nil && tt.want.Season == nil:
			t.Errorf("ParseImageName(%q) season = %v, want %v", tt.name, got.Season, tt.want.Season)
		case got.Season != nil && *got.Season != *tt.want.Season:
			t.Errorf("ParseImageName(%q) season = %d, want %d", tt.name, *got.Season, *tt.want.Season)
		}
	}
}

func TestIsNFO(t *testing.T) {
	if !IsNFO("tvshow.nfo") || !IsNFO("EPISODE.NFO") {
		t.Error("expected .nfo files to be recognized case-insensitively")
	}
	if IsNFO("notes.txt") || IsNFO("tvshow.nfo.bak") {
		t.Error("expected non-nfo files to be rejected")
	}
}

func TestFindTargets(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "Show", "Season 01")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	files := []string{
		filepath.Join(dir, "Show", "tvshow.nfo"),
		filepath.Join(dir, "Show", "poster.jpg"),
		filepath.Join(sub, "S01E01.nfo"),
		filepath.Join(dir, "Show", "fanart.jpg"), // not a target
	}
	for _, f := range files {
		if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	targets := FindTargets(dir)
	if len(targets) != 3 {
		t.Fatalf("FindTargets = %v, want 3 entries", targets)
	}

	if got := FindTargets(filepath.Join(dir, "missing")); len(got) != 0 {
		t.Fatalf("expected no targets for missing root, got %v", got)
	}
}
