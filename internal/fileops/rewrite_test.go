// file: internal/fileops/rewrite_test.go
// version: 2.0.0
// guid: 4c3b2a19-0887-4f6e-5d4c-3b2a19088f7e

package fileops

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/marker"
)

type backupStub struct {
	calls []string
	fail  bool
}

func (b *backupStub) Backup(path string) (bool, error) {
	b.calls = append(b.calls, path)
	if b.fail {
		return false, errors.New("backup disk full")
	}
	return true, nil
}

func markedPNG(t *testing.T, m marker.Marker) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return marker.Encode(buf.Bytes(), m)
}

func TestRewriteCreatesFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "poster.jpg")
	m := marker.Marker{ResourceReference: "/p.png", LanguageTag: "en", RegionTag: "US"}
	data := markedPNG(t, m)

	bk := &backupStub{}
	res := Rewrite(target, data, ".png", m, bk)
	require.True(t, res.Success, res.Message)
	assert.True(t, res.FileModified)
	assert.False(t, res.BackupCreated)
	assert.Empty(t, bk.calls)

	got, err := os.ReadFile(filepath.Join(dir, "poster.png"))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRewriteIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "poster.png")
	require.NoError(t, os.WriteFile(target, []byte("unmarked original"), 0o644))
	m := marker.Marker{ResourceReference: "/p.png", LanguageTag: "en", RegionTag: "US"}
	data := markedPNG(t, m)

	bk := &backupStub{}
	first := Rewrite(target, data, ".png", m, bk)
	require.True(t, first.Success)
	require.True(t, first.FileModified)

	before, err := os.ReadFile(target)
	require.NoError(t, err)

	second := Rewrite(target, data, ".png", m, bk)
	require.True(t, second.Success)
	assert.False(t, second.FileModified)

	after, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	// One backup call from the first pass only.
	assert.Len(t, bk.calls, 1)
}

func TestRewriteBacksUpThenNormalizesExtension(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "poster.jpg")
	require.NoError(t, os.WriteFile(target, []byte("old jpg"), 0o644))

	m := marker.Marker{ResourceReference: "/new.png", LanguageTag: "ja", RegionTag: "JP"}
	bk := &backupStub{}
	res := Rewrite(target, markedPNG(t, m), ".png", m, bk)
	require.True(t, res.Success, res.Message)
	assert.True(t, res.BackupCreated)
	assert.Equal(t, []string{target}, bk.calls)

	// Stale .jpg sibling is gone, .png is live.
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
	got := marker.ReadFile(filepath.Join(dir, "poster.png"))
	require.NotNil(t, got)
	assert.True(t, got.Matches(m))
}

func TestRewriteIdempotentAcrossExtensionChange(t *testing.T) {
	dir := t.TempDir()
	m := marker.Marker{ResourceReference: "/p.png", LanguageTag: "de", RegionTag: "DE"}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poster.png"), markedPNG(t, m), 0o644))

	// The discovery layer reports poster.jpg (the original Sonarr name)
	// even though the live file was normalized to .png earlier.
	res := Rewrite(filepath.Join(dir, "poster.jpg"), markedPNG(t, m), ".png", m, &backupStub{})
	require.True(t, res.Success)
	assert.False(t, res.FileModified)
}

func TestRewriteAbortsWhenBackupFails(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "poster.jpg")
	require.NoError(t, os.WriteFile(target, []byte("precious original"), 0o644))

	m := marker.Marker{ResourceReference: "/new.png"}
	res := Rewrite(target, markedPNG(t, m), ".png", m, &backupStub{fail: true})
	assert.False(t, res.Success)
	assert.Error(t, res.Err)

	// Nothing was written, nothing was removed.
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "precious original", string(data))
	_, err = os.Stat(filepath.Join(dir, "poster.png"))
	assert.True(t, os.IsNotExist(err))
	assertNoTempFiles(t, dir)
}

func TestRewriteWriteFailureLeavesOriginal(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "poster.jpg")
	require.NoError(t, os.WriteFile(target, []byte("precious original"), 0o644))
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	m := marker.Marker{ResourceReference: "/new.png"}
	res := Rewrite(target, markedPNG(t, m), ".png", m, &backupStub{})
	assert.False(t, res.Success)
	assert.Error(t, res.Err)

	require.NoError(t, os.Chmod(dir, 0o755))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "precious original", string(data))
	assertNoTempFiles(t, dir)
}

func TestWriteAtomicCleansUpTempOnFailure(t *testing.T) {
	dir := t.TempDir()
	// Renaming onto a path whose parent is a file fails after the temp
	// write succeeded.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteAtomic(filepath.Join(blocker, "poster.png"), []byte("data"))
	assert.Error(t, err)
	assertNoTempFiles(t, dir)
}

func TestLiveSibling(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poster.PNG"), []byte("x"), 0o644))

	got, ok := LiveSibling(filepath.Join(dir, "poster.jpg"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "poster.PNG"), got)

	_, ok = LiveSibling(filepath.Join(dir, "clearlogo.png"))
	assert.False(t, ok)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp_") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
