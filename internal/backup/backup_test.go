// file: internal/backup/backup_test.go
// version: 2.0.0
// guid: c3d4e5f6-a7b8-9c0d-1e2f-3a4b5c6d7e8f

package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string, string) {
	t.Helper()
	root := t.TempDir()
	backups := t.TempDir()
	return NewManager(backups, root), root, backups
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestBackupMirrorsRelativePath(t *testing.T) {
	m, root, backups := newTestManager(t)
	live := filepath.Join(root, "Show", "tvshow.nfo")
	writeFile(t, live, []byte("original"))

	created, err := m.Backup(live)
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(filepath.Join(backups, "Show", "tvshow.nfo"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestRelativeRootDirCanonicalized(t *testing.T) {
	base := t.TempDir()
	live := filepath.Join(base, "media", "Show", "poster.jpg")
	writeFile(t, live, []byte("artwork"))

	t.Chdir(base)
	m := NewManager("./backups", "./media")

	// Pipelines hand in absolute paths; a relative root must still match.
	created, err := m.Backup(live)
	require.NoError(t, err)
	assert.True(t, created)

	got, ok := m.BackupPath(live)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(base, "backups", "Show", "poster.jpg"), got)

	// Relative live paths resolve against the working directory.
	_, err = m.Backup(filepath.Join("media", "Show", "poster.jpg"))
	require.NoError(t, err)
}

func TestBackupNeverOverwrites(t *testing.T) {
	m, root, backups := newTestManager(t)
	live := filepath.Join(root, "Show", "tvshow.nfo")
	writeFile(t, live, []byte("original"))

	_, err := m.Backup(live)
	require.NoError(t, err)

	// The live file changes; a second backup call must keep the first
	// snapshot.
	writeFile(t, live, []byte("rewritten"))
	created, err := m.Backup(live)
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(filepath.Join(backups, "Show", "tvshow.nfo"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestBackupStemMatchAcrossExtensions(t *testing.T) {
	m, root, backups := newTestManager(t)
	writeFile(t, filepath.Join(backups, "Show", "poster.png"), []byte("png original"))

	// Live file was normalized to .jpg after the original .png was
	// backed up; no second backup may be written.
	live := filepath.Join(root, "Show", "poster.jpg")
	writeFile(t, live, []byte("jpg rewrite"))
	created, err := m.Backup(live)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = os.Stat(filepath.Join(backups, "Show", "poster.jpg"))
	assert.True(t, os.IsNotExist(err))

	got, ok := m.BackupPath(live)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(backups, "Show", "poster.png"), got)
}

func TestBackupDisabled(t *testing.T) {
	root := t.TempDir()
	m := NewManager("", root)
	live := filepath.Join(root, "tvshow.nfo")
	writeFile(t, live, []byte("x"))

	created, err := m.Backup(live)
	require.NoError(t, err)
	assert.False(t, created)
	_, ok := m.BackupPath(live)
	assert.False(t, ok)
}

func TestBackupRejectsPathOutsideRoot(t *testing.T) {
	m, _, _ := newTestManager(t)
	outside := filepath.Join(t.TempDir(), "tvshow.nfo")
	writeFile(t, outside, []byte("x"))

	_, err := m.Backup(outside)
	assert.Error(t, err)
}

func TestRestoreReconcilesExtensions(t *testing.T) {
	m, root, backups := newTestManager(t)
	writeFile(t, filepath.Join(backups, "Show", "poster.png"), []byte("png original"))
	live := filepath.Join(root, "Show", "poster.jpg")
	writeFile(t, live, []byte("jpg rewrite"))

	restored, err := m.Restore(live)
	require.NoError(t, err)
	assert.True(t, restored)

	// poster.jpg is gone, poster.png matches the backup bytes.
	_, err = os.Stat(live)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(root, "Show", "poster.png"))
	require.NoError(t, err)
	assert.Equal(t, "png original", string(data))
}

func TestRestoreWithoutBackup(t *testing.T) {
	m, root, _ := newTestManager(t)
	restored, err := m.Restore(filepath.Join(root, "Show", "poster.jpg"))
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestRollback(t *testing.T) {
	m, root, backups := newTestManager(t)
	writeFile(t, filepath.Join(backups, "Show", "tvshow.nfo"), []byte("nfo original"))
	writeFile(t, filepath.Join(backups, "Show", "poster.png"), []byte("png original"))
	writeFile(t, filepath.Join(backups, "Gone", "tvshow.nfo"), []byte("deleted series"))

	writeFile(t, filepath.Join(root, "Show", "tvshow.nfo"), []byte("translated"))
	writeFile(t, filepath.Join(root, "Show", "poster.jpg"), []byte("jpg rewrite"))
	// Gone/ does not exist in the live tree.

	var seen []string
	sum, err := m.Rollback(func(rel string, ok bool) { seen = append(seen, rel) })
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Restored)
	assert.Equal(t, 1, sum.Failed)
	assert.Len(t, seen, 3)

	data, err := os.ReadFile(filepath.Join(root, "Show", "tvshow.nfo"))
	require.NoError(t, err)
	assert.Equal(t, "nfo original", string(data))

	_, err = os.Stat(filepath.Join(root, "Show", "poster.jpg"))
	assert.True(t, os.IsNotExist(err))
	data, err = os.ReadFile(filepath.Join(root, "Show", "poster.png"))
	require.NoError(t, err)
	assert.Equal(t, "png original", string(data))
}

func TestRollbackMissingBackupRoot(t *testing.T) {
	root := t.TempDir()
	m := NewManager(filepath.Join(root, "no-such-dir"), root)
	sum, err := m.Rollback(nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestRollbackRestoresMissingLiveFile(t *testing.T) {
	m, root, backups := newTestManager(t)
	writeFile(t, filepath.Join(backups, "Show", "tvshow.nfo"), []byte("original"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Show"), 0o755))

	sum, err := m.Rollback(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Restored)
	data, err := os.ReadFile(filepath.Join(root, "Show", "tvshow.nfo"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestPrune(t *testing.T) {
	m, _, backups := newTestManager(t)
	old := filepath.Join(backups, "Show", "tvshow.nfo")
	recent := filepath.Join(backups, "Show", "poster.png")
	writeFile(t, old, []byte("old"))
	writeFile(t, recent, []byte("new"))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := m.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(recent)
	assert.NoError(t, err)
}

func TestPruneRemovesEmptyDirs(t *testing.T) {
	m, _, backups := newTestManager(t)
	old := filepath.Join(backups, "Show", "Season 01", "season01-poster.jpg")
	writeFile(t, old, []byte("old"))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	_, err := m.Prune(24 * time.Hour)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(backups, "Show"))
	assert.True(t, os.IsNotExist(err))
}
