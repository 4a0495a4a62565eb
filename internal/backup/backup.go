// file: internal/backup/backup.go
// version: 2.0.0
// guid: 8f9e0a1b-2c3d-4e5f-6a7b-8c9d0e1f2a3b

// Package backup preserves provider-original files before they are
// rewritten. Backups mirror the monitored tree's relative layout under a
// backup root; that tree is the complete history, there is no index. A
// backup may carry a different extension than the live file when the
// live file's extension was later normalized, so lookups match on the
// filename stem.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Manager creates, finds, and restores backups for files under RootDir.
// An empty BackupRoot disables backups entirely.
type Manager struct {
	BackupRoot string
	RootDir    string
}

// NewManager returns a Manager. backupRoot may be empty to disable
// backups; rootDir must be the monitored tree root. Both are made
// absolute so relative configuration still matches the canonical
// absolute paths the pipelines hand in.
func NewManager(backupRoot, rootDir string) *Manager {
	if backupRoot != "" {
		if abs, err := filepath.Abs(backupRoot); err == nil {
			backupRoot = abs
		}
	}
	if abs, err := filepath.Abs(rootDir); err == nil {
		rootDir = abs
	}
	return &Manager{BackupRoot: backupRoot, RootDir: rootDir}
}

// Enabled reports whether backups are configured.
func (m *Manager) Enabled() bool { return m.BackupRoot != "" }

// Backup snapshots path under the backup root, preserving the relative
// directory structure. An existing backup for the same stem is never
// overwritten: the first snapshot is the provider original and stays
// authoritative. Returns whether a backup exists after the call.
func (m *Manager) Backup(path string) (bool, error) {
	if !m.Enabled() {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	dst, err := m.mirrorPath(path)
	if err != nil {
		return false, err
	}
	if existing := findStemSibling(dst); existing != "" {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("create backup directory: %w", err)
	}
	if err := copyFile(path, dst); err != nil {
		return false, fmt.Errorf("copy to backup: %w", err)
	}
	return true, nil
}

// BackupPath returns the backup file for path, matching on stem when the
// extensions differ. ok is false when backups are disabled or no backup
// exists.
func (m *Manager) BackupPath(path string) (string, bool) {
	if !m.Enabled() {
		return "", false
	}
	dst, err := m.mirrorPath(path)
	if err != nil {
		return "", false
	}
	if existing := findStemSibling(dst); existing != "" {
		return existing, true
	}
	return "", false
}

// Restore copies the backup for path back into the live tree. Live
// siblings sharing the stem but carrying a different extension are
// removed first, case-insensitively, so the restored file is the only
// live representation. Returns false when no backup exists.
func (m *Manager) Restore(path string) (bool, error) {
	src, ok := m.BackupPath(path)
	if !ok {
		return false, nil
	}

	// The restored file keeps the backup's extension, not the live one.
	target := filepath.Join(filepath.Dir(path), filepath.Base(src))

	if err := removeStemSiblings(filepath.Dir(path), stem(path)); err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, fmt.Errorf("create directory: %w", err)
	}
	if err := copyFile(src, target); err != nil {
		return false, fmt.Errorf("restore from backup: %w", err)
	}
	return true, nil
}

// Summary reports the outcome of a Rollback run.
type Summary struct {
	Restored int
	Failed   int
}

// Rollback restores every file in the backup tree to its live location.
// A missing backup root is an empty summary, not an error. progress may
// be nil; it is called once per backup file with the relative path and
// whether the restore succeeded. Rollback must not run while rewrite
// pipelines are active; the caller is responsible for that ordering.
func (m *Manager) Rollback(progress func(rel string, ok bool)) (Summary, error) {
	var sum Summary
	if !m.Enabled() {
		return sum, fmt.Errorf("backup directory is not configured")
	}
	if _, err := os.Stat(m.BackupRoot); os.IsNotExist(err) {
		return sum, nil
	}

	err := filepath.WalkDir(m.BackupRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(m.BackupRoot, path)
		if relErr != nil {
			return nil
		}
		ok := m.restoreBackupFile(path, rel)
		if ok {
			sum.Restored++
		} else {
			sum.Failed++
		}
		if progress != nil {
			progress(rel, ok)
		}
		return nil
	})
	if err != nil {
		return sum, fmt.Errorf("walk backup tree: %w", err)
	}
	return sum, nil
}

func (m *Manager) restoreBackupFile(backupFile, rel string) bool {
	live := filepath.Join(m.RootDir, rel)
	if _, err := os.Stat(filepath.Dir(live)); os.IsNotExist(err) {
		// The series was deleted from the library; nothing to restore onto.
		return false
	}
	if err := removeStemSiblings(filepath.Dir(live), stem(live)); err != nil {
		return false
	}
	return copyFile(backupFile, live) == nil
}

// Prune deletes backup files older than the retention window and cleans
// up directories emptied by the deletions. Returns the number of files
// removed.
func (m *Manager) Prune(olderThan time.Duration) (int, error) {
	if !m.Enabled() {
		return 0, nil
	}
	if _, err := os.Stat(m.BackupRoot); os.IsNotExist(err) {
		return 0, nil
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	err := filepath.WalkDir(m.BackupRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("walk backup tree: %w", err)
	}
	m.removeEmptyDirs()
	return removed, nil
}

func (m *Manager) removeEmptyDirs() {
	// Deepest-first removal; os.Remove refuses non-empty directories.
	var dirs []string
	_ = filepath.WalkDir(m.BackupRoot, func(path string, d os.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != m.BackupRoot {
			dirs = append(dirs, path)
		}
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
}

func (m *Manager) mirrorPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	rel, err := filepath.Rel(m.RootDir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside the monitored root %s", path, m.RootDir)
	}
	return filepath.Join(m.BackupRoot, rel), nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// findStemSibling returns path if it exists, otherwise any file in the
// same directory sharing its stem (case-insensitive), otherwise "".
func findStemSibling(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		return ""
	}
	want := stem(path)
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(stem(e.Name()), want) {
			return filepath.Join(filepath.Dir(path), e.Name())
		}
	}
	return ""
}

func removeStemSiblings(dir, want string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(stem(e.Name()), want) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove stale sibling: %w", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
