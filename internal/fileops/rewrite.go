// file: internal/fileops/rewrite.go
// version: 2.0.0
// guid: 8f7e6d5c-4b3a-2918-7f6e-5d4c3b2a1908

// Package fileops performs the destructive half of the rewrite pipeline:
// marker-checked, backup-protected, atomic file replacement. A failed
// write never disturbs the pre-existing file and never leaves a
// temporary file behind.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/marker"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
)

// Backups is the slice of the backup manager the rewriter needs.
type Backups interface {
	Backup(path string) (bool, error)
}

// LiveSibling returns the on-disk file representing target: target
// itself if present, otherwise a file in the same directory sharing the
// stem with a different extension (the live extension may differ from
// the discovered one after a prior normalization). ok is false when no
// representation exists.
func LiveSibling(target string) (string, bool) {
	if _, err := os.Stat(target); err == nil {
		return target, true
	}
	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		return "", false
	}
	want := fileStem(target)
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(fileStem(e.Name()), want) {
			return filepath.Join(filepath.Dir(target), e.Name()), true
		}
	}
	return "", false
}

// AlreadyCurrent reports whether the live representation of target
// carries a marker matching desired. A matching marker is authoritative
// proof that no download or write is needed.
func AlreadyCurrent(target string, desired marker.Marker) bool {
	live, ok := LiveSibling(target)
	if !ok {
		return false
	}
	m := marker.ReadFile(live)
	return m != nil && m.Matches(desired)
}

// WriteAtomic writes data to path via a temporary file in the same
// directory followed by a single rename. On failure the temporary file
// is removed and any pre-existing file at path is untouched.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp_*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Rewrite replaces target with data, normalizing the filename to ext.
// data must already carry the desired marker. The sequence is: marker
// idempotence check, backup of the current live file, atomic write to
// the normalized path, then removal of any stale differently-extensioned
// sibling. A backup failure aborts before anything is written.
func Rewrite(target string, data []byte, ext string, desired marker.Marker, backups Backups) models.ProcessResult {
	final := filepath.Join(filepath.Dir(target), fileStem(target)+ext)

	if AlreadyCurrent(target, desired) {
		return models.ProcessResult{
			FilePath: final,
			Success:  true,
			Message:  "file already matches selected candidate",
		}
	}

	live, hasLive := LiveSibling(target)
	backupCreated := false
	if hasLive {
		created, err := backups.Backup(live)
		if err != nil {
			return models.ProcessResult{
				FilePath: final,
				Message:  "backup unavailable, rewrite aborted",
				Err:      err,
			}
		}
		backupCreated = created
	}

	if err := WriteAtomic(final, data); err != nil {
		return models.ProcessResult{
			FilePath:      final,
			Message:       "write failed, original file untouched",
			BackupCreated: backupCreated,
			Err:           err,
		}
	}

	// Only after the replace succeeded may the old-extension sibling go.
	if hasLive && !strings.EqualFold(live, final) {
		if err := os.Remove(live); err != nil && !os.IsNotExist(err) {
			return models.ProcessResult{
				FilePath:      final,
				Success:       true,
				Message:       fmt.Sprintf("rewritten, but stale sibling %s was not removed", filepath.Base(live)),
				BackupCreated: backupCreated,
				FileModified:  true,
				Err:           err,
			}
		}
	}

	return models.ProcessResult{
		FilePath:      final,
		Success:       true,
		Message:       "file rewritten",
		BackupCreated: backupCreated,
		FileModified:  true,
	}
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
