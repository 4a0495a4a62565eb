// file: cmd/root_test.go
// version: 1.0.0
// guid: e9f0a1b2-c3d4-4e5f-6a7b-c8d9e0f1a2b3

package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHelpListsCommands(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "rollback")
	assert.Contains(t, out, "prune-backups")
}

func TestRollbackRequiresBackupDir(t *testing.T) {
	_, err := execute(t, "rollback", "--backup-dir", "", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to roll back")
}

func TestPruneBackupsRequiresBackupDir(t *testing.T) {
	_, err := execute(t, "prune-backups", "--backup-dir", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to prune")
}

func TestRollbackEmptyBackupTree(t *testing.T) {
	out, err := execute(t, "rollback", "--backup-dir", t.TempDir(), "--dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Restored 0 files")
}
