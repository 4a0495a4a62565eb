// file: internal/service/service_test.go
// version: 1.0.0
// guid: b6c7d8e9-f0a1-4b2c-3d4e-f5a6b7c8d9e0

package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	return config.Config{
		TmdbAPIKey:         "test-key",
		RootDir:            filepath.Join(root, "media"),
		ScanInterval:       time.Hour,
		EnableFileMonitor:  false,
		EnableFileScanner:  false,
		EnableImageRewrite: false,
		Workers:            1,
		PreferredLanguages: []string{"zh-CN"},
		CacheDir:           filepath.Join(root, "cache"),
		CacheDuration:      time.Hour,
		BackupDir:          filepath.Join(root, "backups"),
		ListenAddr:         "", // no listener in tests
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.TmdbAPIKey = ""

	_, err := New(cfg)
	require.Error(t, err)
}

func TestNewRejectsUnusableLanguages(t *testing.T) {
	cfg := testConfig(t)
	cfg.PreferredLanguages = []string{"zh", "not a tag"}

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language preferences")
}

func TestStartStopLifecycle(t *testing.T) {
	s, err := New(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, s.Start())
	s.Stop()
}

func TestImageRewriteDisabledSkips(t *testing.T) {
	s, err := New(testConfig(t))
	require.NoError(t, err)
	defer s.Stop()

	res := s.processFile(context.Background(), "/media/show/poster.jpg")
	assert.True(t, res.Success)
	assert.False(t, res.FileModified)
	assert.Contains(t, res.Message, "disabled")
}

func TestStatusSnapshot(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Stop()

	snap := s.statusSnapshot()
	assert.Equal(t, cfg.RootDir, snap["root_dir"])
	assert.Equal(t, 0, snap["in_flight"])
	assert.Equal(t, false, snap["image_rewrite"])
}
