// file: internal/config/config_test.go
// version: 1.0.0
// guid: f4a5b6c7-d8e9-4f0a-1b2c-d3e4f5a6b7c8

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestInitConfigDefaults(t *testing.T) {
	resetViper(t)

	InitConfig()

	assert.Equal(t, []string{"zh-CN"}, AppConfig.PreferredLanguages)
	assert.Equal(t, time.Hour, AppConfig.ScanInterval)
	assert.Equal(t, 720*time.Hour, AppConfig.CacheDuration)
	assert.Equal(t, "./backups", AppConfig.BackupDir)
	assert.True(t, AppConfig.EnableFileMonitor)
	assert.True(t, AppConfig.EnableFileScanner)
	assert.True(t, AppConfig.EnableImageRewrite)
	assert.Equal(t, 4, AppConfig.Workers)
	assert.Equal(t, ":8085", AppConfig.ListenAddr)
}

func TestInitConfigOverrides(t *testing.T) {
	resetViper(t)

	viper.Set("tmdb_api_key", "key123")
	viper.Set("rewrite_root_dir", "/media/tv")
	viper.Set("preferred_languages", []string{"ja-JP", "en-US"})
	viper.Set("periodic_scan_interval_seconds", 120)
	viper.Set("cache_duration_hours", 1)
	viper.Set("original_files_backup_dir", "")
	viper.Set("workers", 0)

	InitConfig()

	assert.Equal(t, "key123", AppConfig.TmdbAPIKey)
	assert.Equal(t, "/media/tv", AppConfig.RootDir)
	assert.Equal(t, []string{"ja-JP", "en-US"}, AppConfig.PreferredLanguages)
	assert.Equal(t, 2*time.Minute, AppConfig.ScanInterval)
	assert.Equal(t, time.Hour, AppConfig.CacheDuration)
	assert.Empty(t, AppConfig.BackupDir)
	// Worker floor keeps the pool usable.
	assert.Equal(t, 1, AppConfig.Workers)
}

func TestValidate(t *testing.T) {
	resetViper(t)
	InitConfig()

	err := AppConfig.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tmdb_api_key")

	viper.Set("tmdb_api_key", "key123")
	InitConfig()
	err = AppConfig.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rewrite_root_dir")

	viper.Set("rewrite_root_dir", "/media/tv")
	InitConfig()
	assert.NoError(t, AppConfig.Validate())
}
