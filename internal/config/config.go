// file: internal/config/config.go
// version: 2.0.0
// guid: e3f4a5b6-c7d8-4e9f-0a1b-c2d3e4f5a6b7

package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// TMDB API
	TmdbAPIKey string

	// Library monitoring
	RootDir            string
	ScanInterval       time.Duration
	EnableFileMonitor  bool
	EnableFileScanner  bool
	EnableImageRewrite bool
	Workers            int

	// Translation preferences
	PreferredLanguages []string

	// Provider response cache
	CacheDir      string
	CacheDuration time.Duration

	// Original file backup; empty disables backups
	BackupDir string

	// Observation endpoint; empty disables the listener
	ListenAddr string
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	// Set defaults
	viper.SetDefault("preferred_languages", []string{"zh-CN"})
	viper.SetDefault("periodic_scan_interval_seconds", 3600)
	viper.SetDefault("cache_dir", "./cache")
	viper.SetDefault("cache_duration_hours", 720)
	viper.SetDefault("original_files_backup_dir", "./backups")
	viper.SetDefault("enable_file_monitor", true)
	viper.SetDefault("enable_file_scanner", true)
	viper.SetDefault("enable_image_rewrite", true)
	viper.SetDefault("workers", 4)
	viper.SetDefault("listen_addr", ":8085")

	AppConfig = Config{
		TmdbAPIKey:         viper.GetString("tmdb_api_key"),
		RootDir:            viper.GetString("rewrite_root_dir"),
		ScanInterval:       time.Duration(viper.GetInt("periodic_scan_interval_seconds")) * time.Second,
		EnableFileMonitor:  viper.GetBool("enable_file_monitor"),
		EnableFileScanner:  viper.GetBool("enable_file_scanner"),
		EnableImageRewrite: viper.GetBool("enable_image_rewrite"),
		Workers:            viper.GetInt("workers"),
		PreferredLanguages: viper.GetStringSlice("preferred_languages"),
		CacheDir:           viper.GetString("cache_dir"),
		CacheDuration:      time.Duration(viper.GetInt("cache_duration_hours")) * time.Hour,
		BackupDir:          viper.GetString("original_files_backup_dir"),
		ListenAddr:         viper.GetString("listen_addr"),
	}

	if AppConfig.Workers < 1 {
		AppConfig.Workers = 1
	}
}

// Validate checks the fields the rewrite service cannot run without.
func (c Config) Validate() error {
	if c.TmdbAPIKey == "" {
		return errors.New("tmdb_api_key is required")
	}
	if c.RootDir == "" {
		return errors.New("rewrite_root_dir is required")
	}
	if len(c.PreferredLanguages) == 0 {
		return errors.New("preferred_languages must not be empty")
	}
	return nil
}
