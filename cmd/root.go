// file: cmd/root.go
// version: 2.0.0
// guid: c7d8e9f0-a1b2-4c3d-4e5f-a6b7c8d9e0f1

package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/backup"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/config"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/service"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sonarr-metadata-rewrite",
	Short: "Rewrite Sonarr metadata and artwork into preferred languages",
	Long: `sonarr-metadata-rewrite watches a Sonarr media library, fetches
translations and artwork from TMDB, and rewrites .nfo files and
poster/clearlogo images into your preferred languages. Originals are
backed up so every rewrite can be undone.`,
}

// serveCmd runs the long-lived rewrite service.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the rewrite service",
	Long:  `Watch the library, rewrite metadata and artwork as Sonarr produces it, and keep doing so until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(config.AppConfig)
		if err != nil {
			return err
		}
		if err := svc.Start(); err != nil {
			return err
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		log.Printf("[INFO] received %s, shutting down", sig)

		svc.Stop()
		return nil
	},
}

// rollbackCmd restores every backed-up original.
var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Restore all original files from the backup tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig
		if cfg.BackupDir == "" {
			return fmt.Errorf("original_files_backup_dir is not configured; nothing to roll back")
		}
		if cfg.RootDir == "" {
			return fmt.Errorf("rewrite_root_dir is required")
		}

		backups := backup.NewManager(cfg.BackupDir, cfg.RootDir)
		bar := progressbar.Default(-1, "restoring originals")
		summary, err := backups.Rollback(func(rel string, ok bool) {
			_ = bar.Add(1)
			if !ok {
				log.Printf("[WARN] could not restore %s", rel)
			}
		})
		_ = bar.Finish()
		if err != nil {
			return err
		}

		cmd.Printf("Restored %d files, %d failed\n", summary.Restored, summary.Failed)
		if summary.Failed > 0 {
			return fmt.Errorf("%d files could not be restored", summary.Failed)
		}
		return nil
	},
}

// pruneBackupsCmd drops backups whose series are long gone.
var pruneBackupsCmd = &cobra.Command{
	Use:   "prune-backups",
	Short: "Delete backup files older than a retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig
		if cfg.BackupDir == "" {
			return fmt.Errorf("original_files_backup_dir is not configured; nothing to prune")
		}

		olderThan, err := cmd.Flags().GetDuration("older-than")
		if err != nil {
			return err
		}

		backups := backup.NewManager(cfg.BackupDir, cfg.RootDir)
		removed, err := backups.Prune(olderThan)
		if err != nil {
			return err
		}
		cmd.Printf("Pruned %d backup files older than %s\n", removed, olderThan)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sonarr-metadata-rewrite.yaml)")
	rootCmd.PersistentFlags().String("api-key", "", "TMDB API key")
	rootCmd.PersistentFlags().String("dir", "", "root directory of the Sonarr library")
	rootCmd.PersistentFlags().StringSlice("languages", nil, "preferred languages in priority order (e.g. zh-CN,en-US)")
	rootCmd.PersistentFlags().String("cache-dir", "./cache", "directory for the provider response cache")
	rootCmd.PersistentFlags().String("backup-dir", "./backups", "directory for original file backups (empty disables)")

	viper.BindPFlag("tmdb_api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("rewrite_root_dir", rootCmd.PersistentFlags().Lookup("dir"))
	viper.BindPFlag("preferred_languages", rootCmd.PersistentFlags().Lookup("languages"))
	viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("original_files_backup_dir", rootCmd.PersistentFlags().Lookup("backup-dir"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(pruneBackupsCmd)

	serveCmd.Flags().String("listen", ":8085", "address for the status and metrics listener (empty disables)")
	viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))

	pruneBackupsCmd.Flags().Duration("older-than", 720*time.Hour, "remove backups older than this")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sonarr-metadata-rewrite")
	}

	viper.SetEnvPrefix("SMR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	config.InitConfig()
}
