// Package cli wires configuration, storage and the HTTP server behind the
// torrents command.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"torrents/internal/config"
	"torrents/internal/logger"
)

var (
	// Global flags
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "torrents",
	Short: "Torrent sharing portal",
	Long: `torrents serves the torrent sharing portal: accounts, torrent metadata,
threaded rated comments and the admin dashboard.

Storage is SQLite, PostgreSQL or MongoDB, chosen in the config file or with
TORRENTS_DB_DRIVER / TORRENTS_DB_DSN.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

// loadConfig reads the config named by the global flags and builds the logger.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, logger.New(cfg.Log), nil
}
