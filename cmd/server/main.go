// Package main is the entry point of the shelfscout server.
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/shelfscout/server/internal/config"
	"github.com/shelfscout/server/internal/pkg/nativelog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shelfscout",
	Short: "Book discovery backend",
	Long: `shelfscout answers book searches by merging AI recommendations with
catalog matches, and keeps a log of recent queries.

Running without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "path to YAML config file")
}

// loadConfig reads the config file. A missing default file falls back to
// built-in defaults; a missing explicit file is an error.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return nil, err
}

func newLogger(cfg *config.AppConfig) *zap.Logger {
	logger, err := nativelog.NewZapLogger(cfg.LogDir(), cfg.IsDev())
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("file log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
