package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noteflow/internal/config"
	"noteflow/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "noteflow",
	Short:         "Note and topic sync server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if err := logger.InitLogger(cfg.Log, cfg.DataDir); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, backupCmd, versionCmd)
}

func log() *zap.Logger { return zap.L() }
