package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noteflow/internal/store/sqlstore"
)

var errNoTargets = errors.New("no backup target configured")

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a backup and upload it to every configured target",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var checkpoint func(context.Context) error
		if cfg.Store.Driver == "sqlite" {
			st, err := sqlstore.Open(ctx, sqlstore.DSN(cfg.DataDir, cfg.Store.File), log())
			if err != nil {
				return err
			}
			defer st.Close()
			checkpoint = st.Checkpoint
		}

		s, err := newBackupService(ctx, cfg, checkpoint, log())
		if err != nil {
			return err
		}
		if s == nil {
			return errNoTargets
		}
		name, err := s.RunNow(ctx)
		if name != "" {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return err
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archives on every target",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newBackupService(cmd.Context(), cfg, nil, log())
		if err != nil {
			return err
		}
		if s == nil {
			return errNoTargets
		}
		names, err := s.List(cmd.Context())
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return err
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <target> <archive>",
	Short: "Replace the data directory with an archive; stop the server first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newBackupService(cmd.Context(), cfg, nil, log())
		if err != nil {
			return err
		}
		if s == nil {
			return errNoTargets
		}
		if err := s.Restore(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		log().Info("restore complete", zap.String("target", args[0]), zap.String("file", args[1]))
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupListCmd, backupRestoreCmd)
}
