package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vizzaro-home/wallsync/internal/checkpoint"
	"github.com/vizzaro-home/wallsync/internal/config"
)

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard checkpoint state",
		Long:  `Deletes the progress checkpoint so the next sync starts fresh. Catalog data in Redis and published images are untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := checkpoint.NewManager(cfg.Sync.CheckpointPath).Clear(); err != nil {
				return err
			}
			slog.Info("Checkpoint cleared", "path", cfg.Sync.CheckpointPath)
			return nil
		},
	}
	return cmd
}
