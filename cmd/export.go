package cmd

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/vizzaro-home/wallsync/internal/config"
	"github.com/vizzaro-home/wallsync/internal/export"
	"github.com/vizzaro-home/wallsync/internal/index"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a flat-index snapshot to parquet",
		Long: `Reads every flat-index entry from Redis and writes a parquet snapshot,
used for offline audits of prices, dimensions, and image coverage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}

			records, err := index.NewWriter(rdb, cfg.Sync.IndexChunkSize).AllItems(ctx)
			if err != nil {
				return err
			}

			if err := export.WriteParquet(output, records); err != nil {
				return err
			}
			slog.Info("Snapshot written", "path", output, "records", len(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "catalog.parquet", "Output file path")

	return cmd
}
