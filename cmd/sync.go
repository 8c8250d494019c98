package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/vizzaro-home/wallsync/internal/checkpoint"
	"github.com/vizzaro-home/wallsync/internal/config"
	"github.com/vizzaro-home/wallsync/internal/index"
	"github.com/vizzaro-home/wallsync/internal/pipeline"
	"github.com/vizzaro-home/wallsync/internal/publish"
	"github.com/vizzaro-home/wallsync/internal/remote"
	"github.com/vizzaro-home/wallsync/internal/retry"
	"github.com/vizzaro-home/wallsync/internal/watermark"
)

func newSyncCmd() *cobra.Command {
	var (
		force       bool
		reset       bool
		noWatermark bool
	)

	cmd := &cobra.Command{
		Use:   "sync [collection]",
		Short: "Synchronize vendor collections into the catalog",
		Long: `Walks the vendor file tree, parses each collection's data file, matches and
publishes product images, and commits the catalog views to Redis.

Progress is checkpointed; an interrupted run resumes where it left off.`,
		Example: `  # Sync everything
  wallsync sync

  # Sync one collection, reprocessing it even if already indexed
  wallsync sync "Advantage Bath" --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateSFTP(); err != nil {
				return err
			}

			target := ""
			if len(args) > 0 {
				target = args[0]
			}

			checkpoints := checkpoint.NewManager(cfg.Sync.CheckpointPath)
			if reset {
				if err := checkpoints.Clear(); err != nil {
					return err
				}
				slog.Info("Checkpoint reset")
			} else if _, err := checkpoints.Load(); err != nil {
				return err
			}

			policy := retry.Policy{
				MaxAttempts: cfg.Sync.MaxRetries,
				BaseDelay:   cfg.Sync.RetryBaseDelay,
			}

			// Startup failures are fatal: no catalog state is touched if the
			// vendor tree or the index store is unreachable.
			source, err := remote.Connect(cfg.SFTP, policy, cfg.Sync.ImageExtensions, cfg.Sync.ExcludedDirs)
			if err != nil {
				return err
			}
			defer source.Close()
			slog.Info("SFTP connected", "host", cfg.SFTP.Host)

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}

			store, err := minio.New(cfg.Blob.Endpoint, &minio.Options{
				Creds:  credentials.NewStaticV4(cfg.Blob.AccessKey, cfg.Blob.SecretKey, ""),
				Secure: cfg.Blob.UseSSL,
			})
			if err != nil {
				return err
			}

			processor := pipeline.Processor(watermark.Disabled())
			if !noWatermark {
				processor = watermark.New(cfg.Watermark)
			}

			orch := pipeline.New(
				source,
				publish.New(store, cfg.Blob, policy),
				index.NewWriter(rdb, cfg.Sync.IndexChunkSize),
				processor,
				checkpoints,
				pipeline.Options{
					Root:        cfg.SFTP.Root,
					Target:      target,
					Force:       force,
					CommitEvery: cfg.Sync.CommitEvery,
					RecordDelay: cfg.Sync.RecordDelay,
				},
			)

			summary, err := orch.Run(ctx)
			slog.Info("Sync finished",
				"run", summary.RunID,
				"collections", summary.Collections,
				"succeeded", summary.Succeeded,
				"skipped", summary.Skipped,
				"failed", summary.Failed,
				"records", summary.Records,
				"withImages", summary.WithImages,
				"withoutImages", summary.WithoutImages,
				"unpriced", summary.Unpriced)
			if errors.Is(err, context.Canceled) {
				// Interrupted runs save their checkpoint and resume next
				// invocation; that is not a failure.
				slog.Info("Interrupted, progress saved")
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reprocess collections even if already completed or indexed")
	cmd.Flags().BoolVar(&reset, "reset", false, "Discard checkpoint state before starting")
	cmd.Flags().BoolVar(&noWatermark, "no-watermark", false, "Publish images without the logo overlay")

	return cmd
}
