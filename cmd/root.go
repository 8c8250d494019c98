package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallsync",
		Short: "Vendor catalog synchronization tool",
		Long: `Wallsync reconciles the vendor SFTP file tree (spreadsheets plus scattered
product photos) into the normalized catalog served to the storefront:
watermarked images in public blob storage and three Redis views queryable
by record id and by collection.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newResetCmd())

	return cmd
}
