package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/smsguard/internal/cache"
	"github.com/ppiankov/smsguard/internal/model"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the reputation result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached reputation results from disk",
	Long: `Clear deletes the on-disk reputation cache (cache.disk_dir).
The in-memory layer lives only for one process and needs no clearing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return clearDiskCache(cmd, cfg.Cache)
	},
}

func clearDiskCache(cmd *cobra.Command, cfg model.CacheConfig) error {
	if cfg.DiskDir == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No disk cache configured (cache.disk_dir is empty)")
		return nil
	}
	if err := cache.NewDiskCache(cfg.DiskDir, cfg.DiskTTL).Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared reputation cache in %s\n", cfg.DiskDir)
	return nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
