package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pg-dock-backup/internal/backup"
)

var pruneDryRun bool

// pruneCmd runs a retention pass without producing a new snapshot.
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy without taking a new backup",
	Long: `Apply the keep-last-K retention policy to the backup directory.

Only files matching the canonical snapshot pattern are considered; staging
files and unrelated files are never touched. With keep-count 0 pruning is
disabled and nothing is deleted.

Examples:
  # Keep the newest 3 snapshots
  pg-dock-backup prune --keep-count 3

  # Show what would be deleted without deleting anything
  pg-dock-backup prune --keep-count 3 --dry-run`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "show what would be deleted without deleting")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	if pruneDryRun {
		snapshots, err := backup.ListSnapshots(cfg.BackupDir)
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}
		if cfg.KeepCount == 0 {
			fmt.Printf("Pruning disabled (keep_count=0); %d snapshot(s) would be kept\n", len(snapshots))
			return nil
		}
		for i, snap := range snapshots {
			if i < cfg.KeepCount {
				fmt.Printf("keep    %s\n", snap.Name)
			} else {
				fmt.Printf("delete  %s\n", snap.Name)
			}
		}
		return nil
	}

	result, err := backup.Prune(cfg.BackupDir, cfg.KeepCount, logger)
	if err != nil {
		return err
	}

	if result.Disabled {
		fmt.Printf("Pruning disabled (keep_count=0); %d snapshot(s) untouched\n", result.Matched)
		return nil
	}
	fmt.Printf("Kept %d, deleted %d of %d snapshot(s)\n", result.Kept, result.Deleted, result.Matched)
	if result.HasFailures() {
		fmt.Printf("Warning: %d snapshot(s) could not be deleted\n", len(result.Failures))
	}
	return nil
}
