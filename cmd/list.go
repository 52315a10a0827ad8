package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pg-dock-backup/internal/backup"
)

var listFormat string

// listCmd prints committed snapshots, newest first.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List committed snapshots",
	Long: `List committed snapshots in the backup directory, newest first.

Examples:
  # Human-readable table
  pg-dock-backup list

  # Machine-readable output
  pg-dock-backup list --format json
  pg-dock-backup list --format yaml`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "table", "output format (table, json, yaml)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snapshots, err := backup.ListSnapshots(cfg.BackupDir)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	switch listFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshots)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(snapshots)
	case "table":
		printSnapshotTable(snapshots)
		return nil
	default:
		return fmt.Errorf("invalid format %q, must be one of: table, json, yaml", listFormat)
	}
}

func printSnapshotTable(snapshots []backup.Snapshot) {
	if len(snapshots) == 0 {
		fmt.Println("No snapshots found")
		return
	}

	header := color.New(color.Bold)
	header.Printf("%-35s %12s %20s\n", "NAME", "SIZE", "AGE")
	for _, snap := range snapshots {
		fmt.Printf("%-35s %12s %20s\n", snap.Name, formatSize(snap.Size), formatAge(time.Since(snap.CreatedAt)))
	}
	fmt.Printf("\n%d snapshot(s)\n", len(snapshots))
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
	}
}
