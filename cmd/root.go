package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pg-dock-backup/internal/backup"
	"pg-dock-backup/internal/config"
	"pg-dock-backup/internal/logging"
	"pg-dock-backup/internal/runtime"
)

var cfgFile string

// CLI flag variables
var (
	flagTarget    string
	flagDBUser    string
	flagDBName    string
	flagBackupDir string
	flagKeepCount int
	flagNoLock    bool
	flagVerbose   bool
	flagQuiet     bool
	flagLogFile   string
	flagLogFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pg-dock-backup",
	Short: "Back up a containerized PostgreSQL database with bounded retention",
	Long: `pg-dock-backup produces a point-in-time logical dump of a PostgreSQL
database running in a named Docker container, commits it atomically as a
timestamped gzip file, and keeps only the newest configured number of
snapshots in the backup directory.

Designed to run under cron or CI: every failure class maps to a distinct,
stable exit code, no stage is retried, and an interrupted run never leaves
a partial snapshot behind.

Exit codes:
  0  backup produced and committed; pruning attempted per policy
  2  docker client not available
  3  target container not running
  4  dump/compress pipeline failed
  5  atomic commit failed

Examples:
  # Back up the default target with defaults (keep last 7)
  pg-dock-backup

  # Explicit target and retention
  pg-dock-backup --target mydb --db-user user --db-name testdb --keep-count 3

  # Disable pruning entirely
  pg-dock-backup --keep-count 0

  # Configuration file plus environment overrides
  pg-dock-backup --config backup.yaml
  PG_DOCK_BACKUP_KEEP_COUNT=14 pg-dock-backup`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBackup,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Every code path terminates here with a stable exit status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(backup.ExitCode(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pg-dock-backup.yaml)")

	// Target flags
	rootCmd.PersistentFlags().StringVar(&flagTarget, "target", config.DefaultTarget, "target container name")
	rootCmd.PersistentFlags().StringVar(&flagDBUser, "db-user", config.DefaultDBUser, "database user the dump runs as")
	rootCmd.PersistentFlags().StringVar(&flagDBName, "db-name", config.DefaultDBName, "database name to dump")
	rootCmd.PersistentFlags().StringVar(&flagBackupDir, "backup-dir", config.DefaultBackupDir, "directory holding committed snapshots")
	rootCmd.PersistentFlags().IntVar(&flagKeepCount, "keep-count", config.DefaultKeepCount, "number of most-recent snapshots to keep (0 disables pruning)")

	// Operation flags
	rootCmd.PersistentFlags().BoolVar(&flagNoLock, "no-lock", false, "disable the advisory lock on the backup directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")

	// Bind flags to viper
	viper.BindPFlag("target", rootCmd.PersistentFlags().Lookup("target"))
	viper.BindPFlag("db_user", rootCmd.PersistentFlags().Lookup("db-user"))
	viper.BindPFlag("db_name", rootCmd.PersistentFlags().Lookup("db-name"))
	viper.BindPFlag("backup_dir", rootCmd.PersistentFlags().Lookup("backup-dir"))
	viper.BindPFlag("keep_count", rootCmd.PersistentFlags().Lookup("keep-count"))
	viper.BindPFlag("no_lock", rootCmd.PersistentFlags().Lookup("no-lock"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("pg-dock-backup")
	}

	viper.SetEnvPrefix("PG_DOCK_BACKUP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Nested keys need defaults registered for environment-only overrides
	// to be picked up by Unmarshal.
	viper.SetDefault("storage.s3.enabled", false)
	viper.SetDefault("storage.s3.bucket", "")
	viper.SetDefault("storage.s3.region", "")
	viper.SetDefault("storage.s3.prefix", "")
	viper.SetDefault("storage.s3.access_key", "")
	viper.SetDefault("storage.s3.secret_key", "")

	if err := viper.ReadInConfig(); err == nil && flagVerbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the final configuration from defaults, config file,
// environment and flags.
func loadConfig() (*config.Config, error) {
	cfg := config.NewDefault()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.NewLogger(logging.Config{
		Level:   cfg.LogLevel(),
		Format:  cfg.LogFormat,
		LogFile: cfg.LogFile,
	})
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so an external
// termination still unwinds through the pipeline's deferred cleanup.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runBackup is the main execution function for the CLI
func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	opts := backup.Options{
		Target:      cfg.BackupTarget(),
		BackupDir:   cfg.BackupDir,
		KeepCount:   cfg.KeepCount,
		DisableLock: cfg.NoLock,
	}

	if cfg.Storage.S3.Enabled {
		uploader, err := backup.NewS3Uploader(&cfg.Storage.S3)
		if err != nil {
			return err
		}
		opts.Uploader = uploader
	}

	manager, err := backup.NewManager(runtime.NewDockerCLI(), logger, opts)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := manager.Run(ctx)
	if err != nil {
		return err
	}

	logger.Infof("Backup complete: %s (%d bytes)", result.Snapshot.Path, result.Snapshot.Size)
	return nil
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pg-dock-backup version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
			fmt.Printf("Go version: %s\n", goVersion)
		},
	}
}

// createConfigCommand creates the config subcommand for generating sample config
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file that can be used with the --config flag.

Examples:
  pg-dock-backup config > pg-dock-backup.yaml`,
		Run: func(cmd *cobra.Command, args []string) {
			sampleConfig := `# pg-dock-backup configuration file

target: mydb          # target container name
db_user: user         # database user the dump runs as
db_name: testdb       # database name to dump
backup_dir: ./backups # directory holding committed snapshots
keep_count: 7         # number of most-recent snapshots to keep (0 disables pruning)

no_lock: false        # disable the advisory lock on the backup directory
verbose: false        # enable verbose output
quiet: false          # suppress non-error output (mutually exclusive with verbose)
log_file: ""          # optional log file path (empty = stderr only)
log_format: text      # log format (text, json)

# Optional post-commit upload of the committed snapshot. The local
# filesystem remains the canonical store; an upload failure never changes
# the exit status of the run.
storage:
  s3:
    enabled: false
    bucket: ""
    region: ""
    prefix: backups
    access_key: ""    # leave empty to use the default AWS credential chain
    secret_key: ""

# Every option can also be set via environment variables with the prefix
# PG_DOCK_BACKUP_, e.g.:
#   PG_DOCK_BACKUP_TARGET=mydb
#   PG_DOCK_BACKUP_KEEP_COUNT=14
#   PG_DOCK_BACKUP_STORAGE_S3_BUCKET=my-backups
`
			fmt.Print(sampleConfig)
		},
	}
}

func init() {
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}
