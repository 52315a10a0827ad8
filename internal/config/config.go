// Package config resolves the tool's configuration from flags, environment
// and an optional YAML file into one explicit struct. Resolution is pure:
// no component reads ambient environment state after startup.
package config

import (
	"fmt"

	"pg-dock-backup/internal/backup"
	"pg-dock-backup/internal/logging"
)

// Defaults for every recognized option. Each field is independently
// overridable; no field derives another.
const (
	DefaultTarget    = "mydb"
	DefaultDBUser    = "user"
	DefaultDBName    = "testdb"
	DefaultBackupDir = "./backups"
	DefaultKeepCount = 7
)

// Config is the fully resolved configuration for one invocation.
type Config struct {
	// Target container and database identity.
	Target    string `mapstructure:"target"`
	DBUser    string `mapstructure:"db_user"`
	DBName    string `mapstructure:"db_name"`
	BackupDir string `mapstructure:"backup_dir"`

	// KeepCount is the retention policy: number of most-recent snapshots to
	// keep. Zero disables pruning entirely.
	KeepCount int `mapstructure:"keep_count"`

	// NoLock disables the advisory lock on the backup directory.
	NoLock bool `mapstructure:"no_lock"`

	// Operation settings.
	Verbose   bool   `mapstructure:"verbose"`
	Quiet     bool   `mapstructure:"quiet"`
	LogFile   string `mapstructure:"log_file"`
	LogFormat string `mapstructure:"log_format"`

	// Storage holds optional remote storage settings.
	Storage StorageConfig `mapstructure:"storage"`
}

// StorageConfig groups remote storage backends.
type StorageConfig struct {
	S3 backup.S3Config `mapstructure:"s3"`
}

// NewDefault returns a Config populated with all defaults.
func NewDefault() *Config {
	return &Config{
		Target:    DefaultTarget,
		DBUser:    DefaultDBUser,
		DBName:    DefaultDBName,
		BackupDir: DefaultBackupDir,
		KeepCount: DefaultKeepCount,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target container name cannot be empty")
	}
	if c.DBUser == "" {
		return fmt.Errorf("db_user cannot be empty")
	}
	if c.DBName == "" {
		return fmt.Errorf("db_name cannot be empty")
	}
	if c.BackupDir == "" {
		return fmt.Errorf("backup_dir cannot be empty")
	}
	if c.KeepCount < 0 {
		return fmt.Errorf("keep_count must be >= 0, got %d", c.KeepCount)
	}
	if c.Verbose && c.Quiet {
		return fmt.Errorf("verbose and quiet are mutually exclusive")
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	if err := c.Storage.S3.Validate(); err != nil {
		return fmt.Errorf("invalid storage configuration: %w", err)
	}
	return nil
}

// LogLevel maps the verbosity flags to a logging level.
func (c *Config) LogLevel() logging.LogLevel {
	switch {
	case c.Quiet:
		return logging.LogLevelQuiet
	case c.Verbose:
		return logging.LogLevelVerbose
	default:
		return logging.LogLevelNormal
	}
}

// BackupTarget returns the backup.Target described by this configuration.
func (c *Config) BackupTarget() backup.Target {
	return backup.Target{
		Container: c.Target,
		DBUser:    c.DBUser,
		DBName:    c.DBName,
	}
}
