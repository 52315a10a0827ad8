package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-dock-backup/internal/backup"
	"pg-dock-backup/internal/logging"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	assert.Equal(t, "mydb", cfg.Target)
	assert.Equal(t, "user", cfg.DBUser)
	assert.Equal(t, "testdb", cfg.DBName)
	assert.Equal(t, "./backups", cfg.BackupDir)
	assert.Equal(t, 7, cfg.KeepCount)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, expectError: false},
		{name: "keep count zero is valid", mutate: func(c *Config) { c.KeepCount = 0 }, expectError: false},
		{name: "empty target", mutate: func(c *Config) { c.Target = "" }, expectError: true},
		{name: "empty db user", mutate: func(c *Config) { c.DBUser = "" }, expectError: true},
		{name: "empty db name", mutate: func(c *Config) { c.DBName = "" }, expectError: true},
		{name: "empty backup dir", mutate: func(c *Config) { c.BackupDir = "" }, expectError: true},
		{name: "negative keep count", mutate: func(c *Config) { c.KeepCount = -1 }, expectError: true},
		{name: "verbose and quiet", mutate: func(c *Config) { c.Verbose = true; c.Quiet = true }, expectError: true},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, expectError: true},
		{name: "json log format", mutate: func(c *Config) { c.LogFormat = "json" }, expectError: false},
		{name: "incomplete s3", mutate: func(c *Config) { c.Storage.S3.Enabled = true }, expectError: true},
		{
			name: "complete s3",
			mutate: func(c *Config) {
				c.Storage.S3 = backup.S3Config{Enabled: true, Bucket: "b", Region: "r"}
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_LogLevel(t *testing.T) {
	cfg := NewDefault()
	assert.Equal(t, logging.LogLevelNormal, cfg.LogLevel())

	cfg.Verbose = true
	assert.Equal(t, logging.LogLevelVerbose, cfg.LogLevel())

	cfg.Verbose = false
	cfg.Quiet = true
	assert.Equal(t, logging.LogLevelQuiet, cfg.LogLevel())
}

func TestConfig_BackupTarget(t *testing.T) {
	cfg := NewDefault()
	cfg.Target = "db1"
	cfg.DBUser = "alice"
	cfg.DBName = "app"

	target := cfg.BackupTarget()
	assert.Equal(t, backup.Target{Container: "db1", DBUser: "alice", DBName: "app"}, target)
}
