package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	// LogLevelQuiet suppresses all output except errors
	LogLevelQuiet LogLevel = "quiet"
	// LogLevelNormal shows standard operational messages
	LogLevelNormal LogLevel = "normal"
	// LogLevelVerbose shows detailed operational information
	LogLevelVerbose LogLevel = "verbose"
	// LogLevelDebug shows all debug information
	LogLevelDebug LogLevel = "debug"
)

// Logger provides structured logging capabilities
type Logger struct {
	logger *logrus.Logger
	level  LogLevel
}

// Config holds logger configuration
type Config struct {
	Level   LogLevel
	Output  io.Writer
	Format  string // "text" or "json"
	LogFile string
}

// NewLogger creates a new logger with the specified configuration.
// Log output goes to stderr by default so that stdout stays usable for
// machine-readable command output.
func NewLogger(config Config) (*Logger, error) {
	logger := logrus.New()

	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	logger.SetOutput(output)

	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   !isTerminal(output),
		})
	}

	switch config.Level {
	case LogLevelQuiet:
		logger.SetLevel(logrus.ErrorLevel)
	case LogLevelNormal:
		logger.SetLevel(logrus.InfoLevel)
	case LogLevelVerbose:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelDebug:
		logger.SetLevel(logrus.TraceLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
		}
		logger.SetOutput(io.MultiWriter(output, file))
	}

	return &Logger{
		logger: logger,
		level:  config.Level,
	}, nil
}

// NewDefaultLogger creates a logger with default configuration
func NewDefaultLogger() *Logger {
	logger, _ := NewLogger(Config{
		Level:  LogLevelNormal,
		Format: "text",
	})
	return logger
}

// isTerminal reports whether w is an interactive terminal, so color output
// can be disabled for pipes and cron mail.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// WithFields returns a logger entry with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// WithField returns a logger entry with a single additional field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

// Backup operation logging methods

// LogPreflight logs the container reachability check
func (l *Logger) LogPreflight(target string, running []string, err error) {
	fields := logrus.Fields{
		"operation": "preflight",
		"target":    target,
	}

	if err != nil {
		fields["running"] = running
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("Preflight check failed")
	} else {
		l.logger.WithFields(fields).Debug("Target container is running")
	}
}

// LogSnapshotProduced logs completion of the dump/compress pipeline
func (l *Logger) LogSnapshotProduced(stagingPath string, bytesDumped, bytesWritten int64, duration time.Duration) {
	l.logger.WithFields(logrus.Fields{
		"operation":     "produce",
		"staging_path":  stagingPath,
		"bytes_dumped":  bytesDumped,
		"bytes_written": bytesWritten,
		"duration":      duration.String(),
	}).Info("Snapshot produced")
}

// LogCommit logs promotion of a staged snapshot to its canonical name
func (l *Logger) LogCommit(canonicalPath string, size int64) {
	l.logger.WithFields(logrus.Fields{
		"operation": "commit",
		"path":      canonicalPath,
		"size":      size,
	}).Info("Snapshot committed")
}

// LogPrune logs the outcome of a retention pass
func (l *Logger) LogPrune(matched, kept, deleted, failed int, disabled bool) {
	fields := logrus.Fields{
		"operation": "prune",
		"matched":   matched,
		"kept":      kept,
		"deleted":   deleted,
		"failed":    failed,
	}

	if disabled {
		l.logger.WithFields(fields).Info("Pruning disabled (keep_count=0)")
		return
	}
	if failed > 0 {
		l.logger.WithFields(fields).Warn("Retention pass completed with failures")
	} else {
		l.logger.WithFields(fields).Info("Retention pass completed")
	}
}

// Standard logging methods

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// Level returns the configured log level
func (l *Logger) Level() LogLevel {
	return l.level
}
