package backup

import (
	"errors"
	"fmt"
)

// Error represents errors that occur during a backup run
type Error struct {
	Kind    ErrorKind              `json:"kind"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorKind represents the failure classes of a backup run
type ErrorKind string

const (
	ErrorKindToolingUnavailable ErrorKind = "TOOLING_UNAVAILABLE"
	ErrorKindTargetUnavailable  ErrorKind = "TARGET_UNAVAILABLE"
	ErrorKindDumpFailed         ErrorKind = "DUMP_FAILED"
	ErrorKindCommitFailed       ErrorKind = "COMMIT_FAILED"
	ErrorKindPruneFile          ErrorKind = "PRUNE_FILE_FAILED"
	ErrorKindLockHeld           ErrorKind = "LOCK_HELD"
)

// NewError creates a new Error
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewToolingError(message string, cause error) *Error {
	return NewError(ErrorKindToolingUnavailable, message, cause)
}

func NewTargetError(message string, cause error) *Error {
	return NewError(ErrorKindTargetUnavailable, message, cause)
}

func NewDumpError(message string, cause error) *Error {
	return NewError(ErrorKindDumpFailed, message, cause)
}

func NewCommitError(message string, cause error) *Error {
	return NewError(ErrorKindCommitFailed, message, cause)
}

func NewPruneFileError(message string, cause error) *Error {
	return NewError(ErrorKindPruneFile, message, cause)
}

func NewLockError(message string, cause error) *Error {
	return NewError(ErrorKindLockHeld, message, cause)
}

// Process exit codes. These form a stable contract consumed by external
// schedulers (cron, CI) and must not be renumbered.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitTooling = 2
	ExitTarget  = 3
	ExitDump    = 4
	ExitCommit  = 5
)

// ExitCode maps an error to its process exit status. A nil error maps to
// ExitOK; errors outside the backup taxonomy map to ExitUsage.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var backupErr *Error
	if !errors.As(err, &backupErr) {
		return ExitUsage
	}

	switch backupErr.Kind {
	case ErrorKindToolingUnavailable:
		return ExitTooling
	case ErrorKindTargetUnavailable:
		return ExitTarget
	case ErrorKindDumpFailed:
		return ExitDump
	case ErrorKindCommitFailed:
		return ExitCommit
	default:
		return ExitUsage
	}
}

// IsFatal reports whether an error terminates the run. Per-file prune
// failures are recovered locally and never abort the run.
func IsFatal(err error) bool {
	var backupErr *Error
	if !errors.As(err, &backupErr) {
		return err != nil
	}
	return backupErr.Kind != ErrorKindPruneFile
}
