package backup

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	cause := errors.New("connection refused")

	err := NewDumpError("dump pipeline failed", cause)
	assert.Contains(t, err.Error(), "DUMP_FAILED")
	assert.Contains(t, err.Error(), "dump pipeline failed")
	assert.Contains(t, err.Error(), "connection refused")

	errNoCause := NewTargetError("container not running", nil)
	assert.Contains(t, errNoCause.Error(), "TARGET_UNAVAILABLE")
	assert.NotContains(t, errNoCause.Error(), "caused by")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewCommitError("promotion failed", cause)

	assert.ErrorIs(t, err, cause)
}

func TestError_WithContext(t *testing.T) {
	err := NewTargetError("container not running", nil).
		WithContext("running", []string{"web", "db"})

	require.NotNil(t, err.Context)
	assert.Equal(t, []string{"web", "db"}, err.Context["running"])
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error", err: nil, want: ExitOK},
		{name: "tooling unavailable", err: NewToolingError("docker missing", nil), want: ExitTooling},
		{name: "target unavailable", err: NewTargetError("not running", nil), want: ExitTarget},
		{name: "dump failed", err: NewDumpError("pg_dump exited 1", nil), want: ExitDump},
		{name: "commit failed", err: NewCommitError("rename failed", nil), want: ExitCommit},
		{name: "lock held", err: NewLockError("lock held", nil), want: ExitUsage},
		{name: "plain error", err: errors.New("something else"), want: ExitUsage},
		{name: "wrapped backup error", err: fmt.Errorf("run failed: %w", NewDumpError("boom", nil)), want: ExitDump},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(NewPruneFileError("cannot delete", nil)))
	assert.True(t, IsFatal(NewDumpError("boom", nil)))
	assert.True(t, IsFatal(errors.New("plain")))
}
