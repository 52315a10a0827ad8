package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-dock-backup/internal/logging"
)

// writeSnapshots creates n canonical snapshot files with strictly increasing
// timestamps and mtimes, oldest first, and returns their names.
func writeSnapshots(t *testing.T, dir string, n int) []string {
	t.Helper()

	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		name := SnapshotName(ts)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("dump %d", i)), 0o600))
		require.NoError(t, os.Chtimes(path, ts, ts))
		names = append(names, name)
	}
	return names
}

func TestPrune_KeepsNewestK(t *testing.T) {
	dir := t.TempDir()
	names := writeSnapshots(t, dir, 5)

	result, err := Prune(dir, 3, logging.NewDefaultLogger())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Matched)
	assert.Equal(t, 3, result.Kept)
	assert.Equal(t, 2, result.Deleted)
	assert.False(t, result.HasFailures())

	remaining, err := ListSnapshots(dir)
	require.NoError(t, err)
	require.Len(t, remaining, 3)
	assert.Equal(t, names[4], remaining[0].Name)
	assert.Equal(t, names[3], remaining[1].Name)
	assert.Equal(t, names[2], remaining[2].Name)
}

func TestPrune_UnderLimit(t *testing.T) {
	dir := t.TempDir()
	writeSnapshots(t, dir, 2)

	result, err := Prune(dir, 7, logging.NewDefaultLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Kept)
	assert.Equal(t, 0, result.Deleted)
}

func TestPrune_ZeroDisables(t *testing.T) {
	dir := t.TempDir()
	writeSnapshots(t, dir, 4)

	result, err := Prune(dir, 0, logging.NewDefaultLogger())
	require.NoError(t, err)

	assert.True(t, result.Disabled)
	assert.Equal(t, 4, result.Matched)
	assert.Equal(t, 4, result.Kept)
	assert.Equal(t, 0, result.Deleted)

	remaining, err := ListSnapshots(dir)
	require.NoError(t, err)
	assert.Len(t, remaining, 4, "keep_count=0 must never delete anything")
}

func TestPrune_NegativeKeep(t *testing.T) {
	_, err := Prune(t.TempDir(), -1, nil)
	assert.Error(t, err)
}

func TestPrune_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeSnapshots(t, dir, 3)

	staging := filepath.Join(dir, "backup_2024-03-15_12-00-00.sql.gz"+StagingSuffix)
	unrelated := filepath.Join(dir, "restore-notes.md")
	require.NoError(t, os.WriteFile(staging, []byte("partial"), 0o600))
	require.NoError(t, os.WriteFile(unrelated, []byte("keep me"), 0o600))

	result, err := Prune(dir, 1, logging.NewDefaultLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 2, result.Deleted)

	_, err = os.Stat(staging)
	assert.NoError(t, err, "staging files are never pruned")
	_, err = os.Stat(unrelated)
	assert.NoError(t, err, "unrelated files are never pruned")
}

func TestPrune_PartialFailureContinues(t *testing.T) {
	dir := t.TempDir()
	names := writeSnapshots(t, dir, 4)

	// Fail deletion of the oldest snapshot only.
	blocked := filepath.Join(dir, names[0])
	origRemove := removeFile
	removeFile = func(path string) error {
		if path == blocked {
			return errors.New("permission denied")
		}
		return os.Remove(path)
	}
	defer func() { removeFile = origRemove }()

	result, err := Prune(dir, 1, logging.NewDefaultLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Kept)
	assert.Equal(t, 2, result.Deleted, "remaining files are still pruned after one failure")
	require.Len(t, result.Failures, 1)
	assert.Equal(t, names[0], result.Failures[0].Name)

	// The aggregate failure stays soft.
	assert.Equal(t, ExitOK, ExitCode(nil))
	var backupErr *Error
	require.ErrorAs(t, result.Failures[0].Err, &backupErr)
	assert.Equal(t, ErrorKindPruneFile, backupErr.Kind)
	assert.False(t, IsFatal(result.Failures[0].Err))
}

func TestPrune_RetentionBoundOverSuccessiveRuns(t *testing.T) {
	dir := t.TempDir()
	const keep = 3

	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	for n := 1; n <= 6; n++ {
		ts := base.Add(time.Duration(n) * time.Minute)
		path := filepath.Join(dir, SnapshotName(ts))
		require.NoError(t, os.WriteFile(path, []byte("dump"), 0o600))
		require.NoError(t, os.Chtimes(path, ts, ts))

		result, err := Prune(dir, keep, logging.NewDefaultLogger())
		require.NoError(t, err)
		assert.False(t, result.HasFailures())

		remaining, err := ListSnapshots(dir)
		require.NoError(t, err)

		want := n
		if want > keep {
			want = keep
		}
		assert.Len(t, remaining, want, "after run %d", n)
		// The newest snapshot always survives.
		assert.Equal(t, SnapshotName(ts), remaining[0].Name)
	}
}
