package backup

import (
	"fmt"
	"os"

	"pg-dock-backup/internal/logging"
)

// PruneFailure records one snapshot that could not be deleted.
type PruneFailure struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// PruneResult is the aggregate outcome of one retention pass.
type PruneResult struct {
	Disabled bool           `json:"disabled"`
	Matched  int            `json:"matched"`
	Kept     int            `json:"kept"`
	Deleted  int            `json:"deleted"`
	Failures []PruneFailure `json:"failures,omitempty"`
}

// HasFailures reports whether any individual deletion failed.
func (r *PruneResult) HasFailures() bool {
	return len(r.Failures) > 0
}

// removeFile is swapped out by tests to simulate deletion failures.
var removeFile = os.Remove

// Prune enforces the keep-last-K retention policy over dir.
//
// Only files matching the canonical snapshot pattern are considered; staging
// files and anything else in the directory are never touched. Snapshots are
// ordered newest first (modification time, filename as tie-break) and
// everything beyond the first keep entries is deleted.
//
// keep = 0 disables pruning entirely: it means "keep everything", not
// "keep zero". The result reports this distinctly from an empty match.
//
// A failure to delete one file does not abort the pass; it is logged and
// recorded in the result so one locked file cannot prevent pruning the rest.
func Prune(dir string, keep int, logger *logging.Logger) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep count must be >= 0, got %d", keep)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	snapshots, err := ListSnapshots(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots in %s: %w", dir, err)
	}

	result := &PruneResult{Matched: len(snapshots)}

	if keep == 0 {
		result.Disabled = true
		result.Kept = len(snapshots)
		logger.LogPrune(result.Matched, result.Kept, 0, 0, true)
		return result, nil
	}

	for i, snap := range snapshots {
		if i < keep {
			result.Kept++
			continue
		}

		if err := removeFile(snap.Path); err != nil {
			pruneErr := NewPruneFileError("failed to delete expired snapshot", err).
				WithContext("path", snap.Path)
			logger.Warnf("%v", pruneErr)
			result.Failures = append(result.Failures, PruneFailure{Name: snap.Name, Err: pruneErr})
			continue
		}

		logger.Debugf("Deleted expired snapshot %s", snap.Name)
		result.Deleted++
	}

	logger.LogPrune(result.Matched, result.Kept, result.Deleted, len(result.Failures), false)
	return result, nil
}
