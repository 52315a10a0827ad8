package backup

import (
	"os"
	"path/filepath"
)

// CommitSnapshot promotes a fully produced staging artifact to its canonical
// path with a single rename. A concurrent reader of the backup directory
// observes either no file at the canonical path or the complete file, never
// a partial one.
//
// A canonical name is never overwritten: two runs within the same second
// would collide on the same timestamped name, and the second commit fails
// with CommitFailed rather than silently replacing a committed snapshot.
//
// The parent directory is created if missing (idempotent). There is no
// retry; rename failures (cross-device link, permissions) are fatal.
func CommitSnapshot(stagingPath, canonicalPath string) error {
	if err := os.MkdirAll(filepath.Dir(canonicalPath), 0o755); err != nil {
		return NewCommitError("failed to create backup directory", err).
			WithContext("path", filepath.Dir(canonicalPath))
	}

	if _, err := os.Stat(canonicalPath); err == nil {
		return NewCommitError("canonical path already exists, refusing to overwrite", nil).
			WithContext("path", canonicalPath)
	} else if !os.IsNotExist(err) {
		return NewCommitError("failed to check canonical path", err).
			WithContext("path", canonicalPath)
	}

	if err := os.Rename(stagingPath, canonicalPath); err != nil {
		return NewCommitError("failed to promote staging file", err).
			WithContext("staging_path", stagingPath).
			WithContext("canonical_path", canonicalPath)
	}

	return nil
}
