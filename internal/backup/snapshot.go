package backup

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// Snapshot naming constants. The canonical pattern is the only durable
// metadata the tool relies on: identity and ordering of snapshots are
// derived from the filename, never from a side index.
const (
	// SnapshotPrefix is the fixed prefix of every committed snapshot file.
	SnapshotPrefix = "backup_"
	// SnapshotSuffix is the fixed suffix of every committed snapshot file.
	SnapshotSuffix = ".sql.gz"
	// StagingSuffix is appended to the canonical name while the snapshot is
	// being produced. Staged files never match the canonical pattern.
	StagingSuffix = ".tmp"
	// TimestampLayout is the locale-independent, second-resolution layout
	// embedded in snapshot filenames.
	TimestampLayout = "2006-01-02_15-04-05"
)

// snapshotNamePattern matches exactly the canonical snapshot filename.
// Anchored on both ends so staging files and unrelated files in the backup
// directory are never treated as snapshots.
var snapshotNamePattern = regexp.MustCompile(`^backup_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.sql\.gz$`)

// Snapshot describes one committed backup artifact.
type Snapshot struct {
	Name      string    `json:"name" yaml:"name"`
	Path      string    `json:"path" yaml:"path"`
	Size      int64     `json:"size" yaml:"size"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	ModTime   time.Time `json:"mod_time" yaml:"mod_time"`
}

// SnapshotName returns the canonical filename for a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return SnapshotPrefix + t.Format(TimestampLayout) + SnapshotSuffix
}

// IsSnapshotName reports whether name matches the canonical snapshot pattern.
func IsSnapshotName(name string) bool {
	return snapshotNamePattern.MatchString(name)
}

// ParseSnapshotTime extracts the creation timestamp embedded in a canonical
// snapshot filename. The second return value is false when the name does not
// match the canonical pattern.
func ParseSnapshotTime(name string) (time.Time, bool) {
	if !IsSnapshotName(name) {
		return time.Time{}, false
	}
	stamp := name[len(SnapshotPrefix) : len(name)-len(SnapshotSuffix)]
	t, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ListSnapshots enumerates committed snapshots in dir, newest first.
// Ordering is by modification time descending; ties are broken by filename
// descending, which for timestamp-embedded names is creation order.
// A missing directory is not an error: it simply holds no snapshots.
func ListSnapshots(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !IsSnapshotName(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// The file disappeared between ReadDir and Stat; skip it.
			continue
		}

		createdAt, _ := ParseSnapshotTime(entry.Name())
		snapshots = append(snapshots, Snapshot{
			Name:      entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: createdAt,
			ModTime:   info.ModTime(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].ModTime.Equal(snapshots[j].ModTime) {
			return snapshots[i].ModTime.After(snapshots[j].ModTime)
		}
		return snapshots[i].Name > snapshots[j].Name
	})

	return snapshots, nil
}
