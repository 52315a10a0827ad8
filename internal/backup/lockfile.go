package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is the advisory lock created in the backup directory so
// overlapping invocations against the same directory fail fast instead of
// interleaving their staging and prune phases.
const LockFileName = ".pg-dock-backup.lock"

// LockFile is an advisory, pid-stamped lock on a backup directory.
type LockFile struct {
	path string
}

// AcquireLock takes the advisory lock for dir, creating dir if needed.
// A lock left behind by a dead process is taken over; a lock held by a live
// process yields a LockHeld error.
func AcquireLock(dir string) (*LockFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewLockError("failed to create backup directory", err)
	}

	path := filepath.Join(dir, LockFileName)

	lock, err := tryCreateLock(path)
	if err == nil {
		return lock, nil
	}
	if !os.IsExist(err) {
		return nil, NewLockError("failed to create lock file", err)
	}

	// Lock file exists. If its owner is gone, take the lock over.
	pid, readErr := readLockPID(path)
	if readErr == nil && pid > 0 && processAlive(pid) {
		return nil, NewLockError(
			fmt.Sprintf("another backup run (pid %d) holds the lock", pid), nil).
			WithContext("lock_path", path)
	}

	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, NewLockError("failed to remove stale lock file", rmErr)
	}

	lock, err = tryCreateLock(path)
	if err != nil {
		return nil, NewLockError("failed to acquire lock after stale takeover", err)
	}
	return lock, nil
}

// Release removes the lock file. Safe to call once per acquisition.
func (l *LockFile) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the lock file location.
func (l *LockFile) Path() string {
	return l.path
}

func tryCreateLock(path string) (*LockFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	_, writeErr := fmt.Fprintf(f, "%d\n", os.Getpid())
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(path)
		if writeErr != nil {
			return nil, writeErr
		}
		return nil, closeErr
	}
	return &LockFile{path: path}, nil
}

func readLockPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive probes pid with signal 0. On platforms without signal
// support the probe errs on the side of treating the lock as stale.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
