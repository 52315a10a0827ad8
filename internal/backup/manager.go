package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pg-dock-backup/internal/logging"
	"pg-dock-backup/internal/runtime"
)

// Options configures one backup run.
type Options struct {
	Target      Target
	BackupDir   string
	KeepCount   int
	DisableLock bool

	// Uploader, when set, receives the committed snapshot after promotion.
	Uploader Uploader

	// Now is the clock used for snapshot naming. Defaults to time.Now.
	Now func() time.Time
}

// Validate checks the options for a runnable configuration.
func (o *Options) Validate() error {
	if err := o.Target.Validate(); err != nil {
		return err
	}
	if o.BackupDir == "" {
		return fmt.Errorf("backup directory is required")
	}
	if o.KeepCount < 0 {
		return fmt.Errorf("keep count must be >= 0, got %d", o.KeepCount)
	}
	return nil
}

// Result reports a completed backup run.
type Result struct {
	RunID          string       `json:"run_id"`
	Snapshot       Snapshot     `json:"snapshot"`
	Prune          *PruneResult `json:"prune,omitempty"`
	UploadLocation string       `json:"upload_location,omitempty"`
}

// Manager orchestrates the backup pipeline: preflight, produce, commit,
// prune. Each stage either proceeds or fails fast; nothing is retried.
type Manager struct {
	runtime  runtime.Runtime
	producer *Producer
	logger   *logging.Logger
	opts     Options
}

// NewManager creates a Manager for the given runtime and options.
func NewManager(rt runtime.Runtime, logger *logging.Logger, opts Options) (*Manager, error) {
	if rt == nil {
		return nil, fmt.Errorf("container runtime is required")
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backup options: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Manager{
		runtime:  rt,
		producer: NewProducer(rt, logger),
		logger:   logger,
		opts:     opts,
	}, nil
}

// Preflight verifies the runtime tooling is usable and the target container
// is currently running. On TargetUnavailable the error carries the set of
// running containers as diagnostic context.
func (m *Manager) Preflight(ctx context.Context) ([]string, error) {
	if err := m.runtime.Available(); err != nil {
		return nil, NewToolingError("container runtime client unavailable", err)
	}

	running, err := m.runtime.ListRunning(ctx)
	if err != nil {
		return nil, NewToolingError("failed to list running containers", err)
	}

	for _, name := range running {
		if name == m.opts.Target.Container {
			m.logger.LogPreflight(m.opts.Target.Container, running, nil)
			return running, nil
		}
	}

	targetErr := NewTargetError(
		fmt.Sprintf("container %q is not running (running: %v)", m.opts.Target.Container, running), nil).
		WithContext("running", running)
	m.logger.LogPreflight(m.opts.Target.Container, running, targetErr)
	return running, targetErr
}

// Run executes one full backup run. The staging file is removed on every
// exit path that does not end in a successful promotion, including
// cancellation by signal: the caller is expected to drive Run with a
// signal-aware context so an external termination still unwinds through the
// deferred cleanup.
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := m.logger.WithFields(logrus.Fields{
		"run_id":    runID,
		"container": m.opts.Target.Container,
		"database":  m.opts.Target.DBName,
	})
	log.Info("Starting backup run")

	if _, err := m.Preflight(ctx); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(m.opts.BackupDir, 0o755); err != nil {
		return nil, NewDumpError("failed to create backup directory", err).
			WithContext("backup_dir", m.opts.BackupDir)
	}

	if !m.opts.DisableLock {
		lock, err := AcquireLock(m.opts.BackupDir)
		if err != nil {
			return nil, err
		}
		defer lock.Release()
	}

	createdAt := m.opts.Now()
	name := SnapshotName(createdAt)
	canonicalPath := filepath.Join(m.opts.BackupDir, name)
	stagingPath := canonicalPath + StagingSuffix

	// Guaranteed staging cleanup: runs on every exit path that did not
	// promote the artifact, normal errors and signal unwinds alike.
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := os.Remove(stagingPath); err != nil && !os.IsNotExist(err) {
			log.WithField("staging_path", stagingPath).Warnf("Failed to remove staging file: %v", err)
		}
	}()

	if _, err := m.producer.Produce(ctx, m.opts.Target, stagingPath); err != nil {
		return nil, err
	}

	if err := CommitSnapshot(stagingPath, canonicalPath); err != nil {
		return nil, err
	}
	committed = true

	info, err := os.Stat(canonicalPath)
	if err != nil {
		// The snapshot was committed; failing the run now would misreport.
		log.Warnf("Failed to stat committed snapshot: %v", err)
	}

	result := &Result{
		RunID: runID,
		Snapshot: Snapshot{
			Name:      name,
			Path:      canonicalPath,
			CreatedAt: createdAt,
		},
	}
	if info != nil {
		result.Snapshot.Size = info.Size()
		result.Snapshot.ModTime = info.ModTime()
	}
	m.logger.LogCommit(canonicalPath, result.Snapshot.Size)

	if m.opts.Uploader != nil {
		location, err := m.opts.Uploader.Upload(ctx, canonicalPath)
		if err != nil {
			// Soft failure: the snapshot already exists locally.
			log.Warnf("Snapshot upload failed: %v", err)
		} else {
			result.UploadLocation = location
			log.Infof("Snapshot uploaded to %s", location)
		}
	}

	pruneResult, err := Prune(m.opts.BackupDir, m.opts.KeepCount, m.logger)
	if err != nil {
		// Soft failure: pruning does not invalidate the snapshot just made.
		log.Warnf("Retention pass failed: %v", err)
	} else {
		result.Prune = pruneResult
	}

	return result, nil
}
