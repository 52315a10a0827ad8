package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"

	"pg-dock-backup/internal/logging"
	"pg-dock-backup/internal/runtime"
)

// Target identifies the container and database a snapshot is taken of.
type Target struct {
	Container string `json:"container"`
	DBUser    string `json:"db_user"`
	DBName    string `json:"db_name"`
}

// Validate checks that all target fields are present.
func (t *Target) Validate() error {
	if t.Container == "" {
		return fmt.Errorf("target container name is required")
	}
	if t.DBUser == "" {
		return fmt.Errorf("database user is required")
	}
	if t.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

// ProduceResult reports what the dump/compress pipeline wrote.
type ProduceResult struct {
	StagingPath  string        `json:"staging_path"`
	BytesDumped  int64         `json:"bytes_dumped"`
	BytesWritten int64         `json:"bytes_written"`
	Duration     time.Duration `json:"duration"`
}

// Producer runs the logical dump against a target and compresses the output
// stream as it is produced, writing the result to a staging path.
//
// The dump is piped straight into the gzip writer: no uncompressed
// intermediate is ever materialized on disk, so peak disk usage is bounded
// by the compressed artifact regardless of dump size.
type Producer struct {
	runtime runtime.Runtime
	logger  *logging.Logger
}

// NewProducer creates a Producer backed by the given container runtime.
func NewProducer(rt runtime.Runtime, logger *logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Producer{runtime: rt, logger: logger}
}

// Produce dumps the target database into a gzip stream at stagingPath.
// On any failure the staging file is left for the caller's deferred cleanup
// and a DumpFailed error is returned; the artifact must never be promoted.
func (p *Producer) Produce(ctx context.Context, target Target, stagingPath string) (*ProduceResult, error) {
	start := time.Now()

	file, err := os.OpenFile(stagingPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, NewDumpError("failed to create staging file", err).
			WithContext("staging_path", stagingPath)
	}

	gz := gzip.NewWriter(file)
	counter := &countingWriter{w: gz}

	if err := p.runtime.Dump(ctx, target.Container, target.DBUser, target.DBName, counter); err != nil {
		gz.Close()
		file.Close()
		return nil, NewDumpError("dump pipeline failed", err).
			WithContext("container", target.Container).
			WithContext("database", target.DBName)
	}

	if err := gz.Close(); err != nil {
		file.Close()
		return nil, NewDumpError("failed to finalize compressed stream", err)
	}

	// Flush to stable storage before the artifact is considered complete,
	// otherwise a crash after rename could expose a truncated snapshot.
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, NewDumpError("failed to sync staging file", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, NewDumpError("failed to stat staging file", err)
	}

	if err := file.Close(); err != nil {
		return nil, NewDumpError("failed to close staging file", err)
	}

	if counter.n == 0 {
		return nil, NewDumpError("dump produced no output", nil).
			WithContext("database", target.DBName)
	}

	result := &ProduceResult{
		StagingPath:  stagingPath,
		BytesDumped:  counter.n,
		BytesWritten: info.Size(),
		Duration:     time.Since(start),
	}

	p.logger.LogSnapshotProduced(stagingPath, result.BytesDumped, result.BytesWritten, result.Duration)
	return result, nil
}

// countingWriter counts uncompressed bytes flowing into the compressor.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
