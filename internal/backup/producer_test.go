package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-dock-backup/internal/logging"
)

// fakeRuntime is an in-memory Runtime used across producer and manager tests.
type fakeRuntime struct {
	availableErr error
	running      []string
	listErr      error
	dumpData     []byte
	dumpErr      error
	dumpCalls    int
}

func (f *fakeRuntime) Available() error {
	return f.availableErr
}

func (f *fakeRuntime) ListRunning(ctx context.Context) ([]string, error) {
	return f.running, f.listErr
}

func (f *fakeRuntime) Dump(ctx context.Context, container, user, database string, w io.Writer) error {
	f.dumpCalls++
	if f.dumpErr != nil {
		return f.dumpErr
	}
	_, err := w.Write(f.dumpData)
	return err
}

func testTarget() Target {
	return Target{Container: "mydb", DBUser: "user", DBName: "testdb"}
}

func TestProducer_Produce(t *testing.T) {
	dir := t.TempDir()
	staging := filepath.Join(dir, "backup_2024-03-15_09-30-45.sql.gz"+StagingSuffix)
	dump := []byte("-- PostgreSQL database dump\nCREATE TABLE t (id int);\n")

	rt := &fakeRuntime{dumpData: dump}
	producer := NewProducer(rt, logging.NewDefaultLogger())

	result, err := producer.Produce(context.Background(), testTarget(), staging)
	require.NoError(t, err)

	assert.Equal(t, int64(len(dump)), result.BytesDumped)
	assert.Greater(t, result.BytesWritten, int64(0))

	// The staging artifact is a complete gzip stream of the dump.
	file, err := os.Open(staging)
	require.NoError(t, err)
	defer file.Close()

	reader, err := gzip.NewReader(file)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, dump, decompressed)
}

func TestProducer_DumpFailure(t *testing.T) {
	dir := t.TempDir()
	staging := filepath.Join(dir, "backup_2024-03-15_09-30-45.sql.gz"+StagingSuffix)

	rt := &fakeRuntime{dumpErr: errors.New("pg_dump: connection refused")}
	producer := NewProducer(rt, logging.NewDefaultLogger())

	_, err := producer.Produce(context.Background(), testTarget(), staging)
	require.Error(t, err)
	assert.Equal(t, ExitDump, ExitCode(err))
}

func TestProducer_EmptyDump(t *testing.T) {
	dir := t.TempDir()
	staging := filepath.Join(dir, "backup_2024-03-15_09-30-45.sql.gz"+StagingSuffix)

	rt := &fakeRuntime{dumpData: nil}
	producer := NewProducer(rt, logging.NewDefaultLogger())

	_, err := producer.Produce(context.Background(), testTarget(), staging)
	require.Error(t, err)
	assert.Equal(t, ExitDump, ExitCode(err))
}

func TestProducer_StagingAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	staging := filepath.Join(dir, "backup_2024-03-15_09-30-45.sql.gz"+StagingSuffix)
	require.NoError(t, os.WriteFile(staging, []byte("leftover"), 0o600))

	producer := NewProducer(&fakeRuntime{dumpData: []byte("dump")}, logging.NewDefaultLogger())

	_, err := producer.Produce(context.Background(), testTarget(), staging)
	require.Error(t, err)
	assert.Equal(t, ExitDump, ExitCode(err))
}

func TestTarget_Validate(t *testing.T) {
	tests := []struct {
		name        string
		target      Target
		expectError bool
	}{
		{name: "valid", target: testTarget(), expectError: false},
		{name: "missing container", target: Target{DBUser: "user", DBName: "db"}, expectError: true},
		{name: "missing user", target: Target{Container: "c", DBName: "db"}, expectError: true},
		{name: "missing database", target: Target{Container: "c", DBUser: "user"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
