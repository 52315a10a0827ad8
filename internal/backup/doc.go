// Package backup implements point-in-time snapshots of a containerized
// PostgreSQL database with bounded retention.
//
// The pipeline runs as a single sequential flow per invocation:
//
//  1. Preflight: verify the docker client exists and the target container
//     is running, turning a late pipeline failure into an early, named one.
//  2. Produce: stream pg_dump output through gzip into a staging file. The
//     dump is compressed as it is produced; no uncompressed intermediate
//     ever touches disk.
//  3. Commit: promote the staging file to its canonical timestamped name
//     with a single atomic rename. A snapshot is either absent or fully
//     committed; no partial file is ever visible under a canonical name.
//  4. Prune: keep the newest K committed snapshots, delete the rest.
//     Per-file deletion failures are soft and never fail the run.
//
// Every failure class maps to a distinct, stable process exit status (see
// ExitCode); that mapping is the only interface external schedulers rely on.
//
// Snapshot identity and ordering are derived solely from the canonical
// filename. The tool functions correctly even if all prior state is lost,
// as long as the snapshot files themselves remain.
package backup
