// Package runtime abstracts the container runtime the backup pipeline
// operates against. The production implementation shells out to the docker
// CLI; tests substitute in-memory fakes.
package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runtime is the container-management capability consumed by the backup
// pipeline: discover running containers and execute a command inside one,
// streaming its output.
type Runtime interface {
	// Available verifies the runtime client tooling is usable at all.
	Available() error

	// ListRunning returns the names of currently running containers.
	ListRunning(ctx context.Context) ([]string, error)

	// Dump executes a logical dump of database as user inside the named
	// container and streams the dump to stdout as it is produced.
	Dump(ctx context.Context, container, user, database string, stdout io.Writer) error
}

// stderrLimit bounds how much of a failing command's stderr is retained
// for diagnostics.
const stderrLimit = 4 * 1024

// DockerCLI implements Runtime by shelling out to the docker client binary.
type DockerCLI struct {
	// Binary is the docker client executable, "docker" unless overridden.
	Binary string
}

// NewDockerCLI creates a DockerCLI runtime with the default binary name.
func NewDockerCLI() *DockerCLI {
	return &DockerCLI{Binary: "docker"}
}

func (d *DockerCLI) binary() string {
	if d.Binary == "" {
		return "docker"
	}
	return d.Binary
}

// Available checks that the docker client binary can be found on PATH.
func (d *DockerCLI) Available() error {
	if _, err := exec.LookPath(d.binary()); err != nil {
		return fmt.Errorf("docker client %q not found in PATH: %w", d.binary(), err)
	}
	return nil
}

// ListRunning returns the names of currently running containers via
// `docker ps --format {{.Names}}`.
func (d *DockerCLI) ListRunning(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, d.binary(), "ps", "--format", "{{.Names}}")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("docker ps failed: %w%s", err, stderrTail(stderr.Bytes()))
	}

	return splitNames(stdout.String()), nil
}

// Dump runs `docker exec <container> pg_dump -U <user> <database>` and
// streams its stdout into w. The dump is written as the container-side
// process produces it; nothing is buffered beyond pipe capacity, so peak
// disk usage on the host is bounded by the compressed artifact alone.
func (d *DockerCLI) Dump(ctx context.Context, container, user, database string, w io.Writer) error {
	cmd := exec.CommandContext(ctx, d.binary(), "exec", container, "pg_dump", "-U", user, database)

	var stderr bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("dump terminated: %w", ctx.Err())
		}
		return fmt.Errorf("pg_dump failed: %w%s", err, stderrTail(stderr.Bytes()))
	}
	return nil
}

// splitNames parses line-separated container names, dropping blanks.
func splitNames(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}

// stderrTail renders the trailing portion of captured stderr for inclusion
// in error messages.
func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return ""
	}
	if len(s) > stderrLimit {
		s = s[len(s)-stderrLimit:]
	}
	return ": " + s
}
