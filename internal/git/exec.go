package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/roadmap-cli/roadmap/internal/debug"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a commit or a file version does not exist.
	ErrNotFound = errors.New("not found in history")

	// ErrNotRepository is returned when the directory is not inside a git
	// work tree.
	ErrNotRepository = errors.New("not a git repository")

	// ErrGitNotAvailable is returned when the git binary is not in PATH.
	ErrGitNotAvailable = errors.New("git binary not available")
)

// execContext runs git with a timeout and folds stderr into the error.
func execContext(ctx context.Context, timeout time.Duration, workDir string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	debug.Logf("git %s\n", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrGitNotAvailable
		}
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.Bytes(), nil
}

// parseLines splits command output into non-empty lines.
func parseLines(output []byte) []string {
	if len(output) == 0 {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
