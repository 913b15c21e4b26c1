// Package debug gates diagnostic output behind ROADMAP_DEBUG or --verbose
// and builds the process-wide structured logger.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	enabled     = os.Getenv("ROADMAP_DEBUG") != ""
	verboseMode bool
	quietMode   bool

	// mu serializes writes so watch-mode goroutines don't interleave lines.
	mu     sync.Mutex
	stderr io.Writer = os.Stderr
	stdout io.Writer = os.Stdout
)

// Enabled reports whether diagnostic output is on.
func Enabled() bool { return enabled || verboseMode }

func SetVerbose(v bool) { verboseMode = v }

// SetQuiet suppresses PrintNormal output.
func SetQuiet(q bool) { quietMode = q }

func IsQuiet() bool { return quietMode }

// Logf writes a diagnostic line to stderr when Enabled. A trailing newline
// is added if the format lacks one.
func Logf(format string, args ...any) {
	if !Enabled() {
		return
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	write(stderr, format, args...)
}

// PrintNormal writes user-facing progress to stdout unless quiet.
func PrintNormal(format string, args ...any) {
	if quietMode {
		return
	}
	write(stdout, format, args...)
}

func write(w io.Writer, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(w, format, args...)
}

// Level maps the verbose/quiet switches onto a slog level.
func Level() slog.Level {
	switch {
	case Enabled():
		return slog.LevelDebug
	case quietMode:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// NewLogger returns a text logger writing to w at Level().
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level()}))
}
