package debug

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var errBuf, outBuf bytes.Buffer
	oldErr, oldOut := stderr, stdout
	oldEnabled, oldVerbose, oldQuiet := enabled, verboseMode, quietMode
	stderr, stdout = &errBuf, &outBuf
	t.Cleanup(func() {
		stderr, stdout = oldErr, oldOut
		enabled, verboseMode, quietMode = oldEnabled, oldVerbose, oldQuiet
	})
	return &errBuf, &outBuf
}

func TestLogf(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		verbose bool
		want    string
	}{
		{"disabled", false, false, ""},
		{"env enabled", true, false, "git status\n"},
		{"verbose flag", false, true, "git status\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errBuf, _ := captureOutput(t)
			enabled = tt.enabled
			verboseMode = tt.verbose

			Logf("git %s\n", "status")
			if got := errBuf.String(); got != tt.want {
				t.Errorf("Logf output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintNormal(t *testing.T) {
	_, outBuf := captureOutput(t)

	PrintNormal("synced %d issues\n", 3)
	SetQuiet(true)
	PrintNormal("hidden\n")

	if got := outBuf.String(); got != "synced 3 issues\n" {
		t.Errorf("PrintNormal output = %q", got)
	}
	if !IsQuiet() {
		t.Error("IsQuiet() = false after SetQuiet(true)")
	}
}

func TestLevel(t *testing.T) {
	captureOutput(t)
	enabled = false

	if Level() != slog.LevelWarn {
		t.Errorf("default Level() = %v, want WARN", Level())
	}
	SetQuiet(true)
	if Level() != slog.LevelError {
		t.Errorf("quiet Level() = %v, want ERROR", Level())
	}
	SetVerbose(true)
	if Level() != slog.LevelDebug {
		t.Errorf("verbose Level() = %v, want DEBUG", Level())
	}

	var buf bytes.Buffer
	NewLogger(&buf).Debug("stage", "name", "classify")
	if !bytes.Contains(buf.Bytes(), []byte("name=classify")) {
		t.Errorf("debug record missing: %q", buf.String())
	}
	if !NewLogger(&buf).Enabled(context.Background(), slog.LevelDebug) {
		t.Error("verbose logger should enable debug")
	}
}

func TestLogfAddsNewline(t *testing.T) {
	errBuf, _ := captureOutput(t)
	SetVerbose(true)

	Logf("watch: %s", "WRITE")
	Logf("done\n")
	if got, want := errBuf.String(), "watch: WRITE\ndone\n"; got != want {
		t.Errorf("Logf output = %q, want %q", got, want)
	}
}
