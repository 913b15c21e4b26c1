package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsIssueFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"issues/abc12345.md", true},
		{"abc12345.md~", false},
		{".abc12345.md.swp", false},
		{".hidden.md", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		if got := IsIssueFile(tt.name); got != tt.want {
			t.Errorf("IsIssueFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRunDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	w.Debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs int32
	ran := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) {
			atomic.AddInt32(&runs, 1)
			ran <- struct{}{}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "abc12345.md")
		if err := os.WriteFile(path, []byte("---\ntitle: x\n---\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("callback never ran")
	}
	time.Sleep(300 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"))
	if err := w.Run(context.Background(), func(context.Context) {}); err == nil {
		t.Error("Run() should fail for a missing directory")
	}
}
