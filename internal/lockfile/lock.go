// Package lockfile serializes syncs against the same issue store across
// processes with an advisory file lock.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/roadmap-cli/roadmap/internal/debug"
)

const (
	// FileName is the lock file created inside the state directory.
	FileName = ".sync.lock"

	// DefaultTimeout is the maximum time to wait for the lock.
	DefaultTimeout = 30 * time.Second

	pollInterval = 50 * time.Millisecond
)

// ErrLockBusy is returned when another process holds the lock past the timeout.
var ErrLockBusy = errors.New("sync lock held by another process")

// SyncLock is an exclusive or shared lock on <dir>/.sync.lock.
type SyncLock struct {
	flock   *flock.Flock
	timeout time.Duration
	mode    string
}

// New returns an unlocked SyncLock in dir. A zero timeout tries once.
func New(dir string, timeout time.Duration) *SyncLock {
	return &SyncLock{
		flock:   flock.New(filepath.Join(dir, FileName)),
		timeout: timeout,
	}
}

// Path returns the lock file path.
func (l *SyncLock) Path() string { return l.flock.Path() }

// AcquireExclusive blocks writers and readers. Use it around syncs and
// baseline mutations.
func (l *SyncLock) AcquireExclusive(ctx context.Context) error {
	return l.acquireWithRetry(ctx, true)
}

// AcquireShared allows concurrent readers but excludes writers.
func (l *SyncLock) AcquireShared(ctx context.Context) error {
	return l.acquireWithRetry(ctx, false)
}

// Release releases the lock. Safe to call more than once.
func (l *SyncLock) Release() error {
	if l.mode == "" {
		return nil
	}
	debug.Logf("releasing %s sync lock: %s\n", l.mode, l.flock.Path())
	l.mode = ""
	return l.flock.Unlock()
}

func (l *SyncLock) acquireWithRetry(ctx context.Context, exclusive bool) error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	lockType := "shared"
	tryAcquire := l.flock.TryRLock
	if exclusive {
		lockType = "exclusive"
		tryAcquire = l.flock.TryLock
	}

	start := time.Now()
	deadline := start.Add(l.timeout)
	for {
		locked, err := tryAcquire()
		if err != nil {
			return fmt.Errorf("failed to acquire %s sync lock: %w", lockType, err)
		}
		if locked {
			l.mode = lockType
			debug.Logf("acquired %s sync lock after %v: %s\n", lockType, time.Since(start), l.flock.Path())
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: waited %v for %s lock (another sync may be running - try again in a moment)",
				ErrLockBusy, time.Since(start).Round(time.Millisecond), lockType)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// WithExclusive runs fn while holding an exclusive lock on dir. fn is not
// run when the lock cannot be acquired.
func WithExclusive(ctx context.Context, dir string, timeout time.Duration, fn func() error) error {
	lock := New(dir, timeout)
	if err := lock.AcquireExclusive(ctx); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()
	return fn()
}
