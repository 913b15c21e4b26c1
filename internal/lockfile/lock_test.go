package lockfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestSyncLockExclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	ctx := context.Background()

	first := New(dir, time.Second)
	if err := first.AcquireExclusive(ctx); err != nil {
		t.Fatalf("AcquireExclusive failed: %v", err)
	}

	second := New(dir, 0)
	err := second.AcquireExclusive(ctx)
	if !errors.Is(err, ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy, got %v", err)
	}
	if err := second.AcquireShared(ctx); !errors.Is(err, ErrLockBusy) {
		t.Errorf("shared lock should wait for exclusive holder, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Errorf("second Release should be a no-op: %v", err)
	}
	if err := second.AcquireExclusive(ctx); err != nil {
		t.Errorf("AcquireExclusive after release failed: %v", err)
	}
	_ = second.Release()
}

func TestSyncLockWaitsForRelease(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	holder := New(dir, time.Second)
	if err := holder.AcquireExclusive(ctx); err != nil {
		t.Fatalf("AcquireExclusive failed: %v", err)
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = holder.Release()
	}()

	waiter := New(dir, 5*time.Second)
	if err := waiter.AcquireExclusive(ctx); err != nil {
		t.Fatalf("waiter should acquire after release: %v", err)
	}
	_ = waiter.Release()
}

func TestSyncLockContextCancel(t *testing.T) {
	dir := t.TempDir()
	holder := New(dir, time.Second)
	if err := holder.AcquireExclusive(context.Background()); err != nil {
		t.Fatalf("AcquireExclusive failed: %v", err)
	}
	defer holder.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New(dir, time.Minute).AcquireExclusive(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWithExclusive(t *testing.T) {
	dir := t.TempDir()
	ran := false
	err := WithExclusive(context.Background(), dir, time.Second, func() error {
		ran = true
		if err := New(dir, 0).AcquireExclusive(context.Background()); !errors.Is(err, ErrLockBusy) {
			t.Errorf("lock should be held inside fn, got %v", err)
		}
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("WithExclusive: ran=%v err=%v", ran, err)
	}

	holder := New(dir, 0)
	if err := holder.AcquireExclusive(context.Background()); err != nil {
		t.Fatalf("lock should be released after fn: %v", err)
	}
	defer holder.Release()

	ran = false
	err = WithExclusive(context.Background(), dir, 0, func() error { ran = true; return nil })
	if !errors.Is(err, ErrLockBusy) || ran {
		t.Errorf("fn must not run without the lock: ran=%v err=%v", ran, err)
	}
}
