package baseline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

// Meta records when each backend last synced. It outlives the baseline
// cache so a cleared cache can be reconstructed from history.
type Meta interface {
	LastSync(ctx context.Context, backend string) (time.Time, bool, error)
	SetLastSync(ctx context.Context, backend string, t time.Time) error
}

// lastSyncKey mirrors the "<backend>.last_sync" config key layout.
func lastSyncKey(backend string) string {
	return backend + ".last_sync"
}

// FileMeta keeps sync metadata as a flat JSON key/value file.
type FileMeta struct {
	Path string
	mu   sync.Mutex
}

// NewFileMeta returns metadata stored at path.
func NewFileMeta(path string) *FileMeta {
	return &FileMeta{Path: path}
}

func (m *FileMeta) LastSync(ctx context.Context, backend string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, err := m.read()
	if err != nil {
		return time.Time{}, false, err
	}
	raw, ok := values[lastSyncKey(backend)]
	if !ok || raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s %q: %w", lastSyncKey(backend), raw, err)
	}
	return t, true, nil
}

func (m *FileMeta) SetLastSync(ctx context.Context, backend string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, err := m.read()
	if err != nil {
		return err
	}
	values[lastSyncKey(backend)] = t.UTC().Format(time.RFC3339Nano)

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(m.Path, bytes.NewReader(data))
}

func (m *FileMeta) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(m.Path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode sync metadata %s: %w", m.Path, err)
	}
	return values, nil
}

// MemoryMeta is an in-process Meta.
type MemoryMeta struct {
	mu     sync.Mutex
	values map[string]time.Time
}

func (m *MemoryMeta) LastSync(ctx context.Context, backend string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.values[lastSyncKey(backend)]
	return t, ok, nil
}

func (m *MemoryMeta) SetLastSync(ctx context.Context, backend string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]time.Time)
	}
	m.values[lastSyncKey(backend)] = t
	return nil
}
