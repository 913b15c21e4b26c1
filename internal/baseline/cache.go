package baseline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/roadmap-cli/roadmap/internal/types"
)

// Cache persists the most recent baseline. There is one slot per repository.
type Cache interface {
	// Get returns the cached baseline, or nil when the cache is empty.
	Get(ctx context.Context) (*types.SyncState, error)
	Save(ctx context.Context, state *types.SyncState) error
	Clear(ctx context.Context) error
}

// FileCache stores the baseline as a JSON file replaced atomically.
type FileCache struct {
	Path string
}

// NewFileCache returns a cache stored at path.
func NewFileCache(path string) *FileCache {
	return &FileCache{Path: path}
}

func (c *FileCache) Get(ctx context.Context) (*types.SyncState, error) {
	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline cache: %w", err)
	}
	var state types.SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode baseline cache %s: %w", c.Path, err)
	}
	if state.Issues == nil {
		state.Issues = make(map[string]types.IssueBaseState)
	}
	return &state, nil
}

func (c *FileCache) Save(ctx context.Context, state *types.SyncState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode baseline cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := atomic.WriteFile(c.Path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write baseline cache: %w", err)
	}
	return nil
}

func (c *FileCache) Clear(ctx context.Context) error {
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear baseline cache: %w", err)
	}
	return nil
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu    sync.Mutex
	state *types.SyncState
	saves int
}

func (c *MemoryCache) Get(ctx context.Context) (*types.SyncState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone(), nil
}

func (c *MemoryCache) Save(ctx context.Context, state *types.SyncState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state.Clone()
	c.saves++
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = nil
	return nil
}

// Saves returns how many times Save was called.
func (c *MemoryCache) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}
