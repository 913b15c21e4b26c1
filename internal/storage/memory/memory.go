// Package memory implements an in-memory issue store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roadmap-cli/roadmap/internal/storage"
	"github.com/roadmap-cli/roadmap/internal/types"
)

// MemoryStorage keeps issues in a map. Issues are cloned on the way in and
// out so callers never share state with the store.
type MemoryStorage struct {
	mu     sync.RWMutex
	issues map[string]*types.Issue
	saves  int
}

var _ storage.Storage = (*MemoryStorage)(nil)

// New creates a store seeded with issues.
func New(issues ...*types.Issue) *MemoryStorage {
	m := &MemoryStorage{issues: make(map[string]*types.Issue, len(issues))}
	for _, issue := range issues {
		m.issues[issue.ID] = issue.Clone()
	}
	return m
}

func (m *MemoryStorage) List(ctx context.Context) ([]*types.Issue, error) {
	return m.list(false), nil
}

func (m *MemoryStorage) ListIncludingArchived(ctx context.Context) ([]*types.Issue, error) {
	return m.list(true), nil
}

func (m *MemoryStorage) Get(ctx context.Context, id string) (*types.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	issue, ok := m.issues[id]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
	}
	return issue.Clone(), nil
}

func (m *MemoryStorage) Save(ctx context.Context, issue *types.Issue) error {
	if err := issue.Validate(); err != nil {
		return fmt.Errorf("save %s: %w", issue.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[issue.ID] = issue.Clone()
	m.saves++
	return nil
}

// Saves returns how many writes the store has accepted.
func (m *MemoryStorage) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *MemoryStorage) list(includeArchived bool) []*types.Issue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Issue, 0, len(m.issues))
	for _, issue := range m.issues {
		if issue.Archived && !includeArchived {
			continue
		}
		out = append(out, issue.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
