// Package storage provides shared types for local issue storage.
//
// The concrete implementations live in the files (markdown issue files) and
// memory (tests, dry runs) sub-packages.
package storage

import (
	"context"
	"errors"

	"github.com/roadmap-cli/roadmap/internal/types"
)

// ErrNotFound is returned when a requested issue does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the local issue store the sync engine reads and writes.
type Storage interface {
	// List returns the active issues, sorted by id.
	List(ctx context.Context) ([]*types.Issue, error)
	// ListIncludingArchived returns active and archived issues, sorted by id.
	ListIncludingArchived(ctx context.Context) ([]*types.Issue, error)
	// Get returns a single issue, active or archived.
	Get(ctx context.Context, id string) (*types.Issue, error)
	// Save creates or overwrites an issue.
	Save(ctx context.Context, issue *types.Issue) error
}
