package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/roadmap-cli/roadmap/internal/merge"
	"github.com/roadmap-cli/roadmap/internal/types"
)

// GetConflictStrategy returns the configured conflict strategy, or auto-merge
// when unset or invalid. Invalid values produce a warning.
//
// Config key: sync.conflict_strategy
// Valid values: auto-merge, keep-local, keep-remote
func GetConflictStrategy() types.ConflictStrategy {
	value := GetString("sync.conflict_strategy")
	if value == "" {
		return types.ConflictAutoMerge
	}

	strategy := types.ConflictStrategy(strings.ToLower(strings.TrimSpace(value)))
	if !strategy.IsValid() {
		fmt.Fprintf(ConfigWarningWriter, "Warning: invalid sync.conflict_strategy %q in config (valid: auto-merge, keep-local, keep-remote), using default 'auto-merge'\n", value)
		return types.ConflictAutoMerge
	}
	return strategy
}

// GetBaselineStrategy returns the configured first-sync baseline strategy.
// Empty means none, which makes a sync without a baseline fail.
//
// Config key: sync.baseline_strategy
// Valid values: local, remote, interactive
func GetBaselineStrategy() types.BaselineStrategy {
	value := GetString("sync.baseline_strategy")
	strategy := types.BaselineStrategy(strings.ToLower(strings.TrimSpace(value)))
	if !strategy.IsValid() {
		fmt.Fprintf(ConfigWarningWriter, "Warning: invalid sync.baseline_strategy %q in config (valid: local, remote, interactive), ignoring\n", value)
		return types.BaselineNone
	}
	return strategy
}

// GetNoBaselinePolicy returns which side wins for issues present on both
// sides without a baseline entry.
//
// Config key: sync.no_baseline_policy
// Valid values: remote, local
func GetNoBaselinePolicy() merge.NoBaselinePolicy {
	value := GetString("sync.no_baseline_policy")
	if value == "" {
		return merge.PreferRemote
	}
	policy := merge.NoBaselinePolicy(strings.ToLower(strings.TrimSpace(value)))
	if !policy.IsValid() {
		fmt.Fprintf(ConfigWarningWriter, "Warning: invalid sync.no_baseline_policy %q in config (valid: remote, local), using default 'remote'\n", value)
		return merge.PreferRemote
	}
	return policy
}

// GetSyncBackend returns the configured backend name.
func GetSyncBackend() string {
	return strings.ToLower(strings.TrimSpace(GetString("sync.backend")))
}

// GetPositiveDuration reads a duration key, falling back to def when the
// value is unset, unparsable or not positive.
func GetPositiveDuration(key string, def time.Duration) time.Duration {
	if v == nil || !v.IsSet(key) {
		return def
	}
	d := GetDuration(key)
	if d <= 0 {
		fmt.Fprintf(ConfigWarningWriter, "Warning: invalid %s %q in config, using default %s\n", key, GetString(key), def)
		return def
	}
	return d
}

// Paths holds the resolved on-disk locations.
type Paths struct {
	IssuesDir  string
	ArchiveDir string
	StateDir   string
	LockDir    string
}

// CachePath is the baseline cache file.
func (p Paths) CachePath() string { return filepath.Join(p.StateDir, "baseline.json") }

// MetaPath is the sync metadata file. It lives beside the cache but is not
// removed by "baseline clear".
func (p Paths) MetaPath() string { return filepath.Join(p.StateDir, "sync.json") }

// GetPaths resolves the configured directories against the project root.
func GetPaths() Paths {
	return Paths{
		IssuesDir:  ResolvePath(GetString("issues_dir")),
		ArchiveDir: ResolvePath(GetString("archive_dir")),
		StateDir:   ResolvePath(GetString("state_dir")),
		LockDir:    ResolvePath(DirName),
	}
}
