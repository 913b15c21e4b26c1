// Package config loads roadmap settings from .roadmap/config.yaml and
// ROADMAP_* environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DirName is the per-project directory holding config and sync state.
	DirName = ".roadmap"
	// FileName is the config file inside DirName.
	FileName = "config.yaml"
	// EnvPrefix prefixes every environment override (sync.backend -> ROADMAP_SYNC_BACKEND).
	EnvPrefix = "ROADMAP"
)

var (
	v    *viper.Viper
	root string
)

// ConfigWarningWriter receives warnings about invalid config values.
var ConfigWarningWriter io.Writer = os.Stderr

// Initialize discovers .roadmap/config.yaml by walking up from the working
// directory. A missing file is not an error; defaults and env still apply.
func Initialize() error {
	return InitializeWithPath("")
}

// InitializeWithPath loads config from path, or discovers it when path is
// empty. An explicit path must exist.
func InitializeWithPath(path string) error {
	v = viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		v.SetConfigFile(abs)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", abs, err)
		}
		root = projectRootFor(abs)
		return nil
	}

	found := findConfigFile(cwd)
	if found == "" {
		root = cwd
		return nil
	}
	v.SetConfigFile(found)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", found, err)
	}
	root = projectRootFor(found)
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("issues_dir", filepath.Join(DirName, "issues"))
	v.SetDefault("archive_dir", filepath.Join(DirName, "archive"))
	v.SetDefault("state_dir", filepath.Join(DirName, "state"))

	v.SetDefault("sync.backend", "github")
	v.SetDefault("sync.conflict_strategy", "")
	v.SetDefault("sync.baseline_strategy", "")
	v.SetDefault("sync.no_baseline_policy", "")
	v.SetDefault("sync.cache_max_age", time.Hour)
	v.SetDefault("sync.lock_timeout", 30*time.Second)

	v.SetDefault("git.timeout", 30*time.Second)

	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.url", "")
}

// findConfigFile walks up from dir looking for .roadmap/config.yaml.
func findConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, DirName, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// projectRootFor returns the directory containing .roadmap for a config
// file path. Files outside a .roadmap directory root at their own directory.
func projectRootFor(configPath string) string {
	dir := filepath.Dir(configPath)
	if filepath.Base(dir) == DirName {
		return filepath.Dir(dir)
	}
	return dir
}

// ResetForTesting clears the loaded config.
func ResetForTesting() {
	v = nil
	root = ""
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// ProjectRoot is the directory relative paths in config resolve against.
func ProjectRoot() string {
	if root != "" {
		return root
	}
	cwd, _ := os.Getwd()
	return cwd
}

// ResolvePath makes a configured path absolute against ProjectRoot.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ProjectRoot(), p)
}

func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a value for the rest of the process.
func Set(key string, value interface{}) {
	if v == nil {
		return
	}
	v.Set(key, value)
}

// AllSettings returns the merged settings, for "roadmap status".
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}
