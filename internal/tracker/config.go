package tracker

import (
	"fmt"
	"os"
	"strings"
)

// ConfigSource looks up fully qualified config keys ("github.token").
type ConfigSource interface {
	GetString(key string) string
}

// ConfigSourceFunc adapts a function to ConfigSource.
type ConfigSourceFunc func(key string) string

func (f ConfigSourceFunc) GetString(key string) string { return f(key) }

// Config gives a backend access to its own settings.
type Config struct {
	// Prefix is the config key prefix for this backend (e.g., "github").
	Prefix string
	Source ConfigSource
}

// NewConfig creates a backend config with the given prefix and source.
func NewConfig(prefix string, source ConfigSource) *Config {
	return &Config{Prefix: prefix, Source: source}
}

// Get looks up "<prefix>.<key>" and falls back to the "<PREFIX>_<KEY>"
// environment variable. Example: Get("token") for "github" reads
// github.token, then GITHUB_TOKEN.
func (c *Config) Get(key string) string {
	if c.Source != nil {
		if value := strings.TrimSpace(c.Source.GetString(c.Prefix + "." + key)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(os.Getenv(c.envVarName(key)))
}

// GetRequired is like Get but returns an error naming both places the value
// can be set.
func (c *Config) GetRequired(key string) (string, error) {
	if value := c.Get(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%s.%s not configured (set it in .roadmap/config.yaml or export %s)", c.Prefix, key, c.envVarName(key))
}

// envVarName converts a config key to its environment variable name.
func (c *Config) envVarName(key string) string {
	envKey := strings.ToUpper(c.Prefix + "_" + key)
	return strings.ReplaceAll(envKey, ".", "_")
}
