// Package config provides configuration loading and management for the
// golden-thread validator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/goldenthread/trace"
)

// Config represents the complete validator configuration
type Config struct {
	Registry   RegistryConfig   `yaml:"registry"`
	Repo       RepoConfig       `yaml:"repo"`
	Validation ValidationConfig `yaml:"validation"`
	Reports    ReportsConfig    `yaml:"reports"`
}

// RegistryConfig configures the requirements registry connection
type RegistryConfig struct {
	// BaseURL is the registry API endpoint
	BaseURL string `yaml:"base_url"`
	// Token is the API token. Supports ${VAR} expansion; falls back to
	// GOLDENTHREAD_API_TOKEN when empty.
	Token string `yaml:"token"`
	// APIVersion is sent as the Registry-Version header
	APIVersion string `yaml:"api_version"`
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration `yaml:"timeout"`
	// RequestsPerSecond caps the client-side request rate (0 = registry default)
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Databases maps each ID type prefix to its registry database
	Databases map[string]string `yaml:"databases"`
	Cache     CacheConfig       `yaml:"cache"`
}

// CacheConfig configures the file-backed registry cache
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// TTL is how long a cached record stays fresh
	TTL time.Duration `yaml:"ttl"`
	// Dir is the cache directory (default: .goldenthread-cache under the repo)
	Dir string `yaml:"dir"`
}

// RepoConfig configures the repository settings
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty)
	Path string `yaml:"path"`
}

// ValidationConfig configures validator behavior
type ValidationConfig struct {
	// Strict promotes every advisory diagnostic to blocking
	Strict bool `yaml:"strict"`
	// IgnorePatterns removes matching files from orphan detection
	IgnorePatterns []string `yaml:"ignore_patterns"`
	// Languages restricts extraction to the named parsers (empty = all)
	Languages []string `yaml:"languages"`
	// Workers bounds per-service extraction concurrency (0 = NumCPU)
	Workers int `yaml:"workers"`
	// Timeout bounds the whole validation run
	Timeout time.Duration `yaml:"timeout"`
}

// ReportsConfig configures report output
type ReportsConfig struct {
	// Output is the JSON report path (empty = stdout only)
	Output string `yaml:"output"`
	// PushGateway is a Prometheus push gateway URL (empty = no metrics)
	PushGateway string `yaml:"push_gateway"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			APIVersion:        "2022-06-28",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 3,
			Cache: CacheConfig{
				Enabled: true,
				TTL:     time.Hour,
				Dir:     ".goldenthread-cache",
			},
		},
		Repo: RepoConfig{
			Path: "", // Auto-detect
		},
		Validation: ValidationConfig{
			IgnorePatterns: []string{
				"**/test_*.py",
				"**/*_test.go",
				"**/*.test.ts",
				"**/*.spec.ts",
				"**/conftest.py",
				"**/migrations/**",
			},
			Timeout: 10 * time.Minute,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Registry.Timeout < 0 {
		return fmt.Errorf("registry.timeout must not be negative")
	}
	if c.Registry.RequestsPerSecond < 0 {
		return fmt.Errorf("registry.requests_per_second must not be negative")
	}
	for prefix := range c.Registry.Databases {
		if _, ok := trace.TypeOf(prefix + "-X-000"); !ok {
			return fmt.Errorf("registry.databases: unknown ID type %q", prefix)
		}
	}
	return nil
}

// ExpandEnv resolves ${VAR} references in string settings and applies the
// GOLDENTHREAD_API_TOKEN fallback, so tokens never need to live in the
// config file itself.
func (c *Config) ExpandEnv() {
	c.Registry.BaseURL = os.ExpandEnv(c.Registry.BaseURL)
	c.Registry.Token = os.ExpandEnv(c.Registry.Token)
	if c.Registry.Token == "" {
		c.Registry.Token = os.Getenv("GOLDENTHREAD_API_TOKEN")
	}
}

// TypedDatabases converts the string-keyed database map to ID-typed keys.
func (c *Config) TypedDatabases() map[trace.IDType]string {
	out := make(map[trace.IDType]string, len(c.Registry.Databases))
	for prefix, db := range c.Registry.Databases {
		out[trace.IDType(prefix)] = db
	}
	return out
}

// CacheDir resolves the cache directory against the repo root.
func (c *Config) CacheDir() string {
	if filepath.IsAbs(c.Registry.Cache.Dir) {
		return c.Registry.Cache.Dir
	}
	return filepath.Join(c.Repo.Path, c.Registry.Cache.Dir)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Registry
	if other.Registry.BaseURL != "" {
		c.Registry.BaseURL = other.Registry.BaseURL
	}
	if other.Registry.Token != "" {
		c.Registry.Token = other.Registry.Token
	}
	if other.Registry.APIVersion != "" {
		c.Registry.APIVersion = other.Registry.APIVersion
	}
	if other.Registry.Timeout != 0 {
		c.Registry.Timeout = other.Registry.Timeout
	}
	if other.Registry.RequestsPerSecond != 0 {
		c.Registry.RequestsPerSecond = other.Registry.RequestsPerSecond
	}
	if len(other.Registry.Databases) > 0 {
		c.Registry.Databases = other.Registry.Databases
	}
	if other.Registry.Cache.TTL != 0 {
		c.Registry.Cache.TTL = other.Registry.Cache.TTL
	}
	if other.Registry.Cache.Dir != "" {
		c.Registry.Cache.Dir = other.Registry.Cache.Dir
	}
	c.Registry.Cache.Enabled = other.Registry.Cache.Enabled

	// Repo
	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}

	// Validation
	if other.Validation.Strict {
		c.Validation.Strict = true
	}
	if len(other.Validation.IgnorePatterns) > 0 {
		c.Validation.IgnorePatterns = other.Validation.IgnorePatterns
	}
	if len(other.Validation.Languages) > 0 {
		c.Validation.Languages = other.Validation.Languages
	}
	if other.Validation.Workers != 0 {
		c.Validation.Workers = other.Validation.Workers
	}
	if other.Validation.Timeout != 0 {
		c.Validation.Timeout = other.Validation.Timeout
	}

	// Reports
	if other.Reports.Output != "" {
		c.Reports.Output = other.Reports.Output
	}
	if other.Reports.PushGateway != "" {
		c.Reports.PushGateway = other.Reports.PushGateway
	}
}
