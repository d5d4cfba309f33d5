package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Registry.RequestsPerSecond != 3 {
		t.Errorf("expected default rate limit 3 rps, got %f", cfg.Registry.RequestsPerSecond)
	}
	if cfg.Registry.Timeout != 30*time.Second {
		t.Errorf("expected default registry timeout 30s, got %s", cfg.Registry.Timeout)
	}
	if !cfg.Registry.Cache.Enabled {
		t.Error("expected cache enabled by default")
	}
	if cfg.Registry.Cache.TTL != time.Hour {
		t.Errorf("expected default cache TTL 1h, got %s", cfg.Registry.Cache.TTL)
	}
	if len(cfg.Validation.IgnorePatterns) == 0 {
		t.Error("expected default ignore patterns for test files")
	}
	if cfg.Validation.Strict {
		t.Error("expected strict mode off by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Registry.Timeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "negative rate limit",
			modify:  func(c *Config) { c.Registry.RequestsPerSecond = -1 },
			wantErr: true,
		},
		{
			name: "known database types",
			modify: func(c *Config) {
				c.Registry.Databases = map[string]string{"FR": "db-fr", "V": "db-v"}
			},
			wantErr: false,
		},
		{
			name: "unknown database type",
			modify: func(c *Config) {
				c.Registry.Databases = map[string]string{"XX": "db-xx"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goldenthread.yaml")
	content := `registry:
  base_url: https://registry.example.com
  token: ${TEST_REGISTRY_TOKEN}
  requests_per_second: 2
  databases:
    FR: db-fr
    BR: db-br
validation:
  strict: true
  languages: [go, python]
reports:
  output: reports/traceability.json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Registry.BaseURL != "https://registry.example.com" {
		t.Errorf("unexpected base URL: %s", cfg.Registry.BaseURL)
	}
	if cfg.Registry.RequestsPerSecond != 2 {
		t.Errorf("unexpected rate limit: %f", cfg.Registry.RequestsPerSecond)
	}
	if cfg.Registry.Databases["FR"] != "db-fr" {
		t.Errorf("unexpected FR database: %s", cfg.Registry.Databases["FR"])
	}
	if !cfg.Validation.Strict {
		t.Error("expected strict true")
	}
	if cfg.Reports.Output != "reports/traceability.json" {
		t.Errorf("unexpected report output: %s", cfg.Reports.Output)
	}

	// Defaults survive partial files.
	if cfg.Registry.Timeout != 30*time.Second {
		t.Errorf("expected default timeout to survive, got %s", cfg.Registry.Timeout)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_REGISTRY_TOKEN", "tok-from-env")

	cfg := DefaultConfig()
	cfg.Registry.Token = "${TEST_REGISTRY_TOKEN}"
	cfg.ExpandEnv()

	if cfg.Registry.Token != "tok-from-env" {
		t.Errorf("expected token expansion, got %q", cfg.Registry.Token)
	}
}

func TestExpandEnv_TokenFallback(t *testing.T) {
	t.Setenv("GOLDENTHREAD_API_TOKEN", "fallback-token")

	cfg := DefaultConfig()
	cfg.ExpandEnv()

	if cfg.Registry.Token != "fallback-token" {
		t.Errorf("expected fallback token, got %q", cfg.Registry.Token)
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	override := DefaultConfig()
	override.Registry.BaseURL = "https://other.example.com"
	override.Validation.Strict = true
	override.Validation.Workers = 8

	base.Merge(override)

	if base.Registry.BaseURL != "https://other.example.com" {
		t.Errorf("expected merged base URL, got %s", base.Registry.BaseURL)
	}
	if !base.Validation.Strict {
		t.Error("expected merged strict flag")
	}
	if base.Validation.Workers != 8 {
		t.Errorf("expected merged workers, got %d", base.Validation.Workers)
	}
	// Untouched values keep their defaults.
	if base.Registry.Timeout != 30*time.Second {
		t.Errorf("expected default timeout preserved, got %s", base.Registry.Timeout)
	}
}

func TestCacheDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repo.Path = "/repo"

	if got := cfg.CacheDir(); got != filepath.Join("/repo", ".goldenthread-cache") {
		t.Errorf("unexpected cache dir: %s", got)
	}

	cfg.Registry.Cache.Dir = "/abs/cache"
	if got := cfg.CacheDir(); got != "/abs/cache" {
		t.Errorf("absolute cache dir should win: %s", got)
	}
}
