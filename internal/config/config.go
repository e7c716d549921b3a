// Package config provides configuration loading and structs for the Vibe Matcher server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	// ListLimit caps GET /api/products.
	ListLimit int `yaml:"list_limit"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects the store backend and its file.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key,omitempty"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SearchConfig holds vibe search settings.
type SearchConfig struct {
	MaxCandidates int           `yaml:"max_candidates"`
	MetricsLimit  int           `yaml:"metrics_limit"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Load reads the config file at path, applies environment overrides and defaults,
// and expands paths. A missing file is not an error: defaults are used.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing files
// are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the config to path. The API key is never written.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.Embedding.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.Backend {
	case "sqlite", "bolt":
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q must be sqlite or bolt", c.Storage.Backend))
	}
	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		errs = append(errs, fmt.Sprintf("embedding.provider %q must be openai or hash", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, "embedding.dimensions must not be negative")
	}
	if c.Search.MaxCandidates <= 0 {
		errs = append(errs, "search.max_candidates must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. ":memory:" is kept as is.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
