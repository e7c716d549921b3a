package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hyperjump/vibematch/pkg/utils"
)

// Environment variables that override file settings.
const (
	EnvAPIKey      = "EMBEDDING_API_KEY"
	EnvModel       = "EMBEDDING_MODEL"
	EnvBaseURL     = "EMBEDDING_BASE_URL"
	EnvProvider    = "EMBEDDING_PROVIDER"
	EnvDatabase    = "DATABASE_PATH"
	EnvBackend     = "STORE_BACKEND"
	EnvCORSOrigins = "CORS_ORIGINS"
	EnvPort        = "PORT"
	EnvHost        = "HOST"
)

// ApplyEnv overrides cfg with any set environment variables.
func ApplyEnv(cfg *Config) error {
	setString(&cfg.Embedding.APIKey, EnvAPIKey)
	setString(&cfg.Embedding.Model, EnvModel)
	setString(&cfg.Embedding.BaseURL, EnvBaseURL)
	setString(&cfg.Embedding.Provider, EnvProvider)
	setString(&cfg.Storage.Backend, EnvBackend)
	setString(&cfg.Server.Host, EnvHost)

	if v := os.Getenv(EnvDatabase); v != "" {
		if v != ":memory:" {
			if abs, err := filepath.Abs(v); err == nil {
				v = abs
			}
		}
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv(EnvCORSOrigins); v != "" {
		cfg.Server.CORSOrigins = utils.SplitList(v)
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
