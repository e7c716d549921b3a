package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8001
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.ListLimit == 0 {
		cfg.Server.ListLimit = 100
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".vibematch/vibematch.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Search.MaxCandidates == 0 {
		cfg.Search.MaxCandidates = 100
	}
	if cfg.Search.MetricsLimit == 0 {
		cfg.Search.MetricsLimit = 50
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 30 * time.Second
	}
}
