package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/config"
	"github.com/hyperjump/vibematch/internal/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvAPIKey, config.EnvModel, config.EnvBaseURL, config.EnvProvider,
		config.EnvDatabase, config.EnvBackend, config.EnvCORSOrigins, config.EnvPort, config.EnvHost,
	} {
		t.Setenv(k, "")
	}
}

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after vibe are moved first",
			args:     []string{"cozy and relaxed", "-threshold", "0.5"},
			expected: []string{"-threshold", "0.5", "cozy and relaxed"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-threshold", "0.5", "cozy and relaxed"},
			expected: []string{"-threshold", "0.5", "cozy and relaxed"},
		},
		{
			name:     "vibe only returns unchanged",
			args:     []string{"cozy and relaxed"},
			expected: []string{"cozy and relaxed"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"urban", "street", "-limit", "5"},
			expected: []string{"-limit", "5", "urban", "street"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"boho"}, "boho"},
		{"multiple words", []string{"cozy", "relaxed"}, "cozy relaxed"},
		{"single quoted phrase", []string{"cozy relaxed"}, "cozy relaxed"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9100
storage:
  database_path: ":memory:"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug || cfg.Server.Port != 9100 {
		t.Errorf("cwd config.yaml not applied: debug=%v port=%d", cfg.Debug, cfg.Server.Port)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestInitializeComponents(t *testing.T) {
	for _, backend := range []string{"sqlite", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			clearEnv(t)
			cfg := &config.Config{}
			cfg.Storage.Backend = backend
			cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "vibematch.db")
			cfg.Embedding.Provider = "hash"
			cfg.Embedding.Dimensions = 256
			config.ApplyDefaults(cfg)

			c, err := initializeComponents(cfg, zap.NewNop())
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()

			if c.Embedder.Dimensions() != 256 {
				t.Errorf("Dimensions() = %d, want 256", c.Embedder.Dimensions())
			}
			ctx := context.Background()
			names, err := c.Indexer.Seed(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(names) != 10 {
				t.Fatalf("seeded %d products, want 10", len(names))
			}
			q := models.NewVibeQuery("cozy")
			q.Threshold = 0
			resp, err := c.Engine.Search(ctx, q)
			if err != nil {
				t.Fatal(err)
			}
			if len(resp.Results) == 0 {
				t.Error("expected results at threshold 0")
			}
			n, err := c.Storage.CountQueryMetrics(ctx)
			if err != nil || n != 1 {
				t.Errorf("CountQueryMetrics() = %d, %v; want 1", n, err)
			}
		})
	}
}

func TestInitializeComponents_UnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Backend = "mongo"
	cfg.Storage.DatabasePath = ":memory:"
	cfg.Embedding.Provider = "hash"
	if _, err := initializeComponents(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

// fakeServer behaves like http.Server: Start blocks until Stop and then
// returns http.ErrServerClosed.
type fakeServer struct {
	startErr error
	stopErr  error
	closed   chan struct{}
	stopped  bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{closed: make(chan struct{})}
}

func (f *fakeServer) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.closed
	return http.ErrServerClosed
}

func (f *fakeServer) Stop(ctx context.Context) error {
	f.stopped = true
	if f.stopErr != nil {
		return f.stopErr
	}
	close(f.closed)
	return nil
}

func TestServe_SignalShutsDownCleanly(t *testing.T) {
	srv := newFakeServer()
	stop := make(chan os.Signal, 1)
	stop <- syscall.SIGTERM

	if err := serve(srv, stop, time.Second, zap.NewNop()); err != nil {
		t.Fatalf("serve() = %v, want nil after a signal", err)
	}
	if !srv.stopped {
		t.Error("Stop was not called")
	}
}

func TestServe_Errors(t *testing.T) {
	t.Run("start fails", func(t *testing.T) {
		srv := newFakeServer()
		srv.startErr = errors.New("address already in use")
		err := serve(srv, make(chan os.Signal), time.Second, zap.NewNop())
		if err == nil || !strings.Contains(err.Error(), "address already in use") {
			t.Fatalf("serve() = %v, want start error", err)
		}
		if srv.stopped {
			t.Error("Stop should not be called when Start fails")
		}
	})

	t.Run("stop fails", func(t *testing.T) {
		srv := newFakeServer()
		srv.stopErr = context.DeadlineExceeded
		stop := make(chan os.Signal, 1)
		stop <- os.Interrupt
		err := serve(srv, stop, time.Second, zap.NewNop())
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("serve() = %v, want shutdown error", err)
		}
	})
}

func TestServe_ReleasesStoreAfterShutdown(t *testing.T) {
	clearEnv(t)
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "vibematch.db")
	cfg.Embedding.Provider = "hash"
	config.ApplyDefaults(cfg)

	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	stop := make(chan os.Signal, 1)
	stop <- syscall.SIGTERM
	if err := serve(newFakeServer(), stop, time.Second, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	c.Close()

	// A closed sqlite store checkpoints and removes its WAL side files.
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(cfg.Storage.DatabasePath + suffix); !os.IsNotExist(err) {
			t.Errorf("%s still present after Close (err=%v)", suffix, err)
		}
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8001 || cfg.Storage.Backend != "sqlite" {
		t.Errorf("unexpected defaults: port=%d backend=%q", cfg.Server.Port, cfg.Storage.Backend)
	}

	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("expected an error for an existing file without force")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("force overwrite failed: %v", err)
	}
}
