// Package main is the vibematch CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/cli"
	"github.com/hyperjump/vibematch/internal/config"
	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/indexer"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/search"
	"github.com/hyperjump/vibematch/internal/server"
	"github.com/hyperjump/vibematch/internal/storage"
	"github.com/hyperjump/vibematch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/vibematch/config.yaml"

// loadConfig loads .env and then the config at path. When path is the default and
// a config.yaml exists in the current directory, that file is used instead.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, "", err
	}
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		if err := runServer(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "init":
		exitOnError("Init failed", runInit())
	case "search":
		runSearch()
	case "seed":
		runSeed()
	case "metrics":
		runMetrics()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("vibematch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("store", cfg.Storage.Backend),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize components", zap.Error(err))
		return err
	}
	defer components.Close()

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Storage,
		components.Embedder,
		cfg,
		logger,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := serve(srv, sigChan, 10*time.Second, logger); err != nil {
		logger.Error("Server failed", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// lifecycle is the part of server.Server that serve drives.
type lifecycle interface {
	Start() error
	Stop(ctx context.Context) error
}

// serve runs srv until it fails or a signal arrives on stop, then shuts it down
// within timeout. A server closed by the shutdown is not an error.
func serve(srv lifecycle, stop <-chan os.Signal, timeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
	return nil
}

// runInit writes a config file with default settings.
func runInit() error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "config file to write")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", *configPath)
	return nil
}

// writeDefaultConfig saves the default config to path. An existing file is kept
// unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return config.Save(path, cfg)
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: vibematch search [flags] <vibe>\n\n")
	fmt.Fprintf(fs.Output(), "The vibe is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  vibematch search cozy and relaxed
  vibematch search --threshold 0.5 --limit 5 "urban street style"
  vibematch search --server "" boho festival    # query the local store directly
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word vibes
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the vibe
// to the front so that flag.Parse sees them. The flag package stops at the first
// non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// commonFlags registers the flags shared by the client subcommands.
func commonFlags(fs *flag.FlagSet) (configPath, serverURL, output *string) {
	configPath = fs.String("config", defaultConfigPath, "config file path")
	serverURL = fs.String("server", "http://localhost:8001", "server URL (empty = use the local store directly)")
	output = fs.String("output", "text", "output format: text or json")
	return configPath, serverURL, output
}

func mustFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func exitOnError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath, serverURL, outputFormat := commonFlags(fs)
	limit := fs.Int("limit", models.DefaultSearchLimit, "number of results (1-10)")
	threshold := fs.Float64("threshold", models.DefaultSearchThreshold, "minimum similarity score (0-1)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	vibe := buildSearchQuery(fs.Args())
	if vibe == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := mustFormat(*outputFormat)

	query := models.NewVibeQuery(vibe)
	query.Limit = *limit
	query.Threshold = *threshold

	ctx := context.Background()
	var response *models.SearchResponse
	var err error
	if *serverURL != "" {
		response, err = cli.NewClient(*serverURL).Search(ctx, query)
	} else {
		withComponents(*configPath, func(c *Components) {
			response, err = c.Engine.Search(ctx, query)
		})
	}
	exitOnError("Search failed", err)
	exitOnError("Output failed", cli.WriteSearchResults(os.Stdout, response, format))
}

func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath, serverURL, outputFormat := commonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	ctx := context.Background()
	var result *server.SeedResponse
	var err error
	if *serverURL != "" {
		result, err = cli.NewClient(*serverURL).Seed(ctx)
	} else {
		withComponents(*configPath, func(c *Components) {
			var names []string
			names, err = c.Indexer.Seed(ctx)
			result = &server.SeedResponse{Message: "Products seeded successfully", Count: len(names), Products: names}
		})
	}
	exitOnError("Seed failed", err)
	exitOnError("Output failed", cli.WriteSeedResult(os.Stdout, result, format))
}

func runMetrics() {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	configPath, serverURL, outputFormat := commonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	ctx := context.Background()
	var metrics []*models.QueryMetric
	var err error
	if *serverURL != "" {
		metrics, err = cli.NewClient(*serverURL).Metrics(ctx)
	} else {
		withStorage(*configPath, func(cfg *config.Config, store storage.Storage) {
			metrics, err = store.ListQueryMetrics(ctx, cfg.Search.MetricsLimit)
		})
	}
	exitOnError("Metrics failed", err)
	exitOnError("Output failed", cli.WriteMetrics(os.Stdout, metrics, format))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath, serverURL, outputFormat := commonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	ctx := context.Background()
	var status *server.StatusResponse
	var err error
	if *serverURL != "" {
		status, err = cli.NewClient(*serverURL).Status(ctx)
	} else {
		withStorage(*configPath, func(cfg *config.Config, store storage.Storage) {
			status, err = server.BuildStatus(ctx, store, nil, cfg, nil)
		})
	}
	exitOnError("Status failed", err)
	exitOnError("Output failed", cli.WriteStatus(os.Stdout, status, format))
}

// withStorage opens only the store, so metrics and status work without embedding credentials.
func withStorage(configPath string, fn func(*config.Config, storage.Storage)) {
	cfg, _, err := loadConfig(configPath)
	exitOnError("Failed to load config", err)
	store, err := storage.NewStorage(cfg.Storage.Backend, cfg.Storage.DatabasePath)
	exitOnError("Failed to open store", err)
	defer store.Close()
	fn(cfg, store)
}

func withComponents(configPath string, fn func(*Components)) {
	cfg, _, err := loadConfig(configPath)
	exitOnError("Failed to load config", err)
	logger, err := utils.NewLogger(cfg.Debug)
	exitOnError("Failed to create logger", err)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	exitOnError("Failed to initialize", err)
	defer components.Close()
	fn(components)
}

// Components holds the wired store, embedder, engine and indexer.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

// Close releases the embedder and the store.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewStorage(cfg.Storage.Backend, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	embedder, err := embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	logger.Debug("components initialized",
		zap.String("database_path", cfg.Storage.DatabasePath),
		zap.String("model", embedder.ModelName()),
		zap.Int("dimensions", embedder.Dimensions()),
	)
	return &Components{
		Storage:  store,
		Embedder: embedder,
		Engine:   search.NewEngine(store, embedder, &cfg.Search, logger),
		Indexer:  indexer.NewIndexer(store, embedder, indexer.WithLogger(logger)),
	}, nil
}

func printUsage() {
	fmt.Print(`vibematch - vibe-based product search

Usage:
  vibematch <command> [flags]

Commands:
  server    Start the HTTP API server
  init      Write a config.yaml with default settings
  search    Rank products against a vibe
  seed      Load the sample product catalog
  metrics   Show recent query metrics
  status    Show store and embedding status
  version   Print version
  help      Show this help

Client commands talk to --server (default http://localhost:8001); pass --server ""
to use the local store directly.

Environment:
  EMBEDDING_API_KEY     API key for the embedding provider
  EMBEDDING_PROVIDER    openai or hash
  DATABASE_PATH         store file (or :memory:)
  STORE_BACKEND         sqlite or bolt
  PORT, HOST            listen address
`)
}
