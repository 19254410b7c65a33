// Package main is the medrag CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/medrag/internal/chunker"
	"github.com/hyperjump/medrag/internal/cli"
	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/corpus"
	"github.com/hyperjump/medrag/internal/embedding"
	"github.com/hyperjump/medrag/internal/generation"
	"github.com/hyperjump/medrag/internal/indexer"
	"github.com/hyperjump/medrag/internal/interactions"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/pipeline"
	"github.com/hyperjump/medrag/internal/retrieval"
	"github.com/hyperjump/medrag/internal/server"
	"github.com/hyperjump/medrag/internal/testset"
	"github.com/hyperjump/medrag/internal/vector"
	"github.com/hyperjump/medrag/internal/watcher"
	"github.com/hyperjump/medrag/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/medrag/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present; when neither exists, defaults relative to the current
// directory are used. Returns the config and the path that was loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		fallback := filepath.Join(cwd, "config.yaml")
		if _, statErr := os.Stat(fallback); statErr == nil {
			cfg, loadErr := config.Load(fallback)
			if loadErr != nil {
				return nil, "", loadErr
			}
			return cfg, fallback, nil
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(cwd), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Secrets may live in a .env file next to the working directory; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "chunk":
		runChunk()
	case "index":
		runIndex()
	case "ask":
		runAsk()
	case "history":
		runHistory()
	case "clear":
		runClear()
	case "serve", "server":
		runServe()
	case "testset":
		runTestset()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("medrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and builds the logger shared by every command.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, logger
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runChunk() {
	fs := flag.NewFlagSet("chunk", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	rawDir := fs.String("raw-dir", "", "raw document directory (default from config)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	builder, _, err := newBuilder(cfg, logger)
	if err != nil {
		fmt.Printf("Failed to create chunk builder: %v\n", err)
		os.Exit(1)
	}
	dir := cfg.Paths.RawDir
	if *rawDir != "" {
		dir = *rawDir
	}
	ctx, cancel := signalContext()
	defer cancel()
	report, err := builder.BuildDirectory(ctx, dir)
	if err != nil {
		fmt.Printf("Chunking failed: %v\n", err)
		os.Exit(1)
	}
	cli.WriteChunkReport(os.Stdout, report)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	disease := fs.String("disease", "", "re-index a single disease instead of the whole corpus")
	rechunk := fs.Bool("rechunk", false, "rebuild chunk files from raw documents before indexing")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if *rechunk {
		report, err := components.Chunker.BuildDirectory(ctx, cfg.Paths.RawDir)
		if err != nil {
			fmt.Printf("Chunking failed: %v\n", err)
			os.Exit(1)
		}
		cli.WriteChunkReport(os.Stdout, report)
	}

	var report *indexer.Report
	if *disease != "" {
		report, err = components.Indexer.IndexDisease(ctx, components.Corpus, *disease)
	} else {
		report, err = components.Indexer.IndexAll(ctx, components.Corpus)
	}
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	cli.WriteIndexReport(os.Stdout, report, components.Registry.Models())
	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}

// printAskUsage prints ask subcommand usage.
func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: medrag ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  medrag ask What are the symptoms of flu?
  medrag ask --k 3 "How is measles treated?"
  medrag ask --server http://localhost:8080 --output json "flu treatment"
`)
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags (and their values) to the front so they may appear anywhere in
// the question. Positional words keep their order; "--" ends flag parsing.
func argsReorder(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	positional := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			flags = append(flags, a)
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if f := fs.Lookup(name); f != nil && !isBoolFlag(f) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positional...)
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "", "server URL (empty = answer in-process)")
	k := fs.Int("k", 0, "number of chunks to retrieve (0 = retrieval.top_k)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))

	req := &models.AskRequest{Question: buildQuestion(fs.Args()), K: *k}
	if req.Question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid request: %v\n", err)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var resp *pipeline.Response
	if *serverURL != "" {
		resp, err = askViaHTTP(*serverURL, req)
	} else {
		cfg, logger := setup(*configPath, *debug)
		defer logger.Sync()
		ctx, cancel := signalContext()
		defer cancel()
		components, initErr := initializeComponents(ctx, cfg, logger, true)
		if initErr != nil {
			logger.Fatal("Failed to initialize", zap.Error(initErr))
		}
		defer components.Close()
		resp, err = components.Pipeline.Ask(ctx, req.Question, req.K)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, req *models.AskRequest) (*pipeline.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Question  string   `json:"question"`
		Answer    string   `json:"answer"`
		Context   string   `json:"context"`
		ChunkIDs  []string `json:"chunk_ids"`
		Generated bool     `json:"generated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &pipeline.Response{
		Question:  out.Question,
		Answer:    out.Answer,
		Context:   out.Context,
		ChunkIDs:  out.ChunkIDs,
		Generated: out.Generated,
	}, nil
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	cfg, logger := setup(*configPath, false)
	defer logger.Sync()

	log, store, err := newInteractionLog(cfg, logger)
	if err != nil {
		fmt.Printf("Failed to open interaction log: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := cli.WriteHistory(os.Stdout, log.LoadHistory(context.Background()), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()

	log, store, err := newInteractionLog(cfg, logger)
	if err != nil {
		fmt.Printf("Failed to open interaction log: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := log.Clear(context.Background()); err != nil {
		fmt.Printf("Clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("History cleared.")
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "watch the raw document directory (overrides watch.enabled)")
	syncExisting := fs.Bool("sync", false, "re-chunk and re-index every raw document at startup (with watch)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if cfg.Watch.Enabled || *watch {
		refresher := watcher.NewRefresher(components.Chunker, components.Indexer, components.Corpus, logger)
		w := watcher.NewWatcher(cfg.Paths.RawDir, refresher,
			watcher.WithDebounce(cfg.Watch.Debounce),
			watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		if *syncExisting {
			go func() {
				if err := w.SyncExistingFiles(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("initial sync failed", zap.Error(err))
				}
			}()
		}
		logger.Info("Watching raw documents", zap.String("dir", w.Dir()))
	}

	srv := server.NewServer(components.Pipeline, components.Engine, components.Store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runTestset() {
	fs := flag.NewFlagSet("testset", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	inDir := fs.String("in", "", "test set directory (default paths.testset_dir)")
	outDir := fs.String("out", "", "answer directory (default paths.answers_dir)")
	k := fs.Int("k", 0, "number of chunks to retrieve (0 = retrieval.top_k)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	if *inDir == "" {
		*inDir = cfg.Paths.TestsetDir
	}
	if *outDir == "" {
		*outDir = cfg.Paths.AnswersDir
	}

	ctx, cancel := signalContext()
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	runner := testset.NewRunner(components.Pipeline.WithoutLog(),
		cfg.Testset.BatchSize, cfg.Testset.RequestsPerSecond,
		testset.WithLogger(logger), testset.WithTopK(*k))
	summary, err := runner.Run(ctx, *inDir, *outDir)
	if summary != nil {
		cli.WriteTestsetSummary(os.Stdout, summary)
	}
	if err != nil {
		fmt.Printf("Test set run failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	ServingModel   string         `json:"serving_model"`
	Models         []string       `json:"models,omitempty"`
	Collections    map[string]int `json:"collections"`
	DroppedTotal   int64          `json:"dropped_total"`
	DiskUsageBytes *int64         `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the vector store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var status *statusResponse
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		status, err = statusDirect(context.Background(), cfg, logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Printf("serving_model:      %s\n", status.ServingModel)
	fmt.Printf("dropped_total:      %d   # retrieved ids missing from the corpus\n", status.DroppedTotal)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:   %d   # chunks + vectors + log on disk\n", *status.DiskUsageBytes)
	}
	fmt.Println()
	fmt.Println("# collections")
	names := make([]string, 0, len(status.Collections))
	for name := range status.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-40s %d\n", name, status.Collections[name])
	}
}

func statusDirect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*statusResponse, error) {
	store, err := vector.NewStore(ctx, cfg.Vector, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	names, err := store.Collections(ctx)
	if err != nil {
		return nil, err
	}
	status := &statusResponse{
		ServingModel: cfg.Embedding.ServingModel,
		Models:       cfg.ModelIDs(),
		Collections:  make(map[string]int, len(names)),
	}
	for _, name := range names {
		c, err := store.OpenOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		n, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}
		status.Collections[name] = n
	}
	paths := []string{cfg.Paths.ChunkDir, cfg.Interactions.Path}
	if cfg.Vector.Backend != string(vector.BackendPGVector) {
		paths = append(paths, cfg.Vector.Path)
	}
	if diskBytes, err := utils.DiskUsageBytes(paths...); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Corpus       *corpus.Corpus
	Chunker      *chunker.Builder
	Registry     *embedding.Registry
	Store        vector.Store
	Indexer      *indexer.Indexer
	Engine       *retrieval.Engine
	Interactions interactions.Store
	Pipeline     *pipeline.Pipeline
}

// Close releases every component that holds a resource.
func (c *Components) Close() {
	if c.Interactions != nil {
		_ = c.Interactions.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
}

func newBuilder(cfg *config.Config, logger *zap.Logger) (*chunker.Builder, *corpus.Corpus, error) {
	mode, err := chunker.ParseIDMode(cfg.Chunking.IDMode)
	if err != nil {
		return nil, nil, err
	}
	corp := corpus.New(cfg.Paths.ChunkDir, corpus.WithLogger(logger))
	return chunker.NewBuilder(corp, chunker.WithLogger(logger), chunker.WithIDMode(mode)), corp, nil
}

func newInteractionLog(cfg *config.Config, logger *zap.Logger) (*interactions.Logger, interactions.Store, error) {
	store, err := interactions.NewStore(cfg.Interactions, logger)
	if err != nil {
		return nil, nil, err
	}
	return interactions.NewLogger(store, interactions.WithLogger(logger)), store, nil
}

// initializeComponents builds the indexing stack and, when withGeneration is set, the
// retrieval engine, generator and pipeline. On failure everything already built is closed.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withGeneration bool) (*Components, error) {
	c := &Components{}
	fail := func(err error) (*Components, error) {
		c.Close()
		return nil, err
	}

	builder, corp, err := newBuilder(cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize chunk builder: %w", err))
	}
	c.Chunker, c.Corpus = builder, corp

	c.Registry, err = embedding.NewRegistry(cfg.Embedding, embedding.WithLogger(logger))
	if err != nil {
		return fail(fmt.Errorf("failed to initialize embedders: %w", err))
	}
	c.Store, err = vector.NewStore(ctx, cfg.Vector, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize vector store: %w", err))
	}
	logger.Info("vector store initialized", zap.String("backend", cfg.Vector.Backend), zap.Strings("models", c.Registry.Models()))
	c.Indexer = indexer.NewIndexer(c.Registry, c.Store, indexer.WithLogger(logger))

	if !withGeneration {
		return c, nil
	}

	c.Engine, err = retrieval.NewEngine(c.Registry, c.Store, c.Corpus, cfg.Embedding.ServingModel,
		retrieval.WithLogger(logger), retrieval.WithTopK(cfg.Retrieval.TopK))
	if err != nil {
		return fail(fmt.Errorf("failed to initialize retrieval engine: %w", err))
	}
	gen, err := generation.NewGenerator(cfg.Generation)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize generator: %w", err))
	}
	log, store, err := newInteractionLog(cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize interaction log: %w", err))
	}
	c.Interactions = store
	c.Pipeline = pipeline.New(c.Engine, generation.NewAnswerer(gen, generation.WithLogger(logger)), log,
		pipeline.WithLogger(logger))
	return c, nil
}

func printUsage() {
	fmt.Println(`medrag - Retrieval-augmented QA over medical condition documents

Usage:
  medrag chunk [flags]              Build chunk files from raw documents
  medrag index [flags]              Embed the chunk corpus under every configured model
  medrag ask [flags] <question>     Answer a question
  medrag history [flags]            Show the chat history
  medrag clear [flags]              Clear the interaction log
  medrag serve [flags]              Start the HTTP server
  medrag testset [flags]            Answer a directory of test questions
  medrag status [flags]             Show collections and index sizes
  medrag version                    Show version
  medrag help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/medrag/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging

Chunk Flags:
  --raw-dir string   Raw document directory (default: paths.raw_dir)

Index Flags:
  --disease string   Re-index one disease only
  --rechunk          Rebuild chunk files before indexing

Ask Flags:
  --k int            Number of chunks to retrieve (default: retrieval.top_k)
  --server string    Ask a running server instead of answering in-process
  --output string    Output format: text or json (default: text)

History Flags:
  --output string    Output format: text or json (default: text)

Serve Flags:
  --watch            Re-chunk and re-index raw documents when they change
  --sync             With --watch, refresh every raw document at startup

Testset Flags:
  --in string        Test set directory (default: paths.testset_dir)
  --out string       Answer directory (default: paths.answers_dir)
  --k int            Number of chunks to retrieve

Status Flags:
  --server string    Server URL (empty: read the vector store directly)
  --output string    Output format: text or json (default: text)

Examples:
  medrag chunk
  medrag index
  medrag ask What are the symptoms of flu?
  medrag history --output json
  medrag serve --watch
  medrag testset --in data/generated_testset --out data/generated_answers`)
}
