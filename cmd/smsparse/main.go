package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/rumor-ml/commons.systems/smsparse/internal/assemble"
	"github.com/rumor-ml/commons.systems/smsparse/internal/catalog"
	"github.com/rumor-ml/commons.systems/smsparse/internal/config"
	"github.com/rumor-ml/commons.systems/smsparse/internal/dates"
	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
	"github.com/rumor-ml/commons.systems/smsparse/internal/ingest"
	"github.com/rumor-ml/commons.systems/smsparse/internal/rules"
	"github.com/rumor-ml/commons.systems/smsparse/internal/server"
	"github.com/rumor-ml/commons.systems/smsparse/internal/store"
	"github.com/rumor-ml/commons.systems/smsparse/internal/ui"
)

const (
	version = "0.1.0"
)

var (
	// Global flags
	versionFlag = flag.Bool("version", false, "Show version")

	// Core CLI flags
	inputFile = flag.String("input", "", "Input JSONL file of SMS messages (required unless -serve)")
	owner     = flag.String("owner", "local", "Owner ID to ingest messages under")
	dbPath    = flag.String("db", "", "SQLite database path (default from SQLITE_PATH)")
	verbose   = flag.Bool("verbose", false, "Show detailed ingestion logs")

	// Server mode
	serveFlag = flag.Bool("serve", false, "Run the HTTP API server instead of batch ingestion")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `smsparse - Bank SMS transaction ingestion

Usage:
  smsparse [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Ingest a JSONL file of messages into a local database
  smsparse -input messages.jsonl -db budget.db

  # Same, under a specific owner
  smsparse -input messages.jsonl -owner alice

  # Run the API server
  smsparse -serve

`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("smsparse version %s\n", version)
		os.Exit(0)
	}

	if !*serveFlag && *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *serveFlag {
		return serve(ctx, cfg, logger)
	}
	return ingestFile(ctx, cfg, logger)
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	logger.Info("server listening", "port", cfg.Port)
	return http.ListenAndServe(":"+cfg.Port, srv.Handler())
}

// inboundSMS is one line of the JSONL input.
type inboundSMS struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

func ingestFile(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	path := *dbPath
	if path == "" {
		path = cfg.SQLitePath
	}

	st, err := store.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", path, err)
	}
	defer st.Close()

	ingestor, err := buildIngestor(cfg, st, logger)
	if err != nil {
		return err
	}

	f, err := os.Open(*inputFile)
	if err != nil {
		return fmt.Errorf("failed to open input %s: %w", *inputFile, err)
	}
	defer f.Close()

	if !*verbose {
		ui.Header("Ingesting Bank SMS Messages")
		ui.Step(1, 2, fmt.Sprintf("Reading %s", *inputFile))
	}

	counts := make(map[domain.OutcomeKind]int)
	lineNum := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNum++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg inboundSMS
		if err := json.Unmarshal(line, &msg); err != nil {
			ui.Warning(fmt.Sprintf("line %d: invalid JSON, skipped", lineNum))
			continue
		}
		if msg.Sender == "" || msg.Body == "" {
			ui.Warning(fmt.Sprintf("line %d: missing sender or body, skipped", lineNum))
			continue
		}

		outcome, err := ingestor.Ingest(ctx, msg.Sender, msg.Body, *owner)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		counts[outcome.Kind]++
		if *verbose {
			logger.Debug("ingested", "line", lineNum, "outcome", outcome.Kind)
		} else {
			ui.Outcome(msg.Sender, outcome)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if !*verbose {
		ui.Step(2, 2, "Summary")
		ui.Summary(counts)
	}
	return nil
}

func buildIngestor(cfg *config.Config, st store.Store, logger *slog.Logger) (*ingest.Ingestor, error) {
	var engine *rules.Engine
	var err error
	if cfg.RulesFile != "" {
		engine, err = rules.LoadFromFile(cfg.RulesFile)
	} else {
		engine, err = rules.LoadEmbedded()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load category rules: %w", err)
	}

	assembler, err := assemble.New(engine, catalog.New(nil), cfg.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	validator, err := dates.NewValidator(dates.SystemClock{}, cfg.MaxAge(), cfg.MaxSkew())
	if err != nil {
		return nil, err
	}

	return ingest.New(st, validator, assembler, ingest.Options{
		PersistTimeout: cfg.PersistTimeout,
		Logger:         logger,
	})
}
