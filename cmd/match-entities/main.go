// Command match-entities finds entity names from a trie index in text files
// and prints one tab-separated line per match:
//
//	file  begin  end  ids  ranks  matched text
//
// Usage:
//
//	match-entities [flags] index pattern...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/wormsner/internal/corpus"
	"github.com/cognicore/wormsner/internal/logger"
	"github.com/cognicore/wormsner/pkg/wormsner"
	"github.com/cognicore/wormsner/pkg/wormsner/config"
	"github.com/cognicore/wormsner/pkg/wormsner/report"
	"github.com/cognicore/wormsner/pkg/wormsner/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("match-entities failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("match-entities", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath    = fs.String("config", "", "YAML config file (optional)")
		verbose       = fs.Bool("v", false, "Write partial-match diagnostics to stderr")
		workers       = fs.Int("workers", 0, "Documents matched in parallel (overrides config)")
		backend       = fs.String("backend", "", "Index backend: file or sqlite (overrides config)")
		dbPath        = fs.String("db", "", "Record this run's matches in a SQLite database (overrides config)")
		flushTrailing = fs.Bool("flush-trailing", false, "Resolve a candidate still open at end of document")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: match-entities [flags] index pattern...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("missing index argument")
	}
	indexPath, patterns := fs.Arg(0), fs.Args()[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *verbose {
		cfg.Match.Diagnostics = true
	}
	if *flushTrailing {
		cfg.Match.FlushTrailing = true
	}
	if *workers > 0 {
		cfg.Match.Workers = *workers
	}
	if *backend != "" {
		cfg.Index.Backend = *backend
	}
	if *dbPath != "" {
		cfg.Results.DB = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, stderr)
	log := logger.WithComponent("match-entities")

	loader := config.Loader{Config: cfg}
	comp, err := loader.Load()
	if err != nil {
		return err
	}

	st, err := loader.OpenIndexStore(ctx, indexPath)
	if err != nil {
		return err
	}
	index, err := st.LoadTrie(ctx)
	st.Close()
	if err != nil {
		return fmt.Errorf("load index %s: %w", indexPath, err)
	}
	log.Debug("index loaded", "path", indexPath, "nodes", index.Stats().Nodes)

	paths, err := corpus.Expand(patterns)
	if err != nil {
		return err
	}
	files, err := corpus.LoadAll(paths)
	if err != nil {
		return err
	}
	docs := make([]wormsner.Document, len(files))
	for i, f := range files {
		docs[i] = wormsner.Document{Name: f.Name, Text: f.Text}
	}

	var reporter report.Reporter = report.NewTSV(stdout)
	var results *sqlite.Run
	if cfg.Results.DB != "" {
		db, err := sqlite.OpenSQLite(ctx, cfg.Results.DB)
		if err != nil {
			return fmt.Errorf("open results db %s: %w", cfg.Results.DB, err)
		}
		defer db.Close()

		results, err = db.BeginRun(ctx, indexPath)
		if err != nil {
			return err
		}
		reporter = report.Multi(reporter, results)
		log.Info("recording run", "run_id", results.ID(), "db", cfg.Results.DB)
	}

	var diagnostics *report.Diagnostics
	if comp.Matcher.Options().Diagnostics {
		diagnostics = report.NewDiagnostics(stderr, cfg.Match.ContextWidth)
	}

	recognizer := wormsner.New(wormsner.Options{
		Index:       index,
		Tokenizer:   comp.Tokenizer,
		Matcher:     comp.Matcher,
		Reporter:    reporter,
		Diagnostics: diagnostics,
		Workers:     cfg.Match.Workers,
	})
	if _, err := recognizer.Run(ctx, docs); err != nil {
		return err
	}

	if results != nil {
		if err := results.Finish(ctx); err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
	}
	return nil
}
