// Command build-trie reads a tab-separated entity table and writes the
// token trie index used by match-entities.
//
// Usage:
//
//	build-trie [-config wormsner.yaml] [-backend file|sqlite] [-compression zstd|lz4|none] entities.tsv index
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/wormsner/internal/logger"
	"github.com/cognicore/wormsner/pkg/wormsner/config"
	"github.com/cognicore/wormsner/pkg/wormsner/ingest"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("build-trie failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("build-trie", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "YAML config file (optional)")
		backend     = fs.String("backend", "", "Index backend: file or sqlite (overrides config)")
		compression = fs.String("compression", "", "File index compression: zstd, lz4 or none (overrides config)")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: build-trie [flags] entities.tsv index")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected 2 arguments, got %d", fs.NArg())
	}
	inputPath, indexPath := fs.Arg(0), fs.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *backend != "" {
		cfg.Index.Backend = *backend
	}
	if *compression != "" {
		cfg.Index.Compression = *compression
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, stderr)
	log := logger.WithComponent("build-trie")

	start := time.Now()
	entities, err := ingest.LoadEntities(inputPath)
	if err != nil {
		return err
	}

	tokens := 0
	for _, e := range entities {
		tokens += len(e.Tokens)
	}
	log.Info("building trie",
		"entities", humanize.Comma(int64(len(entities))),
		"tokens", humanize.Comma(int64(tokens)))

	root := trie.Build(entities)
	stats := root.Stats()
	log.Info("trie built",
		"nodes", humanize.Comma(int64(stats.Nodes)),
		"terminal", humanize.Comma(int64(stats.Terminal)),
		"max_depth", stats.MaxDepth,
		"elapsed", time.Since(start).Round(time.Millisecond))

	loader := config.Loader{Config: cfg}
	st, err := loader.OpenIndexStore(ctx, indexPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveTrie(ctx, root); err != nil {
		return fmt.Errorf("save index %s: %w", indexPath, err)
	}

	fmt.Fprintf(stdout, "wrote %s: %d entities, %d nodes (%s backend)\n",
		indexPath, stats.Entities, stats.Nodes, cfg.Index.Backend)
	return nil
}
