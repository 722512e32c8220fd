// Command dump-trie prints the part of a trie index reached from a start
// token, one token per line, indented by depth.
//
// Usage:
//
//	dump-trie [-config wormsner.yaml] [-backend file|sqlite] index token
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cognicore/wormsner/internal/logger"
	"github.com/cognicore/wormsner/pkg/wormsner/config"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("dump-trie failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dump-trie", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML config file (optional)")
		backend    = fs.String("backend", "", "Index backend: file or sqlite (overrides config)")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: dump-trie [flags] index token")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected 2 arguments, got %d", fs.NArg())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *backend != "" {
		cfg.Index.Backend = *backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, stderr)

	loader := config.Loader{Config: cfg}
	st, err := loader.OpenIndexStore(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer st.Close()

	root, err := st.LoadTrie(ctx)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(stdout)
	if err := trie.FprintFrom(w, root, fs.Arg(1)); err != nil {
		return err
	}
	return w.Flush()
}
