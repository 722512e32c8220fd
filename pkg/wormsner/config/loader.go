package config

import (
	"context"
	"fmt"

	"github.com/cognicore/wormsner/internal/logger"
	"github.com/cognicore/wormsner/pkg/wormsner/ignore"
	"github.com/cognicore/wormsner/pkg/wormsner/ingest"
	"github.com/cognicore/wormsner/pkg/wormsner/match"
	"github.com/cognicore/wormsner/pkg/wormsner/store"
	"github.com/cognicore/wormsner/pkg/wormsner/store/file"
	"github.com/cognicore/wormsner/pkg/wormsner/store/sqlite"
)

// Loader loads the configuration and constructs components
type Loader struct {
	// ConfigPath is the YAML file to read. Empty means defaults plus
	// environment overrides.
	ConfigPath string
	// Config, when set, is used as is instead of reading ConfigPath.
	Config *Config
}

// Components holds the components built from a configuration
type Components struct {
	Config    *Config
	Tokenizer *ingest.Tokenizer
	Matcher   *match.Matcher
}

// Load reads the configuration and ignore lists and returns initialized
// components. After Load, l.Config holds the effective configuration.
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	if cfg == nil {
		var err error
		cfg, err = Load(l.ConfigPath)
		if err != nil {
			return nil, err
		}
		l.Config = cfg
	}

	ignored, err := buildIgnoreSet(cfg.Ignore.Matches, cfg.Ignore.MatchesFile, ignore.DefaultMatches)
	if err != nil {
		return nil, fmt.Errorf("load ignored matches: %w", err)
	}
	ignoredPartial, err := buildIgnoreSet(cfg.Ignore.PartialMatches, cfg.Ignore.PartialMatchesFile, ignore.DefaultPartialMatches)
	if err != nil {
		return nil, fmt.Errorf("load ignored partial matches: %w", err)
	}

	diagnostics := cfg.Match.Diagnostics || logger.DiagnosticsEnabled()

	return &Components{
		Config:    cfg,
		Tokenizer: ingest.NewTokenizer(cfg.Tokenizer.PunctuationOrDefault()),
		Matcher: match.New(match.Options{
			IgnoredMatches:        ignored,
			IgnoredPartialMatches: ignoredPartial,
			Diagnostics:           diagnostics,
			FlushTrailing:         cfg.Match.FlushTrailing,
			ContextTokens:         cfg.Match.ContextTokens,
		}),
	}, nil
}

func buildIgnoreSet(terms []string, path string, defaults func() *ignore.Set) (*ignore.Set, error) {
	var set *ignore.Set
	if terms == nil {
		set = defaults()
	} else {
		set = ignore.New(terms...)
	}
	if path != "" {
		list, err := LoadIgnoreList(path)
		if err != nil {
			return nil, err
		}
		for _, term := range list.Terms {
			set.Add(term)
		}
	}
	return set, nil
}

// OpenIndexStore opens the configured index backend at path.
func (l *Loader) OpenIndexStore(ctx context.Context, path string) (store.IndexStore, error) {
	cfg := l.Config
	if cfg == nil {
		cfg = Default()
	}

	switch cfg.Index.Backend {
	case BackendSQLite:
		st, err := sqlite.OpenSQLite(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite index %s: %w", path, err)
		}
		return st, nil
	default:
		compression, err := file.ParseCompression(cfg.Index.Compression)
		if err != nil {
			return nil, err
		}
		return file.New(path, compression), nil
	}
}
