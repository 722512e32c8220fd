// Package config loads wormsner settings from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/wormsner/pkg/wormsner/ingest"
	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
	"github.com/cognicore/wormsner/pkg/wormsner/match"
	"github.com/cognicore/wormsner/pkg/wormsner/report"
)

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Ignore    IgnoreConfig    `yaml:"ignore"`
	Match     MatchConfig     `yaml:"match"`
	Index     IndexConfig     `yaml:"index"`
	Results   ResultsConfig   `yaml:"results"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TokenizerConfig controls how document text becomes tokens.
type TokenizerConfig struct {
	// Punctuation is trimmed from both ends of every token. A nil value
	// selects ingest.Punctuation; an empty string disables trimming.
	Punctuation *string `yaml:"punctuation"`
}

// IgnoreConfig lists the first tokens that suppress matches and partial
// match diagnostics. A nil list selects the built-in default; the *_file
// entries are merged in when set.
type IgnoreConfig struct {
	Matches            []string `yaml:"matches"`
	PartialMatches     []string `yaml:"partial_matches"`
	MatchesFile        string   `yaml:"matches_file"`
	PartialMatchesFile string   `yaml:"partial_matches_file"`
}

// MatchConfig controls the matcher and the match run.
type MatchConfig struct {
	Diagnostics   bool `yaml:"diagnostics"`
	FlushTrailing bool `yaml:"flush_trailing"`
	Workers       int  `yaml:"workers"`
	ContextTokens int  `yaml:"context_tokens"`
	ContextWidth  int  `yaml:"context_width"`
}

// IndexConfig selects where the trie is persisted.
type IndexConfig struct {
	Backend     string `yaml:"backend"`
	Compression string `yaml:"compression"`
}

// ResultsConfig enables recording of match runs.
type ResultsConfig struct {
	DB string `yaml:"db"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Match: MatchConfig{
			Workers:       1,
			ContextTokens: match.DefaultContextTokens,
			ContextWidth:  report.DefaultContextWidth,
		},
		Index: IndexConfig{
			Backend:     BackendFile,
			Compression: "zstd",
		},
	}
}

// Load reads a YAML config file (if path is non-empty), applies
// WORMSNER_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing config file %s: %w", internalerr.ErrInvalidConfig, path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("WORMSNER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WORMSNER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WORMSNER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: WORMSNER_WORKERS=%q", internalerr.ErrInvalidConfig, v)
		}
		cfg.Match.Workers = n
	}
	if v := os.Getenv("WORMSNER_INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = v
	}
	if v := os.Getenv("WORMSNER_INDEX_COMPRESSION"); v != "" {
		cfg.Index.Compression = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", internalerr.ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", internalerr.ErrInvalidConfig, c.Logging.Format)
	}
	switch c.Index.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("%w: index.backend %q", internalerr.ErrInvalidConfig, c.Index.Backend)
	}
	switch c.Index.Compression {
	case "zstd", "lz4", "none":
	default:
		return fmt.Errorf("%w: index.compression %q", internalerr.ErrInvalidConfig, c.Index.Compression)
	}
	if c.Match.Workers < 1 {
		return fmt.Errorf("%w: match.workers must be at least 1, got %d", internalerr.ErrInvalidConfig, c.Match.Workers)
	}
	if c.Match.ContextTokens < 0 || c.Match.ContextWidth < 0 {
		return fmt.Errorf("%w: match context must not be negative", internalerr.ErrInvalidConfig)
	}
	return nil
}

// PunctuationOrDefault returns the configured punctuation set.
func (t TokenizerConfig) PunctuationOrDefault() string {
	if t.Punctuation == nil {
		return ingest.Punctuation
	}
	return *t.Punctuation
}

// IgnoreList is the YAML shape of an ignore list file.
type IgnoreList struct {
	Terms []string `yaml:"terms"`
}

// LoadIgnoreList loads ignored first tokens from a YAML file.
func LoadIgnoreList(path string) (*IgnoreList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list IgnoreList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", internalerr.ErrInvalidConfig, path, err)
	}

	return &list, nil
}
