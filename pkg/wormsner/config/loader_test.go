package config

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
	"github.com/cognicore/wormsner/pkg/wormsner/store/file"
	"github.com/cognicore/wormsner/pkg/wormsner/store/sqlite"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

func TestLoaderDefaults(t *testing.T) {
	loader := Loader{}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if comp.Tokenizer == nil || comp.Matcher == nil {
		t.Fatal("Should have tokenizer and matcher")
	}
	if loader.Config == nil {
		t.Fatal("Load should record the effective config")
	}

	opts := comp.Matcher.Options()
	if !reflect.DeepEqual(opts.IgnoredMatches.All(), []string{"Here", "La", "h", "uncertain"}) {
		t.Errorf("default ignored matches = %v", opts.IgnoredMatches.All())
	}
	if opts.IgnoredPartialMatches.Len() != 0 {
		t.Errorf("default ignored partial matches = %v", opts.IgnoredPartialMatches.All())
	}
	if opts.FlushTrailing {
		t.Error("flush_trailing should be off by default")
	}

	got := comp.Tokenizer.Tokenize(`"Blue Whale," said Ahab.`)
	want := []string{"Blue", "Whale", "said", "Ahab"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestLoaderIgnoreLists(t *testing.T) {
	matchesFile := writeFile(t, "matches.yaml", "terms: [Orca]\n")
	partialFile := writeFile(t, "partial.yaml", "terms: [Blue]\n")

	cfg := Default()
	cfg.Ignore.Matches = []string{"Here"}
	cfg.Ignore.MatchesFile = matchesFile
	cfg.Ignore.PartialMatchesFile = partialFile
	cfg.Match.Diagnostics = true
	cfg.Match.FlushTrailing = true

	loader := Loader{Config: cfg}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts := comp.Matcher.Options()
	if !reflect.DeepEqual(opts.IgnoredMatches.All(), []string{"Here", "Orca"}) {
		t.Errorf("ignored matches = %v", opts.IgnoredMatches.All())
	}
	if !reflect.DeepEqual(opts.IgnoredPartialMatches.All(), []string{"Blue"}) {
		t.Errorf("ignored partial matches = %v", opts.IgnoredPartialMatches.All())
	}
	if !opts.Diagnostics || !opts.FlushTrailing {
		t.Errorf("options = %+v", opts)
	}
}

func TestLoaderNonExistentIgnoreList(t *testing.T) {
	cfg := Default()
	cfg.Ignore.MatchesFile = "/nonexistent/ignore.yaml"
	loader := Loader{Config: cfg}
	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent ignore list")
	}
}

func TestLoaderInvalidConfig(t *testing.T) {
	loader := Loader{ConfigPath: writeFile(t, "wormsner.yaml", "index:\n  backend: redis\n")}
	if _, err := loader.Load(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestOpenIndexStore(t *testing.T) {
	ctx := context.Background()
	root := trie.Build([]trie.Entity{{ID: "1", Rank: "220", Tokens: []string{"Blue", "Whale"}}})

	for _, backend := range []string{BackendFile, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := Default()
			cfg.Index.Backend = backend
			loader := Loader{Config: cfg}

			st, err := loader.OpenIndexStore(ctx, filepath.Join(t.TempDir(), "index"))
			if err != nil {
				t.Fatalf("OpenIndexStore: %v", err)
			}
			defer st.Close()

			switch backend {
			case BackendFile:
				if _, ok := st.(*file.Store); !ok {
					t.Errorf("expected *file.Store, got %T", st)
				}
			case BackendSQLite:
				if _, ok := st.(*sqlite.Store); !ok {
					t.Errorf("expected *sqlite.Store, got %T", st)
				}
			}

			if err := st.SaveTrie(ctx, root); err != nil {
				t.Fatalf("SaveTrie: %v", err)
			}
			loaded, err := st.LoadTrie(ctx)
			if err != nil {
				t.Fatalf("LoadTrie: %v", err)
			}
			if !trie.Equal(root, loaded) {
				t.Error("round trip changed the trie")
			}
		})
	}
}
