package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
	"github.com/cognicore/wormsner/pkg/wormsner/match"
	"github.com/cognicore/wormsner/pkg/wormsner/report"
	"github.com/cognicore/wormsner/pkg/wormsner/store"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

var (
	_ store.IndexStore = (*Store)(nil)
	_ report.Reporter  = (*Run)(nil)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "wormsner.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleTrie() *trie.Node {
	return trie.Build([]trie.Entity{
		{ID: "1", Rank: "220", Tokens: []string{"Blue", "Whale"}},
		{ID: "2", Rank: "220", Tokens: []string{"Whale"}},
		{ID: "3", Rank: "180", Tokens: []string{"Balaenoptera"}},
		{ID: "4", Rank: "220", Tokens: []string{"Balaenoptera", "musculus"}},
		{ID: "5", Rank: "220", Tokens: []string{"Blue", "Whale"}},
		{ID: "6", Rank: "10", Tokens: []string{"", "odd"}},
	})
}

func TestLoadTrieEmpty(t *testing.T) {
	st := openTestStore(t)
	_, err := st.LoadTrie(context.Background())
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveLoadTrie(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	original := sampleTrie()
	if err := st.SaveTrie(ctx, original); err != nil {
		t.Fatalf("SaveTrie: %v", err)
	}
	loaded, err := st.LoadTrie(ctx)
	if err != nil {
		t.Fatalf("LoadTrie: %v", err)
	}
	if !trie.Equal(original, loaded) {
		t.Fatal("loaded trie differs from saved trie")
	}

	node := loaded.Lookup([]string{"Blue", "Whale"})
	if node == nil {
		t.Fatal("Blue Whale not found")
	}
	if !reflect.DeepEqual(node.IDs(), []string{"1", "5"}) {
		t.Errorf("ids = %v, want [1 5]", node.IDs())
	}
}

func TestSaveTrieReplaces(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.SaveTrie(ctx, sampleTrie()); err != nil {
		t.Fatal(err)
	}
	small := trie.Build([]trie.Entity{{ID: "9", Rank: "1", Tokens: []string{"Orca"}}})
	if err := st.SaveTrie(ctx, small); err != nil {
		t.Fatal(err)
	}
	loaded, err := st.LoadTrie(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !trie.Equal(small, loaded) {
		t.Error("second save did not replace the first")
	}
}

func TestSaveLoadRootEntity(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	root := trie.Build([]trie.Entity{{ID: "0", Rank: "0"}})
	if err := st.SaveTrie(ctx, root); err != nil {
		t.Fatal(err)
	}
	loaded, err := st.LoadTrie(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.IsTerminal() || loaded.IDs()[0] != "0" {
		t.Errorf("root entity lost: %v", loaded.IDs())
	}
}

func TestRunReport(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	run, err := st.BeginRun(ctx, "worms.trie")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if len(run.ID()) != 26 {
		t.Errorf("run id %q is not a ULID", run.ID())
	}

	tokens := []string{"The", "Blue", "Whale", "is", "a", "Whale", "too"}
	matches := match.Default().Match(tokens, sampleTrie())
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	if err := run.Report(ctx, "a.txt", tokens, matches); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if err := run.Report(ctx, "b.txt", []string{"nothing"}, nil); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if err := run.Finish(ctx); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	info, err := st.GetRun(ctx, run.ID())
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if info.Documents != 2 || info.Matches != 2 {
		t.Errorf("run totals = %d docs, %d matches; want 2, 2", info.Documents, info.Matches)
	}
	if info.IndexPath != "worms.trie" {
		t.Errorf("index path = %q", info.IndexPath)
	}
	if info.FinishedAt.Before(info.StartedAt) {
		t.Error("finished before started")
	}

	stored, err := st.RunMatches(ctx, run.ID())
	if err != nil {
		t.Fatalf("RunMatches: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored matches, got %d", len(stored))
	}
	first := stored[0]
	if first.Source != "a.txt" || first.Begin != 1 || first.End != 3 || first.Text != "Blue Whale" {
		t.Errorf("unexpected first match %+v", first)
	}
	if !reflect.DeepEqual(first.IDs, []string{"1", "5"}) || !reflect.DeepEqual(first.Ranks, []string{"220", "220"}) {
		t.Errorf("first match ids/ranks = %v/%v", first.IDs, first.Ranks)
	}
	if stored[1].Text != "Whale" || stored[1].Begin != 5 {
		t.Errorf("unexpected second match %+v", stored[1])
	}
}

func TestRunIDsAreOrdered(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	var prev string
	for i := 0; i < 5; i++ {
		run, err := st.BeginRun(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if run.ID() <= prev {
			t.Errorf("run id %s not after %s", run.ID(), prev)
		}
		prev = run.ID()
	}
}

func TestGetRunMissing(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetRun(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	runs, err := st.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}

	first, err := st.BeginRun(ctx, "a.trie")
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.BeginRun(ctx, "b.trie")
	if err != nil {
		t.Fatal(err)
	}

	runs, err = st.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != first.ID() || runs[1].ID != second.ID() {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if !runs[0].FinishedAt.IsZero() {
		t.Error("unfinished run should have no finish time")
	}
}
