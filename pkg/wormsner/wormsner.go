// Package wormsner recognises named entities in documents by matching their
// tokens against a trie of entity names.
package wormsner

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/wormsner/pkg/wormsner/ingest"
	"github.com/cognicore/wormsner/pkg/wormsner/match"
	"github.com/cognicore/wormsner/pkg/wormsner/report"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

// Recognizer is the matching facade. The trie is shared read-only between
// workers.
type Recognizer struct {
	pipeline    *ingest.Pipeline
	reporter    report.Reporter
	diagnostics *report.Diagnostics
	workers     int
}

// Options configures a Recognizer
type Options struct {
	Index     *trie.Node
	Tokenizer *ingest.Tokenizer
	Matcher   *match.Matcher
	// Reporter receives every document's matches in input order,
	// including documents without any.
	Reporter report.Reporter
	// Diagnostics, when set, receives partial matches. The matcher only
	// produces them when its Diagnostics option is on.
	Diagnostics *report.Diagnostics
	Workers     int
}

// New creates a Recognizer. A nil Tokenizer or Matcher selects the defaults;
// Workers below 1 means one.
func New(opts Options) *Recognizer {
	tok := opts.Tokenizer
	if tok == nil {
		tok = ingest.DefaultTokenizer()
	}
	m := opts.Matcher
	if m == nil {
		m = match.Default()
	}
	return &Recognizer{
		pipeline:    ingest.NewPipeline(tok, m, opts.Index),
		reporter:    opts.Reporter,
		diagnostics: opts.Diagnostics,
		workers:     max(opts.Workers, 1),
	}
}

// Document is a named text to match.
type Document struct {
	Name string
	Text string
}

// Result is the outcome of matching one document.
type Result struct {
	Name     string
	Tokens   []string
	Matches  []match.Match
	Partials []match.Partial
}

// Summary counts what a Run processed.
type Summary struct {
	Documents int
	Tokens    int
	Matches   int
	Partials  int
}

// MatchDocument tokenizes and matches a single document.
func (r *Recognizer) MatchDocument(doc Document) Result {
	processed := r.pipeline.Process(doc.Text)
	return Result{
		Name:     doc.Name,
		Tokens:   processed.Tokens,
		Matches:  processed.Matches,
		Partials: processed.Partials,
	}
}

// Run matches docs on up to Workers goroutines and hands the results to the
// diagnostics writer and the reporter strictly in input order. It stops at
// the first reporting error or when ctx is cancelled.
func (r *Recognizer) Run(ctx context.Context, docs []Document) (Summary, error) {
	results := make([]Result, len(docs))
	ready := make([]chan struct{}, len(docs))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		workers, wctx := errgroup.WithContext(gctx)
		workers.SetLimit(r.workers)
		for i, doc := range docs {
			if wctx.Err() != nil {
				break
			}
			i, doc := i, doc
			workers.Go(func() error {
				results[i] = r.MatchDocument(doc)
				close(ready[i])
				return nil
			})
		}
		return workers.Wait()
	})

	var summary Summary
	g.Go(func() error {
		for i := range docs {
			select {
			case <-ready[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			if err := r.emit(gctx, results[i]); err != nil {
				return err
			}
			summary.Documents++
			summary.Tokens += len(results[i].Tokens)
			summary.Matches += len(results[i].Matches)
			summary.Partials += len(results[i].Partials)
			// release the document once it has been reported
			results[i] = Result{}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return summary, err
	}

	slog.Info("matching complete",
		"documents", humanize.Comma(int64(summary.Documents)),
		"tokens", humanize.Comma(int64(summary.Tokens)),
		"matches", humanize.Comma(int64(summary.Matches)),
		"partials", humanize.Comma(int64(summary.Partials)),
		"workers", r.workers)
	return summary, nil
}

func (r *Recognizer) emit(ctx context.Context, res Result) error {
	if r.diagnostics != nil {
		if err := r.diagnostics.Write(res.Partials); err != nil {
			return err
		}
	}
	if r.reporter != nil {
		return r.reporter.Report(ctx, res.Name, res.Tokens, res.Matches)
	}
	return nil
}
