package ingest

import (
	"github.com/cognicore/wormsner/pkg/wormsner/match"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

// Pipeline orchestrates the matching flow for one document:
// text → tokenization → entity matching
type Pipeline struct {
	tokenizer *Tokenizer
	matcher   *match.Matcher
	root      *trie.Node
}

// NewPipeline creates a pipeline matching against the trie at root. The trie
// is only read and may be shared between pipelines.
func NewPipeline(tokenizer *Tokenizer, matcher *match.Matcher, root *trie.Node) *Pipeline {
	return &Pipeline{
		tokenizer: tokenizer,
		matcher:   matcher,
		root:      root,
	}
}

// ProcessedDoc represents a document after matching
type ProcessedDoc struct {
	Tokens   []string
	Matches  []match.Match
	Partials []match.Partial
}

// Process runs a document's text through the pipeline
func (p *Pipeline) Process(text string) ProcessedDoc {
	tokens := p.tokenizer.Tokenize(text)
	matches, partials := p.matcher.Scan(tokens, p.root)

	return ProcessedDoc{
		Tokens:   tokens,
		Matches:  matches,
		Partials: partials,
	}
}
