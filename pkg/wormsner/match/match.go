// Package match scans token sequences for entity names stored in a trie.
//
// The scanner is a greedy single pass. It follows trie edges from the first
// token that has one, and when the next token has no edge it either confirms
// the candidate (the current node is terminal and the first token is not
// ignored) or discards it as a partial match and resumes one token after the
// candidate's start. It has no suffix links: an entity that starts inside a
// failed candidate, later than one token after its start, is not retried.
// A candidate still open when the input ends is dropped unless FlushTrailing
// is set.
package match

import (
	"slices"
	"strings"

	"github.com/cognicore/wormsner/pkg/wormsner/ignore"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

// DefaultContextTokens is the number of tokens shown on each side of a
// partial match.
const DefaultContextTokens = 5

// Match is a confirmed entity mention spanning tokens [Begin, End).
// IDs and Ranks are the terminal node's lists, in insertion order.
type Match struct {
	Begin int
	End   int
	IDs   []string
	Ranks []string
}

// Text returns the matched tokens joined by single spaces.
func (m Match) Text(tokens []string) string {
	return strings.Join(tokens[m.Begin:m.End], " ")
}

// Partial is a candidate that followed trie edges over [Begin, End) but was
// not confirmed, with surrounding context.
type Partial struct {
	Begin int
	End   int
	Left  []string
	Span  []string
	Right []string
}

// Options configures a Matcher.
type Options struct {
	// IgnoredMatches suppresses confirmed matches by their first token.
	IgnoredMatches *ignore.Set
	// IgnoredPartialMatches keeps partial matches out of diagnostics by
	// their first token. It never changes which matches are reported.
	IgnoredPartialMatches *ignore.Set
	// Diagnostics makes Scan collect partial matches.
	Diagnostics bool
	// FlushTrailing resolves a candidate that is still open at end of input
	// as if the next token had no edge. Off by default.
	FlushTrailing bool
	// ContextTokens is the context width of a Partial on each side.
	// Zero selects DefaultContextTokens.
	ContextTokens int
}

// Matcher runs the scan. It holds no per-scan state and is safe for
// concurrent use, as is the trie it reads.
type Matcher struct {
	opts Options
}

// New creates a matcher with the given options.
func New(opts Options) *Matcher {
	if opts.ContextTokens <= 0 {
		opts.ContextTokens = DefaultContextTokens
	}
	return &Matcher{opts: opts}
}

// Default creates a matcher with the default ignore sets and diagnostics off.
func Default() *Matcher {
	return New(Options{
		IgnoredMatches:        ignore.DefaultMatches(),
		IgnoredPartialMatches: ignore.DefaultPartialMatches(),
	})
}

// Options returns the effective options.
func (m *Matcher) Options() Options { return m.opts }

// Match returns the confirmed matches of tokens against root, in order.
func (m *Matcher) Match(tokens []string, root *trie.Node) []Match {
	matches, _ := m.scan(tokens, root, false)
	return matches
}

// Scan is Match plus the partial matches seen along the way. Partials are
// only collected when Diagnostics is enabled.
func (m *Matcher) Scan(tokens []string, root *trie.Node) ([]Match, []Partial) {
	return m.scan(tokens, root, m.opts.Diagnostics)
}

func (m *Matcher) scan(tokens []string, root *trie.Node, diagnostics bool) ([]Match, []Partial) {
	var (
		matches  []Match
		partials []Partial
	)
	if root == nil {
		return nil, nil
	}

	n := len(tokens)
	node := root
	begin := -1 // -1 while no candidate is open

	for i := 0; i < n || (i == n && begin >= 0 && m.opts.FlushTrailing); i++ {
		if i < n {
			if child, ok := node.Child(tokens[i]); ok {
				node = child
				if begin < 0 {
					begin = i
				}
				continue
			}
		}
		if begin < 0 {
			continue
		}

		if node.IsTerminal() && !m.opts.IgnoredMatches.Contains(tokens[begin]) {
			matches = append(matches, Match{
				Begin: begin,
				End:   i,
				IDs:   slices.Clip(node.IDs()),
				Ranks: slices.Clip(node.Ranks()),
			})
		} else {
			if diagnostics && !m.opts.IgnoredPartialMatches.Contains(tokens[begin]) {
				partials = append(partials, m.partial(tokens, begin, i))
			}
			// resume one token after the candidate's start
			i = begin
		}
		node = root
		begin = -1
	}

	return matches, partials
}

func (m *Matcher) partial(tokens []string, begin, end int) Partial {
	ctx := m.opts.ContextTokens
	return Partial{
		Begin: begin,
		End:   end,
		Left:  tokens[max(0, begin-ctx):begin],
		Span:  tokens[begin:end],
		Right: tokens[end:min(len(tokens), end+ctx)],
	}
}
