// Package report formats matches and partial-match diagnostics.
package report

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cognicore/wormsner/pkg/wormsner/match"
)

// DefaultContextWidth is the padded width of the left context and of the
// span in a diagnostic line.
const DefaultContextWidth = 64

// Reporter receives the matches of one document.
type Reporter interface {
	Report(ctx context.Context, source string, tokens []string, matches []match.Match) error
}

// TSV writes one tab-separated line per match:
// source, begin, end, ids, ranks, matched text.
type TSV struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTSV creates a reporter writing to w.
func NewTSV(w io.Writer) *TSV {
	return &TSV{w: w}
}

// Report implements Reporter.
func (r *TSV) Report(_ context.Context, source string, tokens []string, matches []match.Match) error {
	if len(matches) == 0 {
		return nil
	}
	var b strings.Builder
	for _, m := range matches {
		b.WriteString(FormatMatch(source, tokens, m))
		b.WriteByte('\n')
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.w, b.String())
	return err
}

// FormatMatch renders m as a TSV line without the trailing newline.
func FormatMatch(source string, tokens []string, m match.Match) string {
	return strings.Join([]string{
		source,
		strconv.Itoa(m.Begin),
		strconv.Itoa(m.End),
		strings.Join(m.IDs, ","),
		strings.Join(m.Ranks, ","),
		m.Text(tokens),
	}, "\t")
}

// Multi fans a document's matches out to several reporters, stopping at the
// first error.
func Multi(reporters ...Reporter) Reporter {
	return multi(reporters)
}

type multi []Reporter

func (m multi) Report(ctx context.Context, source string, tokens []string, matches []match.Match) error {
	for _, r := range m {
		if err := r.Report(ctx, source, tokens, matches); err != nil {
			return err
		}
	}
	return nil
}

// Diagnostics writes partial matches, one line each.
type Diagnostics struct {
	mu    sync.Mutex
	w     io.Writer
	width int
}

// NewDiagnostics creates a diagnostics writer. width <= 0 selects
// DefaultContextWidth.
func NewDiagnostics(w io.Writer, width int) *Diagnostics {
	if width <= 0 {
		width = DefaultContextWidth
	}
	return &Diagnostics{w: w, width: width}
}

// Write writes partials in order.
func (d *Diagnostics) Write(partials []match.Partial) error {
	if len(partials) == 0 {
		return nil
	}
	var b strings.Builder
	for _, p := range partials {
		b.WriteString(FormatPartial(p, d.width))
		b.WriteByte('\n')
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := io.WriteString(d.w, b.String())
	return err
}

// FormatPartial renders p as
// "PARTIAL: " + left context + span + right context, with the left context
// and the span each padded with dots to width characters.
func FormatPartial(p match.Partial, width int) string {
	return "PARTIAL: " +
		padRight(strings.Join(p.Left, " "), width) +
		padRight(strings.Join(p.Span, " "), width) +
		strings.Join(p.Right, " ")
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(".", width-n)
}
