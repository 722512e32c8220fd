package ingest

import (
	"strings"
	"unicode"
)

// Punctuation is the ASCII punctuation stripped from token edges by default.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Tokenizer splits text on whitespace and trims punctuation from each
// token's edges. Interior punctuation and letter case are left alone.
type Tokenizer struct {
	punctuation string
}

// NewTokenizer creates a tokenizer trimming the characters in punctuation.
// An empty string disables trimming.
func NewTokenizer(punctuation string) *Tokenizer {
	return &Tokenizer{punctuation: punctuation}
}

// DefaultTokenizer trims Punctuation.
func DefaultTokenizer() *Tokenizer {
	return NewTokenizer(Punctuation)
}

// Tokenize splits text into tokens. A word made only of punctuation becomes
// an empty token rather than being dropped, so token positions keep lining
// up with the words of the text.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitFields(text)
	tokens := make([]string, len(words))
	for i, w := range words {
		tokens[i] = strings.Trim(w, t.punctuation)
	}
	return tokens
}

// splitFields splits s around runs of whitespace. Besides unicode.IsSpace it
// treats the ASCII file, group, record and unit separators as whitespace.
func splitFields(s string) []string {
	return strings.FieldsFunc(s, isSpace)
}

func isSpace(r rune) bool {
	if r >= 0x1c && r <= 0x1f {
		return true
	}
	return unicode.IsSpace(r)
}
