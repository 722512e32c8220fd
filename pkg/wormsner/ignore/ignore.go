// Package ignore holds the token sets that suppress reporting of matches and
// logging of partial matches by their first token.
package ignore

import "sort"

// Matches whose first token is one of these coincide with very frequent
// English words.
var defaultMatches = []string{"Here", "uncertain", "La", "h"}

// Set is a set of literal tokens. Comparison is exact; no case folding.
// A nil *Set contains nothing.
type Set struct {
	terms map[string]struct{}
}

// New creates a set holding terms.
func New(terms ...string) *Set {
	s := &Set{terms: make(map[string]struct{}, len(terms))}
	for _, t := range terms {
		s.terms[t] = struct{}{}
	}
	return s
}

// DefaultMatches returns the default set of suppressed match starts.
func DefaultMatches() *Set {
	return New(defaultMatches...)
}

// DefaultPartialMatches returns the default set of partial match starts
// excluded from diagnostics. It is empty.
func DefaultPartialMatches() *Set {
	return New()
}

// Contains checks whether token is in the set
func (s *Set) Contains(token string) bool {
	if s == nil {
		return false
	}
	_, ok := s.terms[token]
	return ok
}

// Add adds a token to the set
func (s *Set) Add(token string) {
	if s.terms == nil {
		s.terms = make(map[string]struct{})
	}
	s.terms[token] = struct{}{}
}

// Remove removes a token from the set
func (s *Set) Remove(token string) {
	delete(s.terms, token)
}

// Len returns the number of tokens in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.terms)
}

// All returns all tokens in ascending order.
func (s *Set) All() []string {
	if s == nil {
		return nil
	}
	result := make([]string, 0, len(s.terms))
	for t := range s.terms {
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}
