// Package trie implements the prefix index over entity token sequences.
//
// Every node stands for the token path that leads to it from the root. A node
// is terminal when at least one entity's name equals that path; terminal nodes
// may still have children when one name is a prefix of another. Nodes are
// built once and shared read-only afterwards.
package trie

import "sort"

// Entity is a named, ranked thing identified by ID whose canonical name is
// the literal token sequence Tokens.
type Entity struct {
	Rank   string
	Tokens []string
	ID     string
}

// Node is a trie node. ids and ranks are parallel lists in insertion order.
type Node struct {
	ids      []string
	ranks    []string
	children map[string]*Node
}

// New returns an empty root node.
func New() *Node {
	return &Node{children: make(map[string]*Node)}
}

// Build indexes entities in input order and returns the root.
func Build(entities []Entity) *Node {
	root := New()
	for _, e := range entities {
		root.Insert(e)
	}
	return root
}

// Insert walks e.Tokens from n, creating missing nodes, and appends e's id
// and rank to the final node. An entity with no tokens lands on n itself.
func (n *Node) Insert(e Entity) *Node {
	node := n
	for _, tok := range e.Tokens {
		node = node.Extend(tok)
	}
	node.Append(e.ID, e.Rank)
	return node
}

// Extend returns the child for token, creating it when absent.
func (n *Node) Extend(token string) *Node {
	if child, ok := n.children[token]; ok {
		return child
	}
	child := New()
	n.children[token] = child
	return child
}

// Append records one more entity on n.
func (n *Node) Append(id, rank string) {
	n.ids = append(n.ids, id)
	n.ranks = append(n.ranks, rank)
}

// Child returns the child reached by token.
func (n *Node) Child(token string) (*Node, bool) {
	child, ok := n.children[token]
	return child, ok
}

// Lookup follows tokens from n and returns the node reached, or nil when the
// path leaves the trie.
func (n *Node) Lookup(tokens []string) *Node {
	node := n
	for _, tok := range tokens {
		next, ok := node.children[tok]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

// IDs returns the entity ids stored on n. The slice is shared with the node
// and must not be modified.
func (n *Node) IDs() []string { return n.ids }

// Ranks returns the ranks parallel to IDs. The slice must not be modified.
func (n *Node) Ranks() []string { return n.ranks }

// IsTerminal reports whether any entity ends at n.
func (n *Node) IsTerminal() bool { return len(n.ids) > 0 }

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// Tokens returns the child edge labels in ascending order.
func (n *Node) Tokens() []string {
	tokens := make([]string, 0, len(n.children))
	for tok := range n.children {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// Walk visits n and every descendant depth-first, children in ascending
// token order. path holds the tokens from n to the visited node and is reused
// between calls. Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(path []string, node *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(path []string, fn func([]string, *Node) bool) {
	if !fn(path, n) {
		return
	}
	for _, tok := range n.Tokens() {
		n.children[tok].walk(append(path, tok), fn)
	}
}

// Stats summarizes a trie.
type Stats struct {
	Nodes    int // including the root
	Terminal int // nodes with at least one entity
	Entities int // total (id, rank) entries
	MaxDepth int
}

// Stats counts nodes and entries below n, n included.
func (n *Node) Stats() Stats {
	var s Stats
	n.Walk(func(path []string, node *Node) bool {
		s.Nodes++
		if node.IsTerminal() {
			s.Terminal++
		}
		s.Entities += len(node.ids)
		if len(path) > s.MaxDepth {
			s.MaxDepth = len(path)
		}
		return true
	})
	return s
}

// Equal reports whether a and b have the same shape, edges, ids and ranks.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !equalStrings(a.ids, b.ids) || !equalStrings(a.ranks, b.ranks) {
		return false
	}
	if len(a.children) != len(b.children) {
		return false
	}
	for tok, ac := range a.children {
		bc, ok := b.children[tok]
		if !ok || !Equal(ac, bc) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
