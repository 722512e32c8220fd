package store

import (
	"context"

	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

// IndexStore persists a built trie. Load(Save(t)) must be structurally equal
// to t; the stored layout is internal to one build of the tools.
type IndexStore interface {
	SaveTrie(ctx context.Context, root *trie.Node) error
	LoadTrie(ctx context.Context) (*trie.Node, error)
	Close() error
}
