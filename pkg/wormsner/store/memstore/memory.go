package memstore

import (
	"bytes"
	"context"
	"sync"

	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

// Store is an in-memory implementation of store.IndexStore for tests.
// It keeps the encoded trie so a load never shares nodes with a save.
type Store struct {
	mu      sync.RWMutex
	encoded []byte
	saves   int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Close implements store.IndexStore.
func (s *Store) Close() error { return nil }

// SaveTrie replaces the stored trie.
func (s *Store) SaveTrie(ctx context.Context, root *trie.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := trie.Encode(&buf, root); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.encoded = buf.Bytes()
	s.saves++
	return nil
}

// LoadTrie decodes a fresh copy of the stored trie.
func (s *Store) LoadTrie(ctx context.Context) (*trie.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data := s.encoded
	s.mu.RUnlock()

	if data == nil {
		return nil, internalerr.ErrNotFound
	}
	return trie.Decode(bytes.NewReader(data))
}

// Saves reports how many times SaveTrie succeeded.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
