package trie

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
)

func ent(id, rank, name string) Entity {
	return Entity{ID: id, Rank: rank, Tokens: strings.Fields(name)}
}

func sample() []Entity {
	return []Entity{
		ent("1", "220", "Blue Whale"),
		ent("2", "220", "Whale"),
		ent("3", "180", "Balaenoptera"),
		ent("4", "220", "Balaenoptera musculus"),
		ent("5", "220", "Balaenoptera physalus"),
		ent("6", "220", "Blue Whale"),
	}
}

// distinctPrefixes counts the distinct non-empty token prefixes of entities.
func distinctPrefixes(entities []Entity) int {
	seen := make(map[string]struct{})
	for _, e := range entities {
		for i := 1; i <= len(e.Tokens); i++ {
			seen[strings.Join(e.Tokens[:i], "\x00")] = struct{}{}
		}
	}
	return len(seen)
}

func TestBuildNodeCount(t *testing.T) {
	entities := sample()
	root := Build(entities)

	stats := root.Stats()
	assert.Equal(t, 1+distinctPrefixes(entities), stats.Nodes)
	assert.Equal(t, 6, stats.Entities)
	assert.Equal(t, 5, stats.Terminal)
	assert.Equal(t, 2, stats.MaxDepth)
}

func TestBuildInsertionFidelity(t *testing.T) {
	entities := sample()
	root := Build(entities)

	positions := make(map[*Node]int)
	for _, e := range entities {
		node := root.Lookup(e.Tokens)
		require.NotNil(t, node, "entity %s not reachable", e.ID)

		pos := positions[node]
		positions[node]++
		require.Less(t, pos, len(node.IDs()))
		assert.Equal(t, e.ID, node.IDs()[pos])
		assert.Equal(t, e.Rank, node.Ranks()[pos])
	}
}

func TestBuildParallelLists(t *testing.T) {
	root := Build(sample())
	root.Walk(func(path []string, node *Node) bool {
		assert.Equal(t, len(node.IDs()), len(node.Ranks()), "path %v", path)
		return true
	})
}

func TestBuildDuplicateNameKeepsOrder(t *testing.T) {
	root := Build(sample())
	node := root.Lookup([]string{"Blue", "Whale"})
	require.NotNil(t, node)
	assert.Equal(t, []string{"1", "6"}, node.IDs())
	assert.Equal(t, []string{"220", "220"}, node.Ranks())
}

func TestBuildPrefixIsTerminalWithChildren(t *testing.T) {
	root := Build(sample())
	node := root.Lookup([]string{"Balaenoptera"})
	require.NotNil(t, node)
	assert.True(t, node.IsTerminal())
	assert.Equal(t, []string{"musculus", "physalus"}, node.Tokens())

	inner := root.Lookup([]string{"Blue"})
	require.NotNil(t, inner)
	assert.False(t, inner.IsTerminal())
}

func TestBuildNoNormalization(t *testing.T) {
	root := Build([]Entity{ent("1", "1", "Blue Whale"), ent("2", "1", "blue whale")})
	assert.Equal(t, 2, root.Len())
	assert.Equal(t, []string{"1"}, root.Lookup([]string{"Blue", "Whale"}).IDs())
	assert.Equal(t, []string{"2"}, root.Lookup([]string{"blue", "whale"}).IDs())
}

func TestBuildEmptyTokensMarksRoot(t *testing.T) {
	root := Build([]Entity{{ID: "0", Rank: "0"}})
	assert.True(t, root.IsTerminal())
	assert.Equal(t, []string{"0"}, root.IDs())
	assert.Equal(t, 1, root.Stats().Nodes)
}

func TestLookupMiss(t *testing.T) {
	root := Build(sample())
	assert.Nil(t, root.Lookup([]string{"Blue", "Shark"}))
	assert.Equal(t, root, root.Lookup(nil))

	_, ok := root.Child("Shark")
	assert.False(t, ok)
}

func TestWalkSkipsSubtree(t *testing.T) {
	root := Build(sample())
	var visited []string
	root.Walk(func(path []string, node *Node) bool {
		visited = append(visited, strings.Join(path, " "))
		return len(path) == 0 || path[0] != "Balaenoptera"
	})
	assert.Equal(t, []string{"", "Balaenoptera", "Blue", "Blue Whale", "Whale"}, visited)
}

func TestEqual(t *testing.T) {
	a := Build(sample())
	b := Build(sample())
	assert.True(t, Equal(a, b))

	b.Lookup([]string{"Whale"}).Append("7", "1")
	assert.False(t, Equal(a, b))

	c := Build(sample()[:5])
	assert.False(t, Equal(a, c))

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}

func TestCodecRoundTrip(t *testing.T) {
	original := Build(sample())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, original))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.True(t, Equal(original, decoded))
	assert.Equal(t, original.Stats(), decoded.Stats())
}

func TestCodecDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Encode(&a, Build(sample())))
	require.NoError(t, Encode(&b, Build(sample())))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestCodecEmptyAndRootEntity(t *testing.T) {
	for _, root := range []*Node{New(), Build([]Entity{{ID: "0", Rank: "1"}})} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, root))
		decoded, err := Decode(&buf)
		require.NoError(t, err)
		assert.True(t, Equal(root, decoded))
	}
}

func TestCodecUnicodeTokens(t *testing.T) {
	root := Build([]Entity{ent("1", "1", "Cnidaria Hydrozoa"), ent("2", "1", "Müller, 1776"), ent("3", "1", "")})
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, root))
	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, Equal(root, decoded))
}

func TestDecodeTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Build(sample())))
	data := buf.Bytes()

	for _, n := range []int{0, 1, len(data) / 2, len(data) - 1} {
		_, err := Decode(bytes.NewReader(data[:n]))
		require.Error(t, err, "truncated at %d", n)
		assert.True(t, errors.Is(err, internalerr.ErrInvalidIndex), "truncated at %d: %v", n, err)
	}
}

func TestDecodeRejectsHugeCount(t *testing.T) {
	data := []byte{0xff, 0xff, 0xff, 0xff, 0x0f}
	_, err := Decode(bytes.NewReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrInvalidIndex)
}

func TestFprint(t *testing.T) {
	root := Build(sample())
	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, root, 0))

	want := strings.Join([]string{
		"Balaenoptera [3]",
		"    musculus [4]",
		"    physalus [5]",
		"Blue",
		"    Whale [1 6]",
		"Whale [2]",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestFprintFrom(t *testing.T) {
	root := Build(sample())
	var buf bytes.Buffer
	require.NoError(t, FprintFrom(&buf, root, "Balaenoptera"))
	assert.Equal(t, "Balaenoptera [3]\n    musculus [4]\n    physalus [5]\n", buf.String())

	assert.Error(t, FprintFrom(&buf, root, "Orca"))
}

func BenchmarkBuild(b *testing.B) {
	var entities []Entity
	for i := 0; i < 1000; i++ {
		entities = append(entities, Entity{
			ID:     "id",
			Rank:   "220",
			Tokens: []string{"Genus" + string(rune('A'+i%26)), "species" + string(rune('a'+i%17))},
		})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Build(entities)
	}
}
