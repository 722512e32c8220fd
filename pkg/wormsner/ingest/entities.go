package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

// Column layout of the taxon export.
const (
	colID   = 0
	colRank = 1
	colName = 2
)

// ReadEntities reads tab-separated rows of id, rank and name. The name is
// split on whitespace into the entity's tokens; further columns are ignored.
// A row with fewer than three columns fails the whole read.
func ReadEntities(r io.Reader) ([]trie.Entity, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var entities []trie.Entity
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", internalerr.ErrMalformedRow, err)
		}
		if len(record) <= colName {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, want at least 3",
				internalerr.ErrMalformedRow, line, len(record))
		}
		entities = append(entities, trie.Entity{
			ID:     record[colID],
			Rank:   record[colRank],
			Tokens: splitFields(record[colName]),
		})
	}
	return entities, nil
}

// LoadEntities reads entities from the file at path.
func LoadEntities(path string) ([]trie.Entity, error) {
	slog.Info("reading entities", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entities %s: %w", path, err)
	}
	defer f.Close()

	entities, err := ReadEntities(f)
	if err != nil {
		return nil, fmt.Errorf("read entities %s: %w", path, err)
	}

	slog.Info("entities read", "count", len(entities))
	return entities, nil
}
