// Package file stores a trie in a single binary file.
//
// Layout (little-endian):
//
//	[0:4]   magic "WTRI"
//	[4:8]   format version
//	[8]     compression
//	[9:12]  reserved
//	[12:16] crc32 (IEEE) of the uncompressed payload
//	[16:24] uncompressed payload length
//	[24:]   payload, the trie.Encode output after compression
//
// Files are written to a temporary path and renamed into place.
package file

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

const (
	MagicBytes    uint32 = 0x57544952
	FormatVersion uint32 = 1
	HeaderSize    int    = 24
)

// Store persists a trie at a file path.
type Store struct {
	path        string
	compression Compression
}

// New creates a store for path. compression applies to saves only; loads
// read it from the file header.
func New(path string, compression Compression) *Store {
	return &Store{path: path, compression: compression}
}

// Path returns the file path.
func (s *Store) Path() string { return s.path }

// Close implements store.IndexStore.
func (s *Store) Close() error { return nil }

// SaveTrie encodes root and atomically replaces the file.
func (s *Store) SaveTrie(ctx context.Context, root *trie.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var raw bytes.Buffer
	if err := trie.Encode(&raw, root); err != nil {
		return fmt.Errorf("encoding trie: %w", err)
	}
	payload, applied, err := compress(raw.Bytes(), s.compression)
	if err != nil {
		return err
	}

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	header[8] = byte(applied)
	binary.LittleEndian.PutUint32(header[12:16], crc32.ChecksumIEEE(raw.Bytes()))
	binary.LittleEndian.PutUint64(header[16:24], uint64(raw.Len()))

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}

	slog.Info("index written",
		"path", s.path,
		"compression", applied.String(),
		"raw", humanize.Bytes(uint64(raw.Len())),
		"size", humanize.Bytes(uint64(HeaderSize+len(payload))))
	return nil
}

// LoadTrie reads and verifies the file and decodes the trie.
func (s *Store) LoadTrie(ctx context.Context) (*trie.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}
	root, err := decodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("loading index %s: %w", s.path, err)
	}
	return root, nil
}

func decodeFile(data []byte) (*trie.Node, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: file too small for header", internalerr.ErrInvalidIndex)
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %x", internalerr.ErrInvalidIndex, magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", internalerr.ErrUnsupportedVersion, version)
	}
	compression := Compression(data[8])
	checksum := binary.LittleEndian.Uint32(data[12:16])
	rawLen := binary.LittleEndian.Uint64(data[16:24])
	if rawLen > 1<<40 {
		return nil, fmt.Errorf("%w: payload length %d", internalerr.ErrInvalidIndex, rawLen)
	}

	raw, err := decompress(data[HeaderSize:], compression, int(rawLen))
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) != rawLen {
		return nil, fmt.Errorf("%w: payload length %d, header says %d", internalerr.ErrInvalidIndex, len(raw), rawLen)
	}
	if crc32.ChecksumIEEE(raw) != checksum {
		return nil, internalerr.ErrChecksumMismatch
	}
	return trie.Decode(bytes.NewReader(raw))
}
