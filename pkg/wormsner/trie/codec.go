package trie

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
)

// Upper bounds accepted while decoding, to reject corrupt input before
// allocating.
const (
	maxStringLen = 1 << 20
	maxCount     = 1 << 28
)

// Encode writes n and its subtree in the structural format:
//
//	node   := uvarint(#entries) { string id, string rank }* uvarint(#children) { string token, node }*
//	string := uvarint(len) bytes
//
// Children are written in ascending token order so equal tries encode to
// equal bytes.
func Encode(w io.Writer, n *Node) error {
	bw := bufio.NewWriter(w)
	enc := encoder{w: bw}
	enc.node(n)
	if enc.err != nil {
		return enc.err
	}
	return bw.Flush()
}

type encoder struct {
	w   *bufio.Writer
	buf [binary.MaxVarintLen64]byte
	err error
}

func (e *encoder) node(n *Node) {
	e.uvarint(uint64(len(n.ids)))
	for i := range n.ids {
		e.string(n.ids[i])
		e.string(n.ranks[i])
	}
	tokens := n.Tokens()
	e.uvarint(uint64(len(tokens)))
	for _, tok := range tokens {
		e.string(tok)
		e.node(n.children[tok])
		if e.err != nil {
			return
		}
	}
}

func (e *encoder) uvarint(v uint64) {
	if e.err != nil {
		return
	}
	k := binary.PutUvarint(e.buf[:], v)
	_, e.err = e.w.Write(e.buf[:k])
}

func (e *encoder) string(s string) {
	e.uvarint(uint64(len(s)))
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}

// Decode reads a trie written by Encode.
func Decode(r io.Reader) (*Node, error) {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	d := decoder{r: br}
	return d.node()
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

type decoder struct {
	r byteReader
}

func (d *decoder) node() (*Node, error) {
	n := New()
	entries, err := d.count(maxCount)
	if err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}
	if entries > 0 {
		n.ids = make([]string, 0, min(entries, 16))
		n.ranks = make([]string, 0, min(entries, 16))
	}
	for i := 0; i < entries; i++ {
		id, err := d.string()
		if err != nil {
			return nil, fmt.Errorf("reading id: %w", err)
		}
		rank, err := d.string()
		if err != nil {
			return nil, fmt.Errorf("reading rank: %w", err)
		}
		n.Append(id, rank)
	}
	children, err := d.count(maxCount)
	if err != nil {
		return nil, fmt.Errorf("reading child count: %w", err)
	}
	for i := 0; i < children; i++ {
		tok, err := d.string()
		if err != nil {
			return nil, fmt.Errorf("reading token: %w", err)
		}
		if _, dup := n.children[tok]; dup {
			return nil, fmt.Errorf("%w: duplicate edge %q", internalerr.ErrInvalidIndex, tok)
		}
		child, err := d.node()
		if err != nil {
			return nil, err
		}
		n.children[tok] = child
	}
	return n, nil
}

func (d *decoder) count(limit uint64) (int, error) {
	v, err := binary.ReadUvarint(d.r)
	if err != nil {
		return 0, unexpected(err)
	}
	if v > limit {
		return 0, fmt.Errorf("%w: count %d out of range", internalerr.ErrInvalidIndex, v)
	}
	return int(v), nil
}

func (d *decoder) string() (string, error) {
	size, err := d.count(maxStringLen)
	if err != nil {
		return "", err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", unexpected(err)
	}
	return string(buf), nil
}

func unexpected(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %w", internalerr.ErrInvalidIndex, err)
}
