// Package mpt implements the node's Merkle Patricia Trie (§3.5/§4.2.3):
// the content-addressed structure whose root hash is the state
// commitment persisted with every block.
package mpt

import (
	"errors"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/wire"
)

// ErrNodeNotFound is returned when a HashRef cannot be resolved from the
// backing node table.
var ErrNodeNotFound = errors.New("mpt: node not found")

// kind tags the on-disk node encoding (§3.5).
type kind byte

const (
	kindBranch kind = iota
	kindExtension
	kindLeaf
	kindHashRef
)

// node is the in-memory representation of one trie node. Only one of
// the type-specific fields is meaningful per kind.
type node struct {
	k kind

	// Branch: 16 nibble children + 1 terminal value slot.
	children [16]*node
	value    []byte // Branch terminal (slot 16) or Leaf value

	// Extension: shared nibble path plus a single child.
	path  []byte // nibbles, one per byte, each 0-15
	child *node

	// HashRef: lazily resolved pointer by content hash.
	hash *hashing.Hash256

	// cache of this node's own content hash, invalidated on mutation.
	selfHash *hashing.Hash256
}

func newBranch() *node  { return &node{k: kindBranch} }
func newLeaf(v []byte) *node {
	cpy := append([]byte(nil), v...)
	return &node{k: kindLeaf, value: cpy}
}
func newExtension(path []byte, child *node) *node {
	return &node{k: kindExtension, path: append([]byte(nil), path...), child: child}
}
func newHashRef(h hashing.Hash256) *node {
	hh := h
	return &node{k: kindHashRef, hash: &hh}
}

func (n *node) invalidate() { n.selfHash = nil }

// toNibbles converts a byte key into its nibble sequence, high nibble
// first per §3.5.
func toNibbles(key []byte) []byte {
	out := make([]byte, 0, len(key)*2)
	for _, b := range key {
		out = append(out, b>>4, b&0x0F)
	}
	return out
}

func fromNibbles(nibbles []byte) []byte {
	if len(nibbles)%2 != 0 {
		panic("mpt: odd nibble count cannot convert back to bytes")
	}
	out := make([]byte, len(nibbles)/2)
	for i := 0; i < len(out); i++ {
		out[i] = nibbles[2*i]<<4 | nibbles[2*i+1]
	}
	return out
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// encode produces the compact serialization whose Hash256 is the node's
// content address (§3.5). HashRef nodes are never encoded directly —
// they stand in for a not-yet-resolved child and must be resolved first.
func (n *node) encode() ([]byte, error) {
	return wire.ToBytes(func(w *wire.BinWriter) {
		w.WriteByte(byte(n.k))
		switch n.k {
		case kindBranch:
			for _, c := range n.children {
				if c == nil {
					w.WriteBool(false)
					continue
				}
				w.WriteBool(true)
				h := c.hashOf()
				w.WriteBytes(h[:])
			}
			w.WriteVarBytes(n.value)
		case kindExtension:
			w.WriteVarBytes(n.path)
			h := n.child.hashOf()
			w.WriteBytes(h[:])
		case kindLeaf:
			w.WriteVarBytes(n.value)
		case kindHashRef:
			w.WriteBytes(n.hash[:])
		}
	})
}

// hashOf returns the node's content hash, computing and caching it if
// necessary. HashRef nodes simply return their referenced hash.
func (n *node) hashOf() hashing.Hash256 {
	if n.k == kindHashRef {
		return *n.hash
	}
	if n.selfHash != nil {
		return *n.selfHash
	}
	enc, err := n.encode()
	if err != nil {
		panic(err) // encode only fails on an io error, impossible against a bytes.Buffer
	}
	h := hashing.Hash256Of(enc)
	n.selfHash = &h
	return h
}
