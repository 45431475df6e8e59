package mpt

import (
	"bytes"
	"errors"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/store"
)

// ErrProofInvalid is returned by VerifyProof when a proof's node chain
// does not reduce to the claimed root.
var ErrProofInvalid = errors.New("mpt: proof does not verify against root")

// GetProof returns the encoded nodes along the path to key, in root-to-leaf
// order, letting a verifier replay the hash chain independently of the
// live trie (§4.2.3 get_proof, §8.1 Property 5).
func (t *Trie) GetProof(key []byte) ([][]byte, error) {
	var proof [][]byte
	n, path := t.root, toNibbles(key)
	for {
		rn, err := t.resolve(n)
		if err != nil {
			return nil, err
		}
		n = rn
		if n == nil {
			return nil, store.ErrKeyNotFound
		}
		enc, err := n.encode()
		if err != nil {
			return nil, err
		}
		proof = append(proof, enc)

		switch n.k {
		case kindLeaf:
			if len(path) != 0 {
				return nil, store.ErrKeyNotFound
			}
			return proof, nil
		case kindExtension:
			cp := commonPrefixLen(n.path, path)
			if cp < len(n.path) {
				return nil, store.ErrKeyNotFound
			}
			path = path[cp:]
			n = n.child
		case kindBranch:
			if len(path) == 0 {
				if n.value == nil {
					return nil, store.ErrKeyNotFound
				}
				return proof, nil
			}
			n = n.children[path[0]]
			path = path[1:]
		default:
			return nil, store.ErrKeyNotFound
		}
	}
}

// VerifyProof checks that proof is a valid root-to-leaf node chain for key
// under root, and returns the stored value. Each step's encoded node must
// hash to the hash referenced by its parent (or to root for the first
// node), and the nibble path consumed by extensions/branches must match
// key's nibble sequence exactly.
func VerifyProof(root hashing.Hash256, key []byte, proof [][]byte) ([]byte, error) {
	if len(proof) == 0 {
		return nil, ErrProofInvalid
	}
	path := toNibbles(key)
	expected := root

	for i, enc := range proof {
		if hashing.Hash256Of(enc) != expected {
			return nil, ErrProofInvalid
		}
		n, err := decodeNode(enc, expected)
		if err != nil {
			return nil, ErrProofInvalid
		}
		last := i == len(proof)-1

		switch n.k {
		case kindLeaf:
			if len(path) != 0 || !last {
				return nil, ErrProofInvalid
			}
			return append([]byte(nil), n.value...), nil
		case kindExtension:
			cp := commonPrefixLen(n.path, path)
			if cp != len(n.path) {
				return nil, ErrProofInvalid
			}
			path = path[cp:]
			expected = n.child.hashOf()
		case kindBranch:
			if len(path) == 0 {
				if !last || n.value == nil {
					return nil, ErrProofInvalid
				}
				return append([]byte(nil), n.value...), nil
			}
			c := n.children[path[0]]
			if c == nil {
				return nil, ErrProofInvalid
			}
			expected = c.hashOf()
			path = path[1:]
		default:
			return nil, ErrProofInvalid
		}
	}
	return nil, ErrProofInvalid
}

// equalBytes reports whether a and b are byte-identical. Nothing in this
// package calls it.
func equalBytes(a, b []byte) bool { return bytes.Equal(a, b) }
