// Package hashing provides the node's primitive identifiers (Hash160,
// Hash256, Fixed8) and the hash/digest/encoding functions used throughout
// the node: SHA-256, RIPEMD-160, the Hash160/Hash256 compositions, Murmur32
// and Base58/Base58Check.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spaolacci/murmur3"
	"golang.org/x/crypto/ripemd160" //lint:ignore SA1019 matches Neo N3's account hash derivation
)

// Hash160Size and Hash256Size are the byte widths of the node's two
// account/entity identifiers.
const (
	Hash160Size = 20
	Hash256Size = 32
)

// Hash160 is a 20-byte identifier, little-endian when serialized, used for
// account and contract addresses.
type Hash160 [Hash160Size]byte

// Hash256 is a 32-byte identifier used for block and transaction hashes.
type Hash256 [Hash256Size]byte

var (
	// Hash160Zero and Hash256Zero are the all-zero identifiers, used as
	// sentinel values (e.g. an unset "account" field).
	Hash160Zero Hash160
	Hash256Zero Hash256
)

// BytesToHash160 copies b (which must be exactly Hash160Size bytes) into a
// new Hash160.
func BytesToHash160(b []byte) (Hash160, error) {
	var h Hash160
	if len(b) != Hash160Size {
		return h, fmt.Errorf("hashing: hash160 needs %d bytes, got %d", Hash160Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// BytesToHash256 copies b (which must be exactly Hash256Size bytes) into a
// new Hash256.
func BytesToHash256(b []byte) (Hash256, error) {
	var h Hash256
	if len(b) != Hash256Size {
		return h, fmt.Errorf("hashing: hash256 needs %d bytes, got %d", Hash256Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Bytes returns a copy of the underlying bytes in their natural
// (big-endian-looking, little-endian-serialized) order.
func (h Hash160) Bytes() []byte { b := make([]byte, Hash160Size); copy(b, h[:]); return b }
func (h Hash256) Bytes() []byte { b := make([]byte, Hash256Size); copy(b, h[:]); return b }

// String renders the identifier as a reversed (big-endian display, matching
// Neo's convention of showing hashes most-significant-byte-first even though
// the wire encoding is little-endian) hex string prefixed with "0x".
func (h Hash160) String() string { return "0x" + hex.EncodeToString(reversed(h[:])) }
func (h Hash256) String() string { return "0x" + hex.EncodeToString(reversed(h[:])) }

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// Less orders two Hash160 values lexicographically over their stored bytes,
// as required for deterministic iteration (e.g. sorted committee lists).
func (h Hash160) Less(o Hash160) bool { return bytes.Compare(h[:], o[:]) < 0 }
func (h Hash256) Less(o Hash256) bool { return bytes.Compare(h[:], o[:]) < 0 }

// IsZero reports whether h is the all-zero identifier.
func (h Hash160) IsZero() bool { return h == Hash160Zero }
func (h Hash256) IsZero() bool { return h == Hash256Zero }

// Fixed8 is a signed 64-bit fixed-point number scaled by 10^8, used for
// token amounts (GAS balances, fees).
type Fixed8 int64

// Fixed8Decimals is the number of fractional decimal digits Fixed8 encodes.
const Fixed8Decimals = 8

// Fixed8FromInt64 builds a Fixed8 from a whole-unit integer amount.
func Fixed8FromInt64(whole int64) Fixed8 { return Fixed8(whole * 100_000_000) }

// Float64 returns an approximate floating point representation; callers
// needing exactness should work with the raw int64 instead.
func (f Fixed8) Float64() float64 { return float64(f) / 100_000_000 }

func (f Fixed8) String() string {
	neg := f < 0
	v := int64(f)
	if neg {
		v = -v
	}
	whole := v / 100_000_000
	frac := v % 100_000_000
	s := fmt.Sprintf("%d.%08d", whole, frac)
	if neg {
		s = "-" + s
	}
	return s
}

// SHA256 computes a single SHA-256 digest.
func SHA256(b []byte) [32]byte { return sha256.Sum256(b) }

// RIPEMD160 computes a single RIPEMD-160 digest.
func RIPEMD160(b []byte) []byte {
	h := ripemd160.New()
	h.Write(b)
	return h.Sum(nil)
}

// Hash160Of returns RIPEMD160(SHA256(b)), Neo's account/script hash
// derivation, as a Hash160.
func Hash160Of(b []byte) Hash160 {
	s := SHA256(b)
	r := RIPEMD160(s[:])
	var out Hash160
	copy(out[:], r)
	return out
}

// Hash256Of returns SHA256(SHA256(b)), Neo's block/transaction hash
// derivation, as a Hash256.
func Hash256Of(b []byte) Hash256 {
	first := SHA256(b)
	second := sha256.Sum256(first[:])
	return Hash256(second)
}

// Murmur32 computes a 32-bit Murmur3 hash with the given seed, exposed to
// contracts through CryptoLib's murmur32 method.
func Murmur32(b []byte, seed uint32) uint32 {
	return murmur3.Sum32WithSeed(b, seed)
}

// MerkleRoot computes the Merkle root of a list of leaf hashes using
// pairwise Hash256 with odd-leaf duplication at every level (Testable
// Property 3). An empty list yields the zero hash.
func MerkleRoot(leaves []Hash256) Hash256 {
	if len(leaves) == 0 {
		return Hash256Zero
	}
	level := make([]Hash256, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash256, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			buf := make([]byte, 0, 64)
			buf = append(buf, level[i][:]...)
			buf = append(buf, level[i+1][:]...)
			next[i/2] = Hash256Of(buf)
		}
		level = next
	}
	return level[0]
}

// MerkleProof returns the sibling-hash path (ordered leaf-to-root) for the
// leaf at index, along with the tree's root.
func MerkleProof(leaves []Hash256, index int) ([]Hash256, Hash256, error) {
	if len(leaves) == 0 {
		return nil, Hash256Zero, errors.New("hashing: no leaves")
	}
	if index < 0 || index >= len(leaves) {
		return nil, Hash256Zero, errors.New("hashing: index out of range")
	}
	level := make([]Hash256, len(leaves))
	copy(level, leaves)
	var proof []Hash256
	idx := index
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		if idx%2 == 0 {
			proof = append(proof, level[idx+1])
		} else {
			proof = append(proof, level[idx-1])
		}
		next := make([]Hash256, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			buf := make([]byte, 0, 64)
			buf = append(buf, level[i][:]...)
			buf = append(buf, level[i+1][:]...)
			next[i/2] = Hash256Of(buf)
		}
		level = next
		idx /= 2
	}
	return proof, level[0], nil
}

// VerifyMerkleProof reconstructs the root from leaf, proof and index and
// compares it against root.
func VerifyMerkleProof(root, leaf Hash256, proof []Hash256, index int) bool {
	h := leaf
	for _, sib := range proof {
		buf := make([]byte, 0, 64)
		if index%2 == 0 {
			buf = append(buf, h[:]...)
			buf = append(buf, sib[:]...)
		} else {
			buf = append(buf, sib[:]...)
			buf = append(buf, h[:]...)
		}
		h = Hash256Of(buf)
		index /= 2
	}
	return h == root
}

// Base58Encode / Base58Decode wrap github.com/mr-tron/base58, the library
// the node's indirect libp2p dependency graph already pulls in.
func Base58Encode(b []byte) string        { return base58.Encode(b) }
func Base58Decode(s string) ([]byte, error) { return base58.Decode(s) }

// Base58CheckEncode appends a 4-byte double-SHA-256 checksum to payload and
// Base58-encodes the result, per §6.5 (WIF / NEP-2 share this envelope).
func Base58CheckEncode(payload []byte) string {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	full := append(append([]byte{}, payload...), second[:4]...)
	return Base58Encode(full)
}

// Base58CheckDecode reverses Base58CheckEncode, verifying the checksum.
func Base58CheckDecode(s string) ([]byte, error) {
	full, err := Base58Decode(s)
	if err != nil {
		return nil, err
	}
	if len(full) < 4 {
		return nil, errors.New("hashing: base58check payload too short")
	}
	payload := full[:len(full)-4]
	checksum := full[len(full)-4:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(checksum, second[:4]) {
		return nil, errors.New("hashing: base58check checksum mismatch")
	}
	return payload, nil
}

// LEUint32 / LEUint64 are small helpers used by callers that need to hash
// fixed-width little-endian integer fields without round-tripping through
// the wire codec.
func LEUint32(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }
func LEUint64(v uint64) []byte { b := make([]byte, 8); binary.LittleEndian.PutUint64(b, v); return b }
