// Package ledger implements the block/transaction data model, the mempool,
// and the persistence pipeline that ties the state store, the MPT, and the
// native contracts together (§3.3, §3.4, §4.3).
package ledger

import (
	"github.com/n3node/core/pkg/hashing"
)

// WitnessScope bits control which contracts/groups a Signer's witness
// covers (§6.1).
type WitnessScope uint8

const (
	ScopeNone            WitnessScope = 0x00
	ScopeCalledByEntry   WitnessScope = 0x01
	ScopeCustomContracts WitnessScope = 0x10
	ScopeCustomGroups    WitnessScope = 0x20
	ScopeWitnessRules    WitnessScope = 0x40
	ScopeGlobal          WitnessScope = 0x80
)

// Signer is one entry of a transaction's signer list; the first signer is
// the fee-payer (§3.3).
type Signer struct {
	Account          hashing.Hash160
	Scope            WitnessScope
	AllowedContracts []hashing.Hash160
	AllowedGroups    [][]byte // compressed public keys
}

// Witness pairs an invocation script (pushes signature(s)) with the
// verification script whose Hash160 must equal the signer's account.
type Witness struct {
	InvocationScript   []byte
	VerificationScript []byte
}

// AttributeType identifies a transaction attribute's shape.
type AttributeType uint8

const (
	AttrHighPriority   AttributeType = 0x01
	AttrOracleResponse AttributeType = 0x11
	AttrNotValidBefore AttributeType = 0x20
	AttrConflicts      AttributeType = 0x21
	AttrNotaryAssisted AttributeType = 0x22
)

// Attribute is a typed transaction extension; Data's shape depends on
// Type (e.g. Conflicts carries a 32-byte transaction hash).
type Attribute struct {
	Type AttributeType
	Data []byte
}

// Transaction is the unsigned-plus-witnesses wire record of §3.3/§6.1.
type Transaction struct {
	Version         uint8
	Nonce           uint32
	SystemFee       int64
	NetworkFee      int64
	ValidUntilBlock uint32
	Signers         []Signer
	Attributes      []Attribute
	Script          []byte
	Witnesses       []Witness
}

// Header is a block's fixed-size envelope (§3.3/§6.1).
type Header struct {
	Version       uint32
	PrevHash      hashing.Hash256
	MerkleRoot    hashing.Hash256
	TimestampMS   uint64
	Nonce         uint64
	Index         uint32
	PrimaryIndex  uint8
	NextConsensus hashing.Hash160
	Witness       Witness
}

// Block is a Header plus its ordered transaction list.
type Block struct {
	Header       Header
	Transactions []Transaction
}

// ConflictsWith reports whether a attribute of type Conflicts names h.
func (a Attribute) ConflictsWith(h hashing.Hash256) bool {
	if a.Type != AttrConflicts || len(a.Data) != hashing.Hash256Size {
		return false
	}
	var d hashing.Hash256
	copy(d[:], a.Data)
	return d == h
}
