package ledger

import (
	"bytes"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/wire"
)

// encodeSigner writes account || scope || scope-gated optional lists,
// exactly the layout of §6.1.
func encodeSigner(w *wire.BinWriter, s Signer) {
	w.WriteBytes(s.Account.Bytes())
	w.WriteU8(uint8(s.Scope))
	if s.Scope&ScopeCustomContracts != 0 {
		w.WriteVarint(uint64(len(s.AllowedContracts)))
		for _, c := range s.AllowedContracts {
			w.WriteBytes(c.Bytes())
		}
	}
	if s.Scope&ScopeCustomGroups != 0 {
		w.WriteVarint(uint64(len(s.AllowedGroups)))
		for _, g := range s.AllowedGroups {
			w.WriteVarBytes(g)
		}
	}
}

func encodeAttribute(w *wire.BinWriter, a Attribute) {
	w.WriteU8(uint8(a.Type))
	w.WriteVarBytes(a.Data)
}

func encodeWitness(w *wire.BinWriter, wit Witness) {
	w.WriteVarBytes(wit.InvocationScript)
	w.WriteVarBytes(wit.VerificationScript)
}

// encodeUnsignedTx writes the transaction's unsigned form — everything
// the transaction hash commits to, per §6.1 ("Transaction hash = Hash256
// of the unsigned form").
func encodeUnsignedTx(w *wire.BinWriter, tx Transaction) {
	w.WriteU8(tx.Version)
	w.WriteU32(tx.Nonce)
	w.WriteI64(tx.SystemFee)
	w.WriteI64(tx.NetworkFee)
	w.WriteU32(tx.ValidUntilBlock)
	w.WriteVarint(uint64(len(tx.Signers)))
	for _, s := range tx.Signers {
		encodeSigner(w, s)
	}
	w.WriteVarint(uint64(len(tx.Attributes)))
	for _, a := range tx.Attributes {
		encodeAttribute(w, a)
	}
	w.WriteVarBytes(tx.Script)
}

// EncodeSigned appends the witness list to the unsigned form, the
// transaction's full on-wire representation.
func EncodeSigned(tx Transaction) ([]byte, error) {
	return wire.ToBytes(func(w *wire.BinWriter) {
		encodeUnsignedTx(w, tx)
		w.WriteVarint(uint64(len(tx.Witnesses)))
		for _, wit := range tx.Witnesses {
			encodeWitness(w, wit)
		}
	})
}

// Hash returns the transaction hash: Hash256 of the unsigned form, stable
// across witness mutation (Testable Property 2).
func (tx Transaction) Hash() (hashing.Hash256, error) {
	raw, err := wire.ToBytes(func(w *wire.BinWriter) { encodeUnsignedTx(w, tx) })
	if err != nil {
		return hashing.Hash256{}, err
	}
	return hashing.Hash256Of(raw), nil
}

// encodeHeaderSansWitness writes everything the block hash commits to.
func encodeHeaderSansWitness(w *wire.BinWriter, h Header) {
	w.WriteU32(h.Version)
	w.WriteBytes(h.PrevHash.Bytes())
	w.WriteBytes(h.MerkleRoot.Bytes())
	w.WriteU64(h.TimestampMS)
	w.WriteU64(h.Nonce)
	w.WriteU32(h.Index)
	w.WriteU8(h.PrimaryIndex)
	w.WriteBytes(h.NextConsensus.Bytes())
}

// Hash returns the block hash: Hash256 of the header excluding its
// witness.
func (h Header) Hash() (hashing.Hash256, error) {
	raw, err := wire.ToBytes(func(w *wire.BinWriter) { encodeHeaderSansWitness(w, h) })
	if err != nil {
		return hashing.Hash256{}, err
	}
	return hashing.Hash256Of(raw), nil
}

// EncodeBlock writes the full header (with witness) plus the transaction
// list, the block's on-wire representation.
func EncodeBlock(b Block) ([]byte, error) {
	return wire.ToBytes(func(w *wire.BinWriter) {
		encodeHeaderSansWitness(w, b.Header)
		w.WriteU8(0x01)
		encodeWitness(w, b.Header.Witness)
		w.WriteVarint(uint64(len(b.Transactions)))
		for _, tx := range b.Transactions {
			txBytes, _ := EncodeSigned(tx)
			w.WriteBytes(txBytes)
		}
	})
}

// MerkleRoot computes the Merkle root of a block's transaction hashes
// (Testable Property 3).
func (b Block) MerkleRoot() (hashing.Hash256, error) {
	leaves := make([]hashing.Hash256, len(b.Transactions))
	for i, tx := range b.Transactions {
		h, err := tx.Hash()
		if err != nil {
			return hashing.Hash256{}, err
		}
		leaves[i] = h
	}
	if len(leaves) == 0 {
		return hashing.Hash256{}, nil
	}
	return hashing.MerkleRoot(leaves), nil
}

// unsignedBytesEqual reports whether two encoded forms are byte-identical.
// Nothing in this package calls it.
func unsignedBytesEqual(a, b []byte) bool { return bytes.Equal(a, b) }
