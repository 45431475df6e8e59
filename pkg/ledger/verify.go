package ledger

import (
	"errors"

	"github.com/n3node/core/pkg/crypto"
	"github.com/n3node/core/pkg/hashing"
)

// VerifyResult classifies the outcome of offering a block or transaction
// to the pipeline (§4.3.2/§4.3.3, §7).
type VerifyResult int

const (
	VerifySucceed VerifyResult = iota
	VerifyAlreadyExists
	VerifyAlreadyInPool
	VerifyUnableToVerify
	VerifyInvalid
	VerifyHasConflicts
	VerifyExpired
	VerifyOutOfGas
)

func (r VerifyResult) String() string {
	switch r {
	case VerifySucceed:
		return "Succeed"
	case VerifyAlreadyExists:
		return "AlreadyExists"
	case VerifyAlreadyInPool:
		return "AlreadyInPool"
	case VerifyUnableToVerify:
		return "UnableToVerify"
	case VerifyInvalid:
		return "Invalid"
	case VerifyHasConflicts:
		return "HasConflicts"
	case VerifyExpired:
		return "Expired"
	case VerifyOutOfGas:
		return "OutOfGas"
	default:
		return "Unknown"
	}
}

var errNotSingleSig = errors.New("ledger: not a single-signature verification script")
var errNotMultiSig = errors.New("ledger: not a multi-signature verification script")

// verifyWitness checks that the verification script's Hash160 matches the
// expected account, then checks the invocation script's signature(s)
// against it over digest. Both the single-signature account form and the
// multi-signature (m-of-n) committee form are supported, since
// next_consensus is canonically a committee multi-sig address (§4.3.5) —
// a real post-genesis block's witness is never single-sig.
func verifyWitness(w Witness, expected hashing.Hash160, digest []byte) error {
	if hashing.Hash160Of(w.VerificationScript) != expected {
		return errors.New("ledger: verification script does not match account")
	}
	if pub, sig, err := parseSingleSigScript(w.VerificationScript, w.InvocationScript); err == nil {
		if !crypto.Verify(pub, digest, sig) {
			return errors.New("ledger: signature verification failed")
		}
		return nil
	}
	m, pubkeys, err := parseMultiSigScript(w.VerificationScript)
	if err != nil {
		return err
	}
	sigs, err := parseMultiSigInvocation(w.InvocationScript)
	if err != nil {
		return err
	}
	if !checkMultisig(pubkeys, m, sigs, digest) {
		return errors.New("ledger: multi-signature verification failed")
	}
	return nil
}

// parseSingleSigScript extracts the compressed public key from a
// PUSHDATA1(33) ... SYSCALL CheckSig verification script and the 64-byte
// signature from a PUSHDATA1(64) invocation script — the standard
// single-signature account form.
func parseSingleSigScript(verification, invocation []byte) (*crypto.PublicKey, []byte, error) {
	if len(verification) < 35 || verification[0] != 0x0C || verification[1] != 33 {
		return nil, nil, errNotSingleSig
	}
	pubBytes := verification[2:35]
	pub, err := crypto.PublicKeyFromCompressed(pubBytes)
	if err != nil {
		return nil, nil, err
	}
	if len(invocation) < 66 || invocation[0] != 0x0C || invocation[1] != 64 {
		return nil, nil, errNotSingleSig
	}
	return pub, invocation[2:66], nil
}

// readPushInt decodes the small-integer encoding the PUSH* opcodes use
// (PUSH0..PUSH16 as a single byte, PUSHM1 as -1, PUSHINT8/16/32 as a
// following little-endian payload), returning the value and the offset
// just past it.
func readPushInt(script []byte, pos int) (int, int, bool) {
	if pos >= len(script) {
		return 0, pos, false
	}
	switch script[pos] {
	case 0x0F: // PUSHM1
		return -1, pos + 1, true
	case 0x00: // PUSHINT8
		if pos+2 > len(script) {
			return 0, pos, false
		}
		return int(int8(script[pos+1])), pos + 2, true
	case 0x01: // PUSHINT16
		if pos+3 > len(script) {
			return 0, pos, false
		}
		v := int16(uint16(script[pos+1]) | uint16(script[pos+2])<<8)
		return int(v), pos + 3, true
	case 0x02: // PUSHINT32
		if pos+5 > len(script) {
			return 0, pos, false
		}
		v := int32(uint32(script[pos+1]) | uint32(script[pos+2])<<8 | uint32(script[pos+3])<<16 | uint32(script[pos+4])<<24)
		return int(v), pos + 5, true
	default:
		if script[pos] >= 0x10 && script[pos] <= 0x20 { // PUSH0..PUSH16
			return int(script[pos]) - 0x10, pos + 1, true
		}
	}
	return 0, pos, false
}

// parseMultiSigScript parses the canonical Neo m-of-n verification script
// shape: PUSH(m), n PUSHDATA1(33)-framed compressed public keys, PUSH(n),
// SYSCALL <CheckMultisig>.
func parseMultiSigScript(script []byte) (int, [][]byte, error) {
	m, pos, ok := readPushInt(script, 0)
	if !ok || m <= 0 {
		return 0, nil, errNotMultiSig
	}
	var pubkeys [][]byte
	for pos+2 <= len(script) && script[pos] == 0x0C && script[pos+1] == 33 {
		if pos+35 > len(script) {
			return 0, nil, errNotMultiSig
		}
		pubkeys = append(pubkeys, script[pos+2:pos+35])
		pos += 35
	}
	n, pos, ok := readPushInt(script, pos)
	if !ok || n != len(pubkeys) || n < m {
		return 0, nil, errNotMultiSig
	}
	if pos >= len(script) || script[pos] != opSyscall {
		return 0, nil, errNotMultiSig
	}
	pos += 5 // SYSCALL opcode + 4-byte interop id
	if pos != len(script) {
		return 0, nil, errNotMultiSig
	}
	return m, pubkeys, nil
}

// opSyscall is pkg/vm.SYSCALL's byte value, duplicated here rather than
// imported so this pure byte-parsing check doesn't pull in a VM
// dependency for one opcode constant.
const opSyscall byte = 0x42

// parseMultiSigInvocation parses a sequence of PUSHDATA1(64)-framed
// signatures, the multi-signature invocation script form.
func parseMultiSigInvocation(script []byte) ([][]byte, error) {
	var sigs [][]byte
	pos := 0
	for pos < len(script) {
		if pos+2 > len(script) || script[pos] != 0x0C || script[pos+1] != 64 {
			return nil, errNotMultiSig
		}
		if pos+66 > len(script) {
			return nil, errNotMultiSig
		}
		sigs = append(sigs, script[pos+2:pos+66])
		pos += 66
	}
	if len(sigs) == 0 {
		return nil, errNotMultiSig
	}
	return sigs, nil
}

// checkMultisig implements Neo's greedy m-of-n check: signatures must be
// supplied in the same relative order as the public keys they verify
// against, so one pass over both lists suffices.
func checkMultisig(pubkeys [][]byte, m int, sigs [][]byte, digest []byte) bool {
	pi, si, matched := 0, 0, 0
	for si < len(sigs) && pi < len(pubkeys) {
		if len(pubkeys)-pi < m-matched {
			break
		}
		pub, err := crypto.PublicKeyFromCompressed(pubkeys[pi])
		if err == nil && crypto.Verify(pub, digest, sigs[si]) {
			si++
			matched++
		}
		pi++
	}
	return matched >= m && si == len(sigs)
}

// VerifyBlock implements §4.3.5's verification predicate against the
// chain tip (tipIndex, tipHash, nextConsensus).
func VerifyBlock(b Block, tipIndex uint32, tipHash hashing.Hash256, nextConsensus hashing.Hash160) error {
	if b.Header.Index != tipIndex+1 {
		return errors.New("ledger: block index is not current_index + 1")
	}
	if b.Header.PrevHash != tipHash {
		return errors.New("ledger: prev_hash does not match chain tip")
	}
	root, err := b.MerkleRoot()
	if err != nil {
		return err
	}
	if root != b.Header.MerkleRoot {
		return errors.New("ledger: merkle_root mismatch")
	}
	digest, err := b.Header.Hash()
	if err != nil {
		return err
	}
	if err := verifyWitness(b.Header.Witness, nextConsensus, digest.Bytes()); err != nil {
		return err
	}
	return nil
}

// VerifyTransaction implements the structural + signature checks of
// §4.3.6 step 2, against a snapshot's current height for expiry.
func VerifyTransaction(tx Transaction, currentIndex uint32) (VerifyResult, error) {
	if len(tx.Signers) == 0 {
		return VerifyInvalid, errors.New("ledger: transaction has no signers")
	}
	if tx.SystemFee < 0 || tx.NetworkFee < 0 {
		return VerifyInvalid, errors.New("ledger: negative fee")
	}
	if tx.ValidUntilBlock <= currentIndex {
		return VerifyExpired, errors.New("ledger: transaction expired")
	}
	if len(tx.Witnesses) != len(tx.Signers) {
		return VerifyInvalid, errors.New("ledger: witness count does not match signer count")
	}
	h, err := tx.Hash()
	if err != nil {
		return VerifyInvalid, err
	}
	for i, s := range tx.Signers {
		if err := verifyWitness(tx.Witnesses[i], s.Account, h.Bytes()); err != nil {
			return VerifyInvalid, err
		}
	}
	return VerifySucceed, nil
}

// FeePerByte computes a transaction's mempool priority key.
func FeePerByte(tx Transaction, size int) int64 {
	if size <= 0 {
		return 0
	}
	return tx.NetworkFee / int64(size)
}
