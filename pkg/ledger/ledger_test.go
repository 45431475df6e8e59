package ledger

import (
	"testing"
	"time"

	"github.com/n3node/core/pkg/crypto"
	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/store"
)

// buildSignedTx builds a single-signer, single-witness transaction signed
// by priv, whose witness verifies under the package's single-sig account
// convention (PUSHDATA1(33) pubkey verification / PUSHDATA1(64) sig
// invocation). attrs is applied before signing so the witness covers it.
func buildSignedTx(t *testing.T, priv *crypto.PrivateKey, nonce, validUntil uint32, networkFee int64, attrs []Attribute) Transaction {
	t.Helper()
	pub := priv.Public()
	verification := append([]byte{0x0C, 33}, pub.CompressedBytes()...)
	account := hashing.Hash160Of(verification)

	tx := Transaction{
		Version:         0,
		Nonce:           nonce,
		SystemFee:       0,
		NetworkFee:      networkFee,
		ValidUntilBlock: validUntil,
		Signers:         []Signer{{Account: account, Scope: ScopeCalledByEntry}},
		Attributes:      attrs,
		Script:          []byte{0x40},
	}
	h, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	sig, err := crypto.Sign(priv, h.Bytes())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	invocation := append([]byte{0x0C, 64}, sig...)
	tx.Witnesses = []Witness{{InvocationScript: invocation, VerificationScript: verification}}
	return tx
}

// signedTestTx is buildSignedTx with a freshly generated key and no
// attributes, the common case for tests that don't care about signers.
func signedTestTx(t *testing.T, nonce uint32, validUntil uint32, networkFee int64) Transaction {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return buildSignedTx(t, priv, nonce, validUntil, networkFee, nil)
}

func newTestChain(t *testing.T) *Blockchain {
	t.Helper()
	bc, err := New(Config{Store: store.NewMemStore(), MempoolCapacity: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return bc
}

// newTestChainWithConsensus builds a chain whose next_consensus account is
// a single-sig key the test controls, so blocks past genesis can carry a
// witness that actually verifies.
func newTestChainWithConsensus(t *testing.T) (*Blockchain, *crypto.PrivateKey) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	verification := append([]byte{0x0C, 33}, priv.Public().CompressedBytes()...)
	account := hashing.Hash160Of(verification)
	bc, err := New(Config{Store: store.NewMemStore(), MempoolCapacity: 8, NextConsensus: account})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return bc, priv
}

// signHeader computes h's hash and attaches a witness that verifies
// against priv's single-sig account, mutating h in place.
func signHeader(t *testing.T, priv *crypto.PrivateKey, h *Header) {
	t.Helper()
	digest, err := h.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	sig, err := crypto.Sign(priv, digest.Bytes())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	verification := append([]byte{0x0C, 33}, priv.Public().CompressedBytes()...)
	invocation := append([]byte{0x0C, 64}, sig...)
	h.Witness = Witness{InvocationScript: invocation, VerificationScript: verification}
}

func TestTransactionHashStableUnderWitnessMutation(t *testing.T) {
	tx := signedTestTx(t, 1, 1000, 100)
	h1, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	tx.Witnesses[0].InvocationScript = append([]byte{}, tx.Witnesses[0].InvocationScript...)
	tx.Witnesses[0].InvocationScript[2] ^= 0xFF
	h2, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("transaction hash changed after mutating witness: %v != %v", h1, h2)
	}
}

func TestMerkleRootSingleTransaction(t *testing.T) {
	tx := signedTestTx(t, 1, 1000, 100)
	b := Block{Transactions: []Transaction{tx}}
	root, err := b.MerkleRoot()
	if err != nil {
		t.Fatalf("MerkleRoot: %v", err)
	}
	txHash, _ := tx.Hash()
	if root != txHash {
		t.Fatalf("single-tx merkle root should equal the tx hash")
	}
}

func TestGenesisBootstrap(t *testing.T) {
	bc := newTestChain(t)
	if bc.CurrentIndex() != 0 {
		t.Fatalf("expected genesis at index 0, got %d", bc.CurrentIndex())
	}
	blockAny, ok := bc.BlockByIndex(0)
	if !ok {
		t.Fatalf("genesis block not found by index")
	}
	b := blockAny.(Block)
	if !b.Header.PrevHash.IsZero() {
		t.Fatalf("genesis prev_hash should be zero")
	}
	if bc.CurrentHash() != mustHash(t, b.Header) {
		t.Fatalf("chain tip hash does not match genesis header hash")
	}
}

func mustHash(t *testing.T, h Header) hashing.Hash256 {
	t.Helper()
	hash, err := h.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return hash
}

func TestOnNewTransactionAdmitsAndRejectsDuplicates(t *testing.T) {
	bc := newTestChain(t)
	tx := signedTestTx(t, 1, 1000, 100)

	result, err := bc.OnNewTransaction(tx)
	if result != VerifySucceed {
		t.Fatalf("expected Succeed, got %v (%v)", result, err)
	}
	if bc.Mempool().Len() != 1 {
		t.Fatalf("expected 1 mempool entry, got %d", bc.Mempool().Len())
	}

	result, _ = bc.OnNewTransaction(tx)
	if result != VerifyAlreadyInPool {
		t.Fatalf("expected AlreadyInPool on resubmit, got %v", result)
	}
}

func TestOnNewTransactionRejectsExpired(t *testing.T) {
	bc := newTestChain(t) // genesis sits at index 0
	tx := signedTestTx(t, 1, 0, 100)
	result, _ := bc.OnNewTransaction(tx)
	if result != VerifyExpired {
		t.Fatalf("expected Expired, got %v", result)
	}
}

func TestBlockPersistRemovesMempoolEntryAndAdvancesTip(t *testing.T) {
	bc, consensusKey := newTestChainWithConsensus(t)
	tx := signedTestTx(t, 1, 1000, 100)
	if result, err := bc.OnNewTransaction(tx); result != VerifySucceed {
		t.Fatalf("admit failed: %v (%v)", result, err)
	}

	txHash, _ := tx.Hash()
	genesisAny, _ := bc.BlockByIndex(0)
	genesis := genesisAny.(Block)
	genesisHash := mustHash(t, genesis.Header)

	block := Block{
		Header: Header{
			Version:     0,
			PrevHash:    genesisHash,
			Index:       1,
			TimestampMS: uint64(time.Now().UnixMilli()),
		},
		Transactions: []Transaction{tx},
	}
	root, err := block.MerkleRoot()
	if err != nil {
		t.Fatalf("MerkleRoot: %v", err)
	}
	block.Header.MerkleRoot = root
	signHeader(t, consensusKey, &block.Header)

	result, err := bc.OnNewBlock(block)
	if result != VerifySucceed {
		t.Fatalf("OnNewBlock failed: %v (%v)", result, err)
	}
	if bc.CurrentIndex() != 1 {
		t.Fatalf("expected tip at index 1, got %d", bc.CurrentIndex())
	}
	if bc.Mempool().Has(txHash) {
		t.Fatalf("persisted transaction should be removed from mempool")
	}
	if _, ok := bc.TransactionByHash(txHash); !ok {
		t.Fatalf("persisted transaction should be queryable by hash")
	}
	if height, ok := bc.TransactionHeight(txHash); !ok || height != 1 {
		t.Fatalf("expected transaction height 1, got %d (ok=%v)", height, ok)
	}
}

func TestOnNewBlockReplayIsAlreadyExists(t *testing.T) {
	bc, consensusKey := newTestChainWithConsensus(t)
	genesisAny, _ := bc.BlockByIndex(0)
	genesisHash := mustHash(t, genesisAny.(Block).Header)

	block := Block{Header: Header{PrevHash: genesisHash, Index: 1}}
	block.Header.MerkleRoot, _ = block.MerkleRoot()
	signHeader(t, consensusKey, &block.Header)

	if result, err := bc.OnNewBlock(block); result != VerifySucceed {
		t.Fatalf("first persist failed: %v (%v)", result, err)
	}
	if bc.CurrentIndex() != 1 {
		t.Fatalf("expected tip 1, got %d", bc.CurrentIndex())
	}

	result, err := bc.OnNewBlock(block)
	if result != VerifyAlreadyExists {
		t.Fatalf("expected AlreadyExists on replay, got %v (%v)", result, err)
	}
	if bc.CurrentIndex() != 1 {
		t.Fatalf("replay should not change tip, got %d", bc.CurrentIndex())
	}
}

func TestOnNewBlockParksFutureIndex(t *testing.T) {
	bc := newTestChain(t)
	genesisAny, _ := bc.BlockByIndex(0)
	genesisHash := mustHash(t, genesisAny.(Block).Header)

	block := Block{Header: Header{PrevHash: genesisHash, Index: 5}}
	root, _ := block.MerkleRoot()
	block.Header.MerkleRoot = root

	result, err := bc.OnNewBlock(block)
	if result != VerifyUnableToVerify || err != nil {
		t.Fatalf("expected UnableToVerify for out-of-order block, got %v (%v)", result, err)
	}
	if bc.CurrentIndex() != 0 {
		t.Fatalf("parked block should not advance the tip, got %d", bc.CurrentIndex())
	}
}

func TestMempoolEvictsLowestFeeWhenFull(t *testing.T) {
	mp := NewMempool(2)
	low := &MempoolEntry{Hash: hashing.Hash256{1}, FeePerByte: 1, ArrivalTime: time.Now()}
	high := &MempoolEntry{Hash: hashing.Hash256{2}, FeePerByte: 10, ArrivalTime: time.Now()}
	newcomer := &MempoolEntry{Hash: hashing.Hash256{3}, FeePerByte: 5, ArrivalTime: time.Now()}

	if r := mp.Insert(low); r != VerifySucceed {
		t.Fatalf("insert low: %v", r)
	}
	if r := mp.Insert(high); r != VerifySucceed {
		t.Fatalf("insert high: %v", r)
	}
	if r := mp.Insert(newcomer); r != VerifySucceed {
		t.Fatalf("insert newcomer should evict low: %v", r)
	}
	if mp.Has(low.Hash) {
		t.Fatalf("lowest-fee entry should have been evicted")
	}
	if !mp.Has(high.Hash) || !mp.Has(newcomer.Hash) {
		t.Fatalf("surviving entries missing")
	}
}

func TestMempoolRejectsWhenFullAndLowerFee(t *testing.T) {
	mp := NewMempool(1)
	resident := &MempoolEntry{Hash: hashing.Hash256{1}, FeePerByte: 10, ArrivalTime: time.Now()}
	cheaper := &MempoolEntry{Hash: hashing.Hash256{2}, FeePerByte: 1, ArrivalTime: time.Now()}

	if r := mp.Insert(resident); r != VerifySucceed {
		t.Fatalf("insert resident: %v", r)
	}
	if r := mp.Insert(cheaper); r != VerifyInvalid {
		t.Fatalf("expected cheaper tx to be rejected, got %v", r)
	}
}

func TestGetTransactionsForBlockOrdersByPriority(t *testing.T) {
	mp := NewMempool(10)
	a := &MempoolEntry{Hash: hashing.Hash256{1}, FeePerByte: 5, ArrivalTime: time.Now(), Tx: Transaction{Nonce: 1}}
	b := &MempoolEntry{Hash: hashing.Hash256{2}, FeePerByte: 9, ArrivalTime: time.Now(), Tx: Transaction{Nonce: 2}}
	c := &MempoolEntry{Hash: hashing.Hash256{3}, FeePerByte: 1, ArrivalTime: time.Now(), Tx: Transaction{Nonce: 3}}
	mp.Insert(a)
	mp.Insert(b)
	mp.Insert(c)

	ordered := mp.GetTransactionsForBlock(0)
	if len(ordered) != 3 || ordered[0].Nonce != 2 || ordered[2].Nonce != 3 {
		t.Fatalf("unexpected priority ordering: %+v", ordered)
	}
}

func TestConflictsAttributeEvictsLowerFeeConflictingTx(t *testing.T) {
	bc := newTestChain(t)
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	low := buildSignedTx(t, priv, 1, 1000, 50, nil)
	lowHash, _ := low.Hash()
	if result, err := bc.OnNewTransaction(low); result != VerifySucceed {
		t.Fatalf("admit low: %v (%v)", result, err)
	}

	high := buildSignedTx(t, priv, 2, 1000, 500, []Attribute{{Type: AttrConflicts, Data: lowHash.Bytes()}})
	highHash, _ := high.Hash()

	result, err := bc.OnNewTransaction(high)
	if result != VerifySucceed {
		t.Fatalf("admit conflicting high-fee tx: %v (%v)", result, err)
	}
	if bc.Mempool().Has(lowHash) {
		t.Fatalf("lower-fee conflicting transaction should have been evicted")
	}
	if !bc.Mempool().Has(highHash) {
		t.Fatalf("higher-fee transaction should be admitted")
	}
}

func TestImportBlocksStopsAtFirstFailure(t *testing.T) {
	bc, consensusKey := newTestChainWithConsensus(t)
	genesisAny, _ := bc.BlockByIndex(0)
	genesisHash := mustHash(t, genesisAny.(Block).Header)

	good := Block{Header: Header{PrevHash: genesisHash, Index: 1}}
	good.Header.MerkleRoot, _ = good.MerkleRoot()
	signHeader(t, consensusKey, &good.Header)

	bad := Block{Header: Header{PrevHash: hashing.Hash256{0xFF}, Index: 2}}
	bad.Header.MerkleRoot, _ = bad.MerkleRoot()

	n, err := bc.ImportBlocks([]Block{good, bad})
	if err == nil {
		t.Fatalf("expected import to fail on the bad block")
	}
	if n != 1 {
		t.Fatalf("expected 1 block imported before failure, got %d", n)
	}
	if bc.CurrentIndex() != 1 {
		t.Fatalf("expected tip to remain at the last good block, got %d", bc.CurrentIndex())
	}
}

func TestBlockStreamRoundTrip(t *testing.T) {
	bc, consensusKey := newTestChainWithConsensus(t)
	genesisAny, _ := bc.BlockByIndex(0)
	genesisHash := mustHash(t, genesisAny.(Block).Header)

	b1 := Block{Header: Header{PrevHash: genesisHash, Index: 1}}
	b1.Header.MerkleRoot, _ = b1.MerkleRoot()
	signHeader(t, consensusKey, &b1.Header)

	raw, err := EncodeBlockStream([]Block{b1})
	if err != nil {
		t.Fatalf("EncodeBlockStream: %v", err)
	}
	decoded, err := DecodeBlockStream(raw)
	if err != nil {
		t.Fatalf("DecodeBlockStream: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 decoded block, got %d", len(decoded))
	}
	gotHash := mustHash(t, decoded[0].Header)
	wantHash := mustHash(t, b1.Header)
	if gotHash != wantHash {
		t.Fatalf("decoded block hash mismatch: got %s want %s", gotHash, wantHash)
	}
}

func TestDecodeBlockStreamRejectsTruncatedInput(t *testing.T) {
	if _, err := DecodeBlockStream([]byte{0xFF, 0xFF, 0xFF, 0x7F, 0x01, 0x02}); err == nil {
		t.Fatalf("expected truncated stream to be rejected")
	}
}
