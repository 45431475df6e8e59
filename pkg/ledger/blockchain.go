package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/native"
	"github.com/n3node/core/pkg/store"
	"github.com/n3node/core/pkg/wire"
)

func newByteReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }

var (
	keyBlockByIndex = byte(0x01)
	keyBlockHeader  = byte(0x02)
	keyTxLocator    = byte(0x03)
	keyCurrentState = byte(0x04)

	blockchainPrefix = []byte("bc:")
)

func bcKey(tag byte, sub []byte) []byte {
	out := make([]byte, 0, len(blockchainPrefix)+1+len(sub))
	out = append(out, blockchainPrefix...)
	out = append(out, tag)
	out = append(out, sub...)
	return out
}

// txLocator records where a transaction landed, for TransactionHeight and
// GetTransaction lookups (§4.3's ledger query surface).
type txLocator struct {
	BlockIndex uint32
	TxIndex    uint32
}

// CommitEvent is published on the Committing/Committed channels of §4.3.4.
type CommitEvent struct {
	Block   Block
	Err     error                 // set only on the Committing event's rollback path
	AppLogs []ApplicationExecuted // one entry per transaction, in block order, set on Committed
}

// Blockchain is the aggregate root binding the key/value store, the native
// contract registry, and the mempool into the persistence pipeline of
// §4.3. Grounded on the teacher's Ledger type (core/ledger.go): a single
// mutex-guarded struct owning the backing store and exposing
// AddBlock/GetBlock/GetTransaction, generalized here into the full
// OnNewBlock/OnNewTransaction verify-then-persist pipeline the
// specification requires.
type Blockchain struct {
	mu       sync.RWMutex
	store    store.Store
	registry *native.Registry
	mempool  *Mempool

	currentIndex  uint32
	currentHash   hashing.Hash256
	nextConsensus hashing.Hash160

	committing chan CommitEvent
	committed  chan CommitEvent

	unverified    map[uint32]Block
	maxUnverified int
}

// Config bundles the parameters a fresh chain is bootstrapped with.
type Config struct {
	Store               store.Store
	MempoolCapacity     int
	NextConsensus       hashing.Hash160
	GenesisTimeMS       uint64
	MaxUnverifiedBlocks int // bounds the future-block parking cache (§4.3.2); defaults to DefaultMaxUnverifiedBlocks
}

// DefaultMaxUnverifiedBlocks bounds how many future blocks OnNewBlock will
// park awaiting the gap to close, absent an explicit Config value.
const DefaultMaxUnverifiedBlocks = 10_000

// New constructs a Blockchain and bootstraps genesis if the store is
// empty (§4.3.1). The native registry's LedgerContract is bound to this
// chain before genesis runs so native code can query chain state from
// block 0 onward.
func New(cfg Config) (*Blockchain, error) {
	if cfg.MempoolCapacity <= 0 {
		cfg.MempoolCapacity = 50_000
	}
	if cfg.MaxUnverifiedBlocks <= 0 {
		cfg.MaxUnverifiedBlocks = DefaultMaxUnverifiedBlocks
	}
	bc := &Blockchain{
		store:         cfg.Store,
		registry:      native.NewStandardRegistry(),
		mempool:       NewMempool(cfg.MempoolCapacity),
		nextConsensus: cfg.NextConsensus,
		committing:    make(chan CommitEvent, 16),
		committed:     make(chan CommitEvent, 16),
		unverified:    make(map[uint32]Block),
		maxUnverified: cfg.MaxUnverifiedBlocks,
	}
	if lc, ok := bc.registry.ByID(-4); ok {
		if ledgerContract, ok := lc.(*native.LedgerContract); ok {
			ledgerContract.Bind(bc)
		}
	}

	raw, err := bc.store.Get(bcKey(keyCurrentState, nil))
	if errors.Is(err, store.ErrKeyNotFound) {
		if err := bc.bootstrapGenesis(cfg.GenesisTimeMS); err != nil {
			return nil, fmt.Errorf("ledger: genesis bootstrap: %w", err)
		}
		return bc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: loading chain state: %w", err)
	}
	index, hash, derr := decodeCurrentState(raw)
	if derr != nil {
		return nil, derr
	}
	bc.currentIndex = index
	bc.currentHash = hash
	return bc, nil
}

// bootstrapGenesis persists block 0: an empty, self-witnessed block whose
// prev_hash is the zero hash (§4.3.1).
func (bc *Blockchain) bootstrapGenesis(timestampMS uint64) error {
	genesis := Block{
		Header: Header{
			Version:       0,
			PrevHash:      hashing.Hash256{},
			Index:         0,
			TimestampMS:   timestampMS,
			NextConsensus: bc.nextConsensus,
		},
	}
	root, err := genesis.MerkleRoot()
	if err != nil {
		return err
	}
	genesis.Header.MerkleRoot = root
	return bc.persistBlock(genesis)
}

// CurrentIndex implements native.ChainView.
func (bc *Blockchain) CurrentIndex() uint32 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.currentIndex
}

// CurrentHash implements native.ChainView.
func (bc *Blockchain) CurrentHash() hashing.Hash256 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.currentHash
}

// BlockByIndex implements native.ChainView.
func (bc *Blockchain) BlockByIndex(index uint32) (any, bool) {
	raw, err := bc.store.Get(bcKey(keyBlockByIndex, u32le(index)))
	if err != nil {
		return nil, false
	}
	b, err := decodeBlock(raw)
	if err != nil {
		return nil, false
	}
	return b, true
}

// BlockByHash implements native.ChainView.
func (bc *Blockchain) BlockByHash(h hashing.Hash256) (any, bool) {
	raw, err := bc.store.Get(bcKey(keyBlockHeader, h.Bytes()))
	if err != nil {
		return nil, false
	}
	return bc.BlockByIndex(decodeU32(raw))
}

// TransactionByHash implements native.ChainView.
func (bc *Blockchain) TransactionByHash(h hashing.Hash256) (any, bool) {
	raw, err := bc.store.Get(bcKey(keyTxLocator, h.Bytes()))
	if err != nil {
		return nil, false
	}
	loc, err := decodeTxLocator(raw)
	if err != nil {
		return nil, false
	}
	blockAny, ok := bc.BlockByIndex(loc.BlockIndex)
	if !ok {
		return nil, false
	}
	b := blockAny.(Block)
	if int(loc.TxIndex) >= len(b.Transactions) {
		return nil, false
	}
	return b.Transactions[loc.TxIndex], true
}

// TransactionHeight implements native.ChainView.
func (bc *Blockchain) TransactionHeight(h hashing.Hash256) (uint32, bool) {
	raw, err := bc.store.Get(bcKey(keyTxLocator, h.Bytes()))
	if err != nil {
		return 0, false
	}
	loc, err := decodeTxLocator(raw)
	if err != nil {
		return 0, false
	}
	return loc.BlockIndex, true
}

// Mempool exposes the chain's mempool for RPC/P2P wiring.
func (bc *Blockchain) Mempool() *Mempool { return bc.mempool }

// Committing and Committed expose the persistence pipeline's event
// channels (§4.3.4).
func (bc *Blockchain) Committing() <-chan CommitEvent { return bc.committing }
func (bc *Blockchain) Committed() <-chan CommitEvent  { return bc.committed }

// OnNewTransaction implements §4.3.3: structural/signature verification,
// conflict resolution against the mempool, then admission.
func (bc *Blockchain) OnNewTransaction(tx Transaction) (VerifyResult, error) {
	h, err := tx.Hash()
	if err != nil {
		return VerifyInvalid, err
	}
	if bc.mempool.Has(h) {
		return VerifyAlreadyInPool, nil
	}
	if _, ok := bc.TransactionByHash(h); ok {
		return VerifyAlreadyExists, nil
	}

	bc.mu.RLock()
	currentIndex := bc.currentIndex
	bc.mu.RUnlock()

	result, verr := VerifyTransaction(tx, currentIndex)
	if result != VerifySucceed {
		return result, verr
	}

	raw, err := EncodeSigned(tx)
	if err != nil {
		return VerifyInvalid, err
	}
	newFeePerByte := FeePerByte(tx, len(raw))

	if conflict, ok := bc.mempool.conflictingSigner(tx); ok {
		conflictEntry := bc.mempool.verified[conflict]
		if conflictEntry != nil && conflictEntry.FeePerByte >= newFeePerByte {
			return VerifyHasConflicts, nil
		}
		bc.mempool.Remove(conflict)
	}
	entry := &MempoolEntry{
		Tx:         tx,
		Hash:       h,
		FeePerByte: newFeePerByte,
		Verified:   true,
	}
	entry.ArrivalTime = time.Now()
	return bc.mempool.Insert(entry), nil
}

// OnNewBlock implements §4.3.2: replay detection, then either parking a
// future block or verifying-and-persisting a contiguous one. Replaying a
// block already at or below the tip (Scenario 6) reports AlreadyExists
// and leaves state untouched.
func (bc *Blockchain) OnNewBlock(b Block) (VerifyResult, error) {
	bc.mu.RLock()
	tipIndex, tipHash := bc.currentIndex, bc.currentHash
	bc.mu.RUnlock()

	if b.Header.Index <= tipIndex && !(b.Header.Index == 0 && tipHash.IsZero()) {
		return VerifyAlreadyExists, nil
	}

	// A block more than one ahead of the tip can't be verified yet (its
	// prev_hash can't be checked against anything we hold) but isn't
	// necessarily invalid either — §4.3.2/§8.2 require parking it until
	// the gap closes instead of rejecting it outright.
	if (b.Header.Index != 0 || !tipHash.IsZero()) && b.Header.Index > tipIndex+1 {
		bc.parkUnverified(b)
		return VerifyUnableToVerify, nil
	}

	if b.Header.Index != 0 || !tipHash.IsZero() {
		if err := VerifyBlock(b, tipIndex, tipHash, bc.nextConsensus); err != nil {
			return VerifyInvalid, err
		}
	}
	if err := bc.persistBlock(b); err != nil {
		return VerifyInvalid, err
	}
	bc.drainUnverified()
	return VerifySucceed, nil
}

// parkUnverified stores a future block keyed by its index, bounded by
// maxUnverified. Once the cache is full, additional future blocks are
// dropped silently: the result the caller sees is still UnableToVerify,
// but nothing is retained for them — the sender is expected to resend
// once the gap has had a chance to close. The cache is keyed by index
// rather than by (index, peer) since OnNewBlock's signature carries no
// peer identity; a single pending block per height is this module's
// scope (documented in DESIGN.md).
func (bc *Blockchain) parkUnverified(b Block) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if _, exists := bc.unverified[b.Header.Index]; !exists && len(bc.unverified) >= bc.maxUnverified {
		return
	}
	bc.unverified[b.Header.Index] = b
}

// drainUnverified persists every parked block that has become the new
// contiguous next block, stopping at the first gap or the first parked
// block that fails verification (which is simply discarded).
func (bc *Blockchain) drainUnverified() {
	for {
		bc.mu.RLock()
		tipIndex, tipHash := bc.currentIndex, bc.currentHash
		bc.mu.RUnlock()

		bc.mu.Lock()
		b, ok := bc.unverified[tipIndex+1]
		if ok {
			delete(bc.unverified, tipIndex+1)
		}
		bc.mu.Unlock()
		if !ok {
			return
		}

		if err := VerifyBlock(b, tipIndex, tipHash, bc.nextConsensus); err != nil {
			continue
		}
		if err := bc.persistBlock(b); err != nil {
			continue
		}
	}
}

// persistBlock runs the OnPersist / application / PostPersist phases of
// §4.3.4 against a fresh DataCache, commits it, then updates the chain
// tip and mempool. The native OnPersist/PostPersist triggers are invoked
// directly as Go method calls against the registry: they are the
// canonical implementation of those hooks, not a stand-in for script
// execution. Each transaction's own script, by contrast, genuinely runs:
// it is loaded into a vm.Engine under tx.SystemFee's gas budget and
// executed, producing the ApplicationExecuted record §4.3.4 step 2
// requires (see executeTransaction in execution.go).
func (bc *Blockchain) persistBlock(b Block) error {
	snapshot := store.NewDataCacheOverStore(bc.store)

	onPersistCtx := &native.Context{Cache: snapshot, Flags: native.FlagAll}
	for _, c := range bc.registry.All() {
		if err := c.OnPersist(onPersistCtx); err != nil {
			bc.committing <- CommitEvent{Block: b, Err: err}
			return fmt.Errorf("ledger: OnPersist for %s: %w", c.Name(), err)
		}
	}

	bc.committing <- CommitEvent{Block: b}

	blockBytes, err := EncodeBlock(b)
	if err != nil {
		return err
	}
	blockHash, err := b.Header.Hash()
	if err != nil {
		return err
	}

	appLogs := make([]ApplicationExecuted, 0, len(b.Transactions))
	snapshot.Put(bcKey(keyBlockByIndex, u32le(b.Header.Index)), blockBytes)
	snapshot.Put(bcKey(keyBlockHeader, blockHash.Bytes()), u32le(b.Header.Index))
	for i, tx := range b.Transactions {
		txHash, err := tx.Hash()
		if err != nil {
			return err
		}
		locBytes, err := encodeTxLocator(txLocator{BlockIndex: b.Header.Index, TxIndex: uint32(i)})
		if err != nil {
			return err
		}
		snapshot.Put(bcKey(keyTxLocator, txHash.Bytes()), locBytes)
		appLogs = append(appLogs, bc.executeTransaction(snapshot, tx, txHash))
	}

	postPersistCtx := &native.Context{Cache: snapshot, Flags: native.FlagAll}
	for _, c := range bc.registry.All() {
		if err := c.PostPersist(postPersistCtx); err != nil {
			return fmt.Errorf("ledger: PostPersist for %s: %w", c.Name(), err)
		}
	}

	stateBytes, err := encodeCurrentState(b.Header.Index, blockHash)
	if err != nil {
		return err
	}
	snapshot.Put(bcKey(keyCurrentState, nil), stateBytes)

	if err := snapshot.Commit(bc.store); err != nil {
		return fmt.Errorf("ledger: committing block %d: %w", b.Header.Index, err)
	}

	bc.mu.Lock()
	bc.currentIndex = b.Header.Index
	bc.currentHash = blockHash
	bc.mu.Unlock()

	bc.mempool.InvalidateForBlock(b)
	bc.committed <- CommitEvent{Block: b, AppLogs: appLogs}
	return nil
}

// ImportBlocks implements §4.3.7's bulk import: blocks are verified and
// persisted in order, stopping at the first failure.
func (bc *Blockchain) ImportBlocks(blocks []Block) (int, error) {
	for i, b := range blocks {
		if result, err := bc.OnNewBlock(b); result != VerifySucceed {
			return i, fmt.Errorf("ledger: import stopped at block %d: %w", b.Header.Index, err)
		}
	}
	return len(blocks), nil
}

// DecodeBlockStream decodes a sequence of u32-length-prefixed encoded
// blocks, the format written by EncodeBlockStream for the "chain import"
// command-line tool. Decoding stops and returns an error on the first
// truncated or malformed entry.
func DecodeBlockStream(raw []byte) ([]Block, error) {
	r := wire.NewBinReader(newByteReader(raw))
	var blocks []Block
	for {
		length := r.ReadU32()
		if r.Err != nil {
			break
		}
		chunk := r.ReadBytes(int(length))
		if r.Err != nil {
			return nil, fmt.Errorf("ledger: truncated block stream at entry %d", len(blocks))
		}
		b, err := decodeBlock(chunk)
		if err != nil {
			return nil, fmt.Errorf("ledger: decoding entry %d: %w", len(blocks), err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// EncodeBlockStream is DecodeBlockStream's inverse, used by tests and by
// any tool producing import files for "chain import".
func EncodeBlockStream(blocks []Block) ([]byte, error) {
	var buf bytes.Buffer
	for _, b := range blocks {
		raw, err := EncodeBlock(b)
		if err != nil {
			return nil, err
		}
		w := wire.NewBinWriter(&buf)
		w.WriteU32(uint32(len(raw)))
		if w.Err != nil {
			return nil, w.Err
		}
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

func u32le(v uint32) []byte {
	b, _ := wire.ToBytes(func(w *wire.BinWriter) { w.WriteU32(v) })
	return b
}

func decodeU32(b []byte) uint32 {
	r := wire.NewBinReader(newByteReader(b))
	return r.ReadU32()
}

func decodeBlock(raw []byte) (Block, error) {
	r := wire.NewBinReader(newByteReader(raw))
	var h Header
	h.Version = r.ReadU32()
	h.PrevHash, _ = hashing.BytesToHash256(r.ReadBytes(hashing.Hash256Size))
	h.MerkleRoot, _ = hashing.BytesToHash256(r.ReadBytes(hashing.Hash256Size))
	h.TimestampMS = r.ReadU64()
	h.Nonce = r.ReadU64()
	h.Index = r.ReadU32()
	h.PrimaryIndex = r.ReadU8()
	h.NextConsensus, _ = hashing.BytesToHash160(r.ReadBytes(hashing.Hash160Size))
	_ = r.ReadU8() // witness marker written by EncodeBlock
	h.Witness.InvocationScript = r.ReadVarBytes(1 << 20)
	h.Witness.VerificationScript = r.ReadVarBytes(1 << 20)

	count := r.ReadVarint(1 << 24)
	txs := make([]Transaction, 0, count)
	for i := uint64(0); i < count; i++ {
		tx, err := decodeSignedTx(r)
		if err != nil {
			return Block{}, err
		}
		txs = append(txs, tx)
	}
	return Block{Header: h, Transactions: txs}, nil
}

func decodeSignedTx(r *wire.BinReader) (Transaction, error) {
	var tx Transaction
	tx.Version = r.ReadU8()
	tx.Nonce = r.ReadU32()
	tx.SystemFee = r.ReadI64()
	tx.NetworkFee = r.ReadI64()
	tx.ValidUntilBlock = r.ReadU32()

	signerCount := r.ReadVarint(1024)
	tx.Signers = make([]Signer, signerCount)
	for i := range tx.Signers {
		var s Signer
		s.Account, _ = hashing.BytesToHash160(r.ReadBytes(hashing.Hash160Size))
		s.Scope = WitnessScope(r.ReadU8())
		if s.Scope&ScopeCustomContracts != 0 {
			n := r.ReadVarint(1024)
			s.AllowedContracts = make([]hashing.Hash160, n)
			for j := range s.AllowedContracts {
				s.AllowedContracts[j], _ = hashing.BytesToHash160(r.ReadBytes(hashing.Hash160Size))
			}
		}
		if s.Scope&ScopeCustomGroups != 0 {
			n := r.ReadVarint(1024)
			s.AllowedGroups = make([][]byte, n)
			for j := range s.AllowedGroups {
				s.AllowedGroups[j] = r.ReadVarBytes(128)
			}
		}
		tx.Signers[i] = s
	}

	attrCount := r.ReadVarint(1024)
	tx.Attributes = make([]Attribute, attrCount)
	for i := range tx.Attributes {
		tx.Attributes[i] = Attribute{Type: AttributeType(r.ReadU8()), Data: r.ReadVarBytes(1 << 16)}
	}
	tx.Script = r.ReadVarBytes(1 << 20)

	witCount := r.ReadVarint(1024)
	tx.Witnesses = make([]Witness, witCount)
	for i := range tx.Witnesses {
		tx.Witnesses[i] = Witness{
			InvocationScript:   r.ReadVarBytes(1 << 16),
			VerificationScript: r.ReadVarBytes(1 << 16),
		}
	}
	return tx, nil
}

func encodeCurrentState(index uint32, hash hashing.Hash256) ([]byte, error) {
	return wire.ToBytes(func(w *wire.BinWriter) {
		w.WriteU32(index)
		w.WriteBytes(hash.Bytes())
	})
}

func decodeCurrentState(raw []byte) (uint32, hashing.Hash256, error) {
	r := wire.NewBinReader(newByteReader(raw))
	index := r.ReadU32()
	hash, err := hashing.BytesToHash256(r.ReadBytes(hashing.Hash256Size))
	if err != nil {
		return 0, hashing.Hash256{}, err
	}
	return index, hash, nil
}

func encodeTxLocator(l txLocator) ([]byte, error) {
	return wire.ToBytes(func(w *wire.BinWriter) {
		w.WriteU32(l.BlockIndex)
		w.WriteU32(l.TxIndex)
	})
}

func decodeTxLocator(raw []byte) (txLocator, error) {
	r := wire.NewBinReader(newByteReader(raw))
	return txLocator{BlockIndex: r.ReadU32(), TxIndex: r.ReadU32()}, nil
}
