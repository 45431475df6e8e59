package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/n3node/core/pkg/hashing"
)

// MempoolEntry is the persisted shape of §3.4.
type MempoolEntry struct {
	Tx          Transaction
	Hash        hashing.Hash256
	FeePerByte  int64
	ArrivalTime time.Time
	Verified    bool
}

// Mempool holds the two orderings of §3.4: verified (by fee_per_byte desc,
// arrival_time asc) and unverified (by arrival_time). Grounded on the
// teacher's TxPool (core/ledger.go: `TxPool map[string]*Transaction` under
// a single mutex) generalized into the two-index structure the spec
// requires.
type Mempool struct {
	mu         sync.RWMutex
	capacity   int
	verified   map[hashing.Hash256]*MempoolEntry
	unverified map[hashing.Hash256]*MempoolEntry
}

// NewMempool builds an empty mempool bounded at capacity total entries.
func NewMempool(capacity int) *Mempool {
	return &Mempool{
		capacity:   capacity,
		verified:   make(map[hashing.Hash256]*MempoolEntry),
		unverified: make(map[hashing.Hash256]*MempoolEntry),
	}
}

func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.verified) + len(m.unverified)
}

func (m *Mempool) Has(h hashing.Hash256) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, v := m.verified[h]
	_, u := m.unverified[h]
	return v || u
}

// conflictingSigner reports the hash of a verified-pool entry that
// conflicts with tx per a Conflicts attribute naming it, signed by an
// overlapping signer (§4.3.3, Scenario 7).
func (m *Mempool) conflictingSigner(tx Transaction) (hashing.Hash256, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, attr := range tx.Attributes {
		for h, entry := range m.verified {
			if !attr.ConflictsWith(h) {
				continue
			}
			if signersOverlap(tx.Signers, entry.Tx.Signers) {
				return h, true
			}
		}
	}
	return hashing.Hash256{}, false
}

func signersOverlap(a, b []Signer) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Account == y.Account {
				return true
			}
		}
	}
	return false
}

// Insert implements §4.3.6's insert algorithm, including the Scenario
// 5 eviction rule. It performs no verification itself (full
// signature/policy checks and Scenario 7 conflict resolution happen in
// Blockchain.OnNewTransaction); it assumes verification already ran and
// reports priority-based admission.
func (m *Mempool) Insert(entry *MempoolEntry) VerifyResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.verified[entry.Hash]; ok {
		return VerifyAlreadyInPool
	}
	if _, ok := m.unverified[entry.Hash]; ok {
		return VerifyAlreadyInPool
	}

	if len(m.verified)+len(m.unverified) < m.capacity {
		m.verified[entry.Hash] = entry
		return VerifySucceed
	}

	lowest := m.lowestVerifiedLocked()
	if lowest == nil || entry.FeePerByte <= lowest.FeePerByte {
		return VerifyInvalid
	}
	delete(m.verified, lowest.Hash)
	m.verified[entry.Hash] = entry
	return VerifySucceed
}

func (m *Mempool) lowestVerifiedLocked() *MempoolEntry {
	var lowest *MempoolEntry
	for _, e := range m.verified {
		if lowest == nil || lessPriority(e, lowest) {
			lowest = e
		}
	}
	return lowest
}

// lessPriority reports whether a has lower mempool priority than b:
// lower fee_per_byte first, ties broken by later arrival (later arrival
// is lower priority — Testable Property 10's tiebreak run in reverse).
func lessPriority(a, b *MempoolEntry) bool {
	if a.FeePerByte != b.FeePerByte {
		return a.FeePerByte < b.FeePerByte
	}
	return a.ArrivalTime.After(b.ArrivalTime)
}

// Remove deletes h from both indices, used when a higher-fee conflicting
// transaction displaces h (Blockchain.OnNewTransaction).
func (m *Mempool) Remove(h hashing.Hash256) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.verified, h)
	delete(m.unverified, h)
}

// GetTransactionsForBlock returns verified entries ordered by priority,
// highest first (Testable Property 10).
func (m *Mempool) GetTransactionsForBlock(max int) []Transaction {
	m.mu.RLock()
	entries := make([]*MempoolEntry, 0, len(m.verified))
	for _, e := range m.verified {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return lessPriority(entries[j], entries[i]) })
	if max > 0 && len(entries) > max {
		entries = entries[:max]
	}
	out := make([]Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.Tx
	}
	return out
}

// InvalidateForBlock implements the block-persistence mempool
// invalidation of §4.3.6: the block's own transactions are removed, and
// every surviving entry (verified or not) is re-queued as unverified so
// idle re-verification can re-check it against the new snapshot.
func (m *Mempool) InvalidateForBlock(b Block) {
	claimed := make(map[hashing.Hash256]bool, len(b.Transactions))
	for _, tx := range b.Transactions {
		if h, err := tx.Hash(); err == nil {
			claimed[h] = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	merged := make(map[hashing.Hash256]*MempoolEntry, len(m.verified)+len(m.unverified))
	for h, e := range m.verified {
		if !claimed[h] {
			merged[h] = e
		}
	}
	for h, e := range m.unverified {
		if !claimed[h] {
			merged[h] = e
		}
	}
	m.verified = make(map[hashing.Hash256]*MempoolEntry)
	m.unverified = merged
	for _, e := range m.unverified {
		e.Verified = false
	}
}

// ReverifyIdle promotes up to maxCount unverified entries back to
// verified, given a reverify callback performing the real signature/policy
// check; entries that fail are dropped.
func (m *Mempool) ReverifyIdle(maxCount int, reverify func(Transaction) bool) {
	m.mu.Lock()
	candidates := make([]*MempoolEntry, 0, len(m.unverified))
	for _, e := range m.unverified {
		candidates = append(candidates, e)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ArrivalTime.Before(candidates[j].ArrivalTime) })
	if len(candidates) > maxCount {
		candidates = candidates[:maxCount]
	}
	m.mu.Unlock()

	for _, e := range candidates {
		if reverify(e.Tx) {
			m.mu.Lock()
			delete(m.unverified, e.Hash)
			e.Verified = true
			m.verified[e.Hash] = e
			m.mu.Unlock()
		} else {
			m.mu.Lock()
			delete(m.unverified, e.Hash)
			m.mu.Unlock()
		}
	}
}
