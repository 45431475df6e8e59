package store

import (
	"bytes"
	"sort"
	"sync"
)

// TrackState is the per-entry cache state machine of §4.2.2.
type TrackState int

const (
	StateNone TrackState = iota
	StateUnchanged
	StateAdded
	StateChanged
	StateDeleted
)

type entry struct {
	value []byte
	state TrackState
}

// Snapshot is read-only access to a backing layer — either a Store or a
// parent DataCache. Both satisfy it, which is how caches nest (§4.2.2,
// "block persistence builds a cache over the store, executes all
// transactions, then commits the top-level cache").
type Snapshot interface {
	Get(key []byte) ([]byte, error)
	Seek(prefix []byte, dir SeekDirection) Iterator
}

// storeSnapshot adapts a Store to Snapshot.
type storeSnapshot struct{ s Store }

func (s storeSnapshot) Get(key []byte) ([]byte, error)                    { return s.s.Get(key) }
func (s storeSnapshot) Seek(prefix []byte, dir SeekDirection) Iterator { return s.s.Seek(prefix, dir) }

// StoreSnapshot wraps a Store so it can back a DataCache.
func StoreSnapshot(s Store) Snapshot { return storeSnapshot{s} }

// DataCache is the per-entry read/write-back cache of §4.2.2. A DataCache
// can be built over a Store (the typical top-level case, used by block
// persistence so in-progress execution never mutates the committed store)
// or over another DataCache (nested caches, flushed with CommitInto).
type DataCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	parent  Snapshot
}

// NewDataCache builds a cache whose misses fall through to parent.
func NewDataCache(parent Snapshot) *DataCache {
	return &DataCache{entries: make(map[string]*entry), parent: parent}
}

// NewDataCacheOverStore is a convenience constructor for the common
// top-level case.
func NewDataCacheOverStore(s Store) *DataCache { return NewDataCache(StoreSnapshot(s)) }

// Get returns the value for key, consulting the cache first and falling
// through to the parent snapshot on a miss (inserting an Unchanged record
// so subsequent reads are served from the cache).
func (c *DataCache) Get(key []byte) ([]byte, error) {
	k := string(key)

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok {
		if e.state == StateDeleted || e.state == StateNone {
			return nil, ErrKeyNotFound
		}
		out := make([]byte, len(e.value))
		copy(out, e.value)
		return out, nil
	}

	v, err := c.parent.Get(key)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if _, ok := c.entries[k]; !ok {
		c.entries[k] = &entry{value: v, state: StateUnchanged}
	}
	c.mu.Unlock()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put writes value for key, transitioning the entry's state per §4.2.2:
// None→Added, {Unchanged,Changed}→Changed, Deleted→Changed.
func (c *DataCache) Put(key, value []byte) {
	k := string(key)
	cpy := make([]byte, len(value))
	copy(cpy, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		// Determine via a read against parent whether this key already
		// exists there; if so the transition is Unchanged->Changed, else
		// None->Added. We avoid holding the lock across parent.Get by
		// dropping it briefly.
		c.mu.Unlock()
		_, perr := c.parent.Get(key)
		c.mu.Lock()
		if e, ok = c.entries[k]; !ok {
			state := StateAdded
			if perr == nil {
				state = StateChanged
			}
			c.entries[k] = &entry{value: cpy, state: state}
			return
		}
	}
	switch e.state {
	case StateNone:
		e.state = StateAdded
	case StateUnchanged, StateChanged:
		e.state = StateChanged
	case StateDeleted:
		e.state = StateChanged
	case StateAdded:
		// stays Added
	}
	e.value = cpy
}

// Delete removes key, transitioning Added→None (drop) and
// {Unchanged,Changed}→Deleted.
func (c *DataCache) Delete(key []byte) {
	k := string(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		c.mu.Unlock()
		_, perr := c.parent.Get(key)
		c.mu.Lock()
		if perr != nil {
			c.entries[k] = &entry{state: StateNone}
			return
		}
		c.entries[k] = &entry{state: StateDeleted}
		return
	}
	switch e.state {
	case StateAdded:
		e.state = StateNone
		e.value = nil
	case StateUnchanged, StateChanged:
		e.state = StateDeleted
		e.value = nil
	case StateDeleted, StateNone:
		// already gone
	}
}

// Find merges cache-pending writes with a parent seek for the given
// prefix, de-duplicating by key and honoring Deleted/None suppression.
func (c *DataCache) Find(prefix []byte, dir SeekDirection) []KVPair {
	seen := make(map[string]bool)
	var out []KVPair

	c.mu.RLock()
	for k, e := range c.entries {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		seen[k] = true
		if e.state == StateDeleted || e.state == StateNone {
			continue
		}
		out = append(out, KVPair{Key: []byte(k), Value: append([]byte(nil), e.value...)})
	}
	c.mu.RUnlock()

	it := c.parent.Seek(prefix, SeekForward)
	if it != nil {
		for it.Next() {
			k := string(it.Key())
			if seen[k] {
				continue
			}
			out = append(out, KVPair{Key: it.Key(), Value: it.Value()})
		}
		_ = it.Close()
	}

	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	if dir == SeekBackward {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Seek returns Find's merged view of prefix as an Iterator, which lets a
// DataCache serve as the parent Snapshot of a nested DataCache.
func (c *DataCache) Seek(prefix []byte, dir SeekDirection) Iterator {
	it := &memIterator{idx: -1}
	for _, p := range c.Find(prefix, dir) {
		it.keys = append(it.keys, p.Key)
		it.values = append(it.values, p.Value)
	}
	return it
}

// dirtyOps returns the pending mutations as a flat list, used by both
// Commit (writing through a Store batch) and CommitInto (writing through a
// parent DataCache).
func (c *DataCache) dirtyOps() []memBatchOp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ops []memBatchOp
	for k, e := range c.entries {
		switch e.state {
		case StateAdded, StateChanged:
			ops = append(ops, memBatchOp{key: []byte(k), value: e.value})
		case StateDeleted:
			ops = append(ops, memBatchOp{del: true, key: []byte(k)})
		}
	}
	return ops
}

// Commit flushes dirty records into s via a single write batch (§4.2.2),
// then marks every surviving entry Unchanged so the cache can be reused.
func (c *DataCache) Commit(s Store) error {
	ops := c.dirtyOps()
	b := s.NewBatch()
	for _, op := range ops {
		if op.del {
			b.Delete(op.key)
		} else {
			b.Put(op.key, op.value)
		}
	}
	if err := s.Write(b); err != nil {
		return err
	}
	c.settle()
	return nil
}

// CommitInto flushes dirty records into a parent DataCache instead of a
// Store, for nested caches.
func (c *DataCache) CommitInto(parent *DataCache) {
	for _, op := range c.dirtyOps() {
		if op.del {
			parent.Delete(op.key)
		} else {
			parent.Put(op.key, op.value)
		}
	}
	c.settle()
}

func (c *DataCache) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		switch e.state {
		case StateAdded, StateChanged:
			e.state = StateUnchanged
		case StateDeleted, StateNone:
			delete(c.entries, k)
		}
	}
}
