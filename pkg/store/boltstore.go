package store

import (
	"bytes"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// boltBucket is the single bucket a BoltStore keeps all keys in; the
// contract-id prefix already documented in §6.3 gives callers their own
// effective namespacing, so there is no need for bbolt sub-buckets.
var boltBucket = []byte("kv")

// BoltStore is the embedded bbolt (B+tree) backend named in
// §4.2.1, grounded on the single-bucket bbolt usage pattern used by the
// node-store example (open-with-timeout, create-bucket-if-missing, one
// Update/View transaction per call).
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if necessary) a bbolt database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

func (s *BoltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
}

type boltBatch struct {
	ops []memBatchOp
}

func (b *boltBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memBatchOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}
func (b *boltBatch) Delete(key []byte) {
	b.ops = append(b.ops, memBatchOp{del: true, key: append([]byte(nil), key...)})
}

func (s *BoltStore) NewBatch() Batch { return &boltBatch{} }

// Write applies every operation in b inside a single bbolt transaction,
// giving the node the same per-block atomic write-batch guarantee §4.2.1
// requires regardless of which Store backend is configured.
func (s *BoltStore) Write(b Batch) error {
	bb, ok := b.(*boltBatch)
	if !ok {
		return ErrBadBatch
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for _, op := range bb.ops {
			if op.del {
				if err := bucket.Delete(op.key); err != nil {
					return err
				}
			} else if err := bucket.Put(op.key, op.value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }

type boltIterator struct {
	keys   [][]byte
	values [][]byte
	idx    int
}

func (it *boltIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}
func (it *boltIterator) Key() []byte   { return it.keys[it.idx] }
func (it *boltIterator) Value() []byte { return it.values[it.idx] }
func (it *boltIterator) Error() error  { return nil }
func (it *boltIterator) Close() error  { return nil }

// Seek walks bbolt's native B+tree ordering over [prefix, prefix+0xff...),
// materializing the matched range since bbolt cursors are only valid inside
// their owning transaction.
func (s *BoltStore) Seek(prefix []byte, dir SeekDirection) Iterator {
	var keys, values [][]byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
			values = append(values, append([]byte(nil), v...))
		}
		return nil
	})
	if dir == SeekBackward {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
			values[i], values[j] = values[j], values[i]
		}
	}
	return &boltIterator{keys: keys, values: values, idx: -1}
}
