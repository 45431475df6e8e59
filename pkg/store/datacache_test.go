package store

import "testing"

func TestDataCacheMissFallsThroughAndCaches(t *testing.T) {
	base := NewMemStore()
	base.Put([]byte("a"), []byte("1"))

	c := NewDataCacheOverStore(base)
	v, err := c.Get([]byte("a"))
	if err != nil || string(v) != "1" {
		t.Fatalf("get a = %q, %v", v, err)
	}

	// mutate backing store directly; cache should keep serving its own
	// now-Unchanged copy rather than re-reading.
	base.Put([]byte("a"), []byte("2"))
	v, err = c.Get([]byte("a"))
	if err != nil || string(v) != "1" {
		t.Fatalf("cached read should still see %q, got %q, %v", "1", v, err)
	}
}

func TestDataCacheStateTransitions(t *testing.T) {
	base := NewMemStore()
	c := NewDataCacheOverStore(base)

	// None -> Added
	c.Put([]byte("k"), []byte("v1"))
	if v, err := c.Get([]byte("k")); err != nil || string(v) != "v1" {
		t.Fatalf("added get = %q, %v", v, err)
	}

	// Added -> changed value, stays Added, then Added -> None on delete.
	c.Put([]byte("k"), []byte("v2"))
	c.Delete([]byte("k"))
	if _, err := c.Get([]byte("k")); err != ErrKeyNotFound {
		t.Fatalf("expected not found after dropping an added-then-deleted key, got %v", err)
	}

	// Unchanged -> Changed -> Deleted against a pre-existing backing key.
	base.Put([]byte("m"), []byte("orig"))
	c2 := NewDataCacheOverStore(base)
	if v, err := c2.Get([]byte("m")); err != nil || string(v) != "orig" {
		t.Fatalf("seed read = %q, %v", v, err)
	}
	c2.Put([]byte("m"), []byte("updated"))
	if v, err := c2.Get([]byte("m")); err != nil || string(v) != "updated" {
		t.Fatalf("changed read = %q, %v", v, err)
	}
	c2.Delete([]byte("m"))
	if _, err := c2.Get([]byte("m")); err != ErrKeyNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestDataCacheCommitEquivalence(t *testing.T) {
	base := NewMemStore()
	base.Put([]byte("x"), []byte("1"))
	base.Put([]byte("y"), []byte("2"))

	c := NewDataCacheOverStore(base)
	c.Put([]byte("x"), []byte("10"))
	c.Delete([]byte("y"))
	c.Put([]byte("z"), []byte("3"))

	if err := c.Commit(base); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if v, err := base.Get([]byte("x")); err != nil || string(v) != "10" {
		t.Fatalf("base x = %q, %v", v, err)
	}
	if _, err := base.Get([]byte("y")); err != ErrKeyNotFound {
		t.Fatalf("expected y removed from base, got %v", err)
	}
	if v, err := base.Get([]byte("z")); err != nil || string(v) != "3" {
		t.Fatalf("base z = %q, %v", v, err)
	}

	// after commit, cache entries settle to Unchanged/gone and subsequent
	// reads still observe the same committed values directly.
	if v, err := c.Get([]byte("x")); err != nil || string(v) != "10" {
		t.Fatalf("post-commit cache x = %q, %v", v, err)
	}
}

func TestDataCacheNestedCommitInto(t *testing.T) {
	base := NewMemStore()
	base.Put([]byte("a"), []byte("1"))

	parent := NewDataCacheOverStore(base)
	child := NewDataCache(parent)

	child.Put([]byte("a"), []byte("2"))
	child.Put([]byte("b"), []byte("new"))

	// parent is untouched until the child commits into it.
	if v, _ := parent.Get([]byte("a")); string(v) != "1" {
		t.Fatalf("parent should be unaffected before commit, got %q", v)
	}

	child.CommitInto(parent)

	if v, err := parent.Get([]byte("a")); err != nil || string(v) != "2" {
		t.Fatalf("parent a after commitinto = %q, %v", v, err)
	}
	if v, err := parent.Get([]byte("b")); err != nil || string(v) != "new" {
		t.Fatalf("parent b after commitinto = %q, %v", v, err)
	}
	// base store is still untouched; only committing parent into base
	// would flush it further.
	if _, err := base.Get([]byte("b")); err != ErrKeyNotFound {
		t.Fatalf("base should not see child writes without parent.Commit, got %v", err)
	}
}

func TestDataCacheFindMergesAndDedups(t *testing.T) {
	base := NewMemStore()
	base.Put([]byte("p:1"), []byte("one"))
	base.Put([]byte("p:2"), []byte("two"))
	base.Put([]byte("q:1"), []byte("other"))

	c := NewDataCacheOverStore(base)
	c.Put([]byte("p:2"), []byte("two-updated"))
	c.Put([]byte("p:3"), []byte("three"))
	c.Delete([]byte("p:1"))

	got := c.Find([]byte("p:"), SeekForward)
	want := map[string]string{"p:2": "two-updated", "p:3": "three"}
	if len(got) != len(want) {
		t.Fatalf("find returned %d pairs, want %d: %+v", len(got), len(want), got)
	}
	for _, kv := range got {
		if want[string(kv.Key)] != string(kv.Value) {
			t.Fatalf("key %s = %q, want %q", kv.Key, kv.Value, want[string(kv.Key)])
		}
	}
}
