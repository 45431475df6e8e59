package mpt

import (
	"bytes"
	"testing"

	"github.com/n3node/core/pkg/hashing"
	"github.com/n3node/core/pkg/store"
)

func freshTrie() (*Trie, *store.DataCache) {
	cache := store.NewDataCacheOverStore(store.NewMemStore())
	return New(cache, hashing.Hash256Zero), cache
}

func TestTrieGetPutBasic(t *testing.T) {
	tr, _ := freshTrie()
	if err := tr.Put([]byte("dog"), []byte("puppy")); err != nil {
		t.Fatal(err)
	}
	v, err := tr.Get([]byte("dog"))
	if err != nil || !bytes.Equal(v, []byte("puppy")) {
		t.Fatalf("get dog = %q, %v", v, err)
	}
	if _, err := tr.Get([]byte("cat")); err != store.ErrKeyNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTrieCanonicalization(t *testing.T) {
	// Scenario 4: insert dog/do/doge, delete do, reinsert do; root must
	// equal the root from inserting the three pairs once, in any order.
	tr1, _ := freshTrie()
	mustPut(t, tr1, "dog", "puppy")
	mustPut(t, tr1, "do", "verb")
	mustPut(t, tr1, "doge", "coin")
	mustDelete(t, tr1, "do")
	mustPut(t, tr1, "do", "verb")
	root1, err := tr1.RootHash()
	if err != nil {
		t.Fatal(err)
	}

	orders := [][]string{
		{"dog", "do", "doge"},
		{"doge", "dog", "do"},
		{"do", "doge", "dog"},
	}
	values := map[string]string{"dog": "puppy", "do": "verb", "doge": "coin"}

	for _, order := range orders {
		tr2, _ := freshTrie()
		for _, k := range order {
			mustPut(t, tr2, k, values[k])
		}
		root2, err := tr2.RootHash()
		if err != nil {
			t.Fatal(err)
		}
		if root1 != root2 {
			t.Fatalf("order %v: root %x != reference root %x", order, root2, root1)
		}
	}
}

func TestTrieProofRoundTrip(t *testing.T) {
	tr, _ := freshTrie()
	mustPut(t, tr, "dog", "puppy")
	mustPut(t, tr, "do", "verb")
	mustPut(t, tr, "doge", "coin")
	mustPut(t, tr, "horse", "stallion")

	root, err := tr.RootHash()
	if err != nil {
		t.Fatal(err)
	}

	for k, v := range map[string]string{"dog": "puppy", "do": "verb", "doge": "coin", "horse": "stallion"} {
		proof, err := tr.GetProof([]byte(k))
		if err != nil {
			t.Fatalf("get_proof(%s): %v", k, err)
		}
		got, err := VerifyProof(root, []byte(k), proof)
		if err != nil {
			t.Fatalf("verify(%s): %v", k, err)
		}
		if string(got) != v {
			t.Fatalf("verify(%s) = %q, want %q", k, got, v)
		}
	}
}

func TestTrieProofRejectsMismatchedKey(t *testing.T) {
	tr, _ := freshTrie()
	mustPut(t, tr, "dog", "puppy")
	mustPut(t, tr, "cat", "kitten")
	root, err := tr.RootHash()
	if err != nil {
		t.Fatal(err)
	}
	proof, err := tr.GetProof([]byte("dog"))
	if err != nil {
		t.Fatal(err)
	}
	// Wrong key against a valid proof must not verify.
	if _, err := VerifyProof(root, []byte("cat"), proof); err == nil {
		t.Fatalf("expected verification failure for mismatched key")
	}
}

func TestTrieDeleteCollapsesBranch(t *testing.T) {
	tr, _ := freshTrie()
	mustPut(t, tr, "dog", "puppy")
	mustPut(t, tr, "doge", "coin")
	rootBefore, _ := tr.RootHash()

	mustPut(t, tr, "cat", "kitten")
	mustDelete(t, tr, "cat")
	rootAfter, err := tr.RootHash()
	if err != nil {
		t.Fatal(err)
	}
	if rootBefore != rootAfter {
		t.Fatalf("delete did not collapse back to the prior canonical root: %x != %x", rootAfter, rootBefore)
	}
}

func mustPut(t *testing.T, tr *Trie, k, v string) {
	t.Helper()
	if err := tr.Put([]byte(k), []byte(v)); err != nil {
		t.Fatalf("put(%s): %v", k, err)
	}
}

func mustDelete(t *testing.T, tr *Trie, k string) {
	t.Helper()
	if err := tr.Delete([]byte(k)); err != nil {
		t.Fatalf("delete(%s): %v", k, err)
	}
}
