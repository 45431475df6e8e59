package hashing

import "testing"

func TestMerkleRootSingleLeaf(t *testing.T) {
	leaf := Hash256Of([]byte("only"))
	if got := MerkleRoot([]Hash256{leaf}); got != leaf {
		t.Fatalf("single-leaf root = %x, want %x", got, leaf)
	}
}

func TestMerkleRootOddDuplication(t *testing.T) {
	leaves := []Hash256{
		Hash256Of([]byte("a")),
		Hash256Of([]byte("b")),
		Hash256Of([]byte("c")),
	}
	// manual pairwise computation with last leaf duplicated
	l2 := append(append([]byte{}, leaves[0][:]...), leaves[1][:]...)
	l3 := append(append([]byte{}, leaves[2][:]...), leaves[2][:]...)
	top := append(append([]byte{}, Hash256Of(l2).Bytes()...), Hash256Of(l3).Bytes()...)
	want := Hash256Of(top)

	if got := MerkleRoot(leaves); got != want {
		t.Fatalf("root = %x, want %x", got, want)
	}
}

func TestMerkleProofRoundTrip(t *testing.T) {
	var leaves []Hash256
	for i := 0; i < 7; i++ {
		leaves = append(leaves, Hash256Of([]byte{byte(i)}))
	}
	root := MerkleRoot(leaves)
	for i := range leaves {
		proof, gotRoot, err := MerkleProof(leaves, i)
		if err != nil {
			t.Fatalf("proof %d: %v", i, err)
		}
		if gotRoot != root {
			t.Fatalf("proof %d root mismatch", i)
		}
		if !VerifyMerkleProof(root, leaves[i], proof, i) {
			t.Fatalf("proof %d failed to verify", i)
		}
	}
}

func TestBase58CheckRoundTrip(t *testing.T) {
	payload := []byte{0x80, 1, 2, 3, 4, 5}
	enc := Base58CheckEncode(payload)
	dec, err := Base58CheckDecode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(dec) != string(payload) {
		t.Fatalf("roundtrip mismatch: got %x want %x", dec, payload)
	}
}

func TestBase58CheckBadChecksum(t *testing.T) {
	enc := Base58CheckEncode([]byte{1, 2, 3})
	tampered := enc[:len(enc)-1] + "9"
	if _, err := Base58CheckDecode(tampered); err == nil {
		t.Fatalf("expected checksum failure")
	}
}

func TestHash160OfMatchesComposition(t *testing.T) {
	data := []byte("script")
	got := Hash160Of(data)
	s := SHA256(data)
	want := RIPEMD160(s[:])
	if len(want) != Hash160Size {
		t.Fatalf("ripemd160 length = %d", len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hash160 mismatch at %d", i)
		}
	}
}

func TestFixed8String(t *testing.T) {
	f := Fixed8FromInt64(5)
	if f.String() != "5.00000000" {
		t.Fatalf("got %s", f.String())
	}
	neg := Fixed8(-150_000_000)
	if neg.String() != "-1.50000000" {
		t.Fatalf("got %s", neg.String())
	}
}
