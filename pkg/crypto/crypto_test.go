package crypto

import "testing"

func TestECDSASignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("transaction payload")
	sig, err := Sign(priv, msg)
	if err != nil {
		t.Fatal(err)
	}
	if !Verify(priv.Public(), msg, sig) {
		t.Fatalf("signature did not verify")
	}
	if Verify(priv.Public(), []byte("tampered"), sig) {
		t.Fatalf("signature verified against the wrong message")
	}
}

func TestPublicKeyCompressDecompressRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	compressed := priv.Public().CompressedBytes()
	pub2, err := PublicKeyFromCompressed(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if priv.Public().X.Cmp(pub2.X) != 0 || priv.Public().Y.Cmp(pub2.Y) != 0 {
		t.Fatalf("decompressed point does not match original")
	}
}

func TestWIFRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	wif := EncodeWIF(priv)
	priv2, err := DecodeWIF(wif)
	if err != nil {
		t.Fatal(err)
	}
	if string(priv.Bytes()) != string(priv2.Bytes()) {
		t.Fatalf("WIF round trip produced a different key")
	}
}

func TestWIFRejectsBadChecksum(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	wif := EncodeWIF(priv)
	tampered := wif[:len(wif)-1] + "9"
	if tampered == wif {
		tampered = wif[:len(wif)-1] + "8"
	}
	if _, err := DecodeWIF(tampered); err == nil {
		t.Fatalf("expected checksum rejection for tampered WIF")
	}
}

func TestNEP2RoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	enc, err := EncryptNEP2(priv, "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	priv2, err := DecryptNEP2(enc, "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if string(priv.Bytes()) != string(priv2.Bytes()) {
		t.Fatalf("NEP-2 round trip produced a different key")
	}
}

func TestNEP2WrongPassphraseRejected(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	enc, err := EncryptNEP2(priv, "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecryptNEP2(enc, "wrong passphrase"); err != ErrWrongPassphrase {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestBLSSignVerifyAndAggregate(t *testing.T) {
	sk1, err := GenerateBLSKey()
	if err != nil {
		t.Fatal(err)
	}
	sk2, err := GenerateBLSKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("block seal")

	sig1, err := SignBLS(sk1, msg)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyBLS(BLSPublic(sk1).Serialize(), msg, sig1)
	if err != nil || !ok {
		t.Fatalf("single bls verify failed: ok=%v err=%v", ok, err)
	}

	sig2, err := SignBLS(sk2, msg)
	if err != nil {
		t.Fatal(err)
	}
	aggSig, err := AggregateBLS([][]byte{sig1, sig2})
	if err != nil {
		t.Fatal(err)
	}
	aggPub, err := AggregateBLSPublicKeys([][]byte{BLSPublic(sk1).Serialize(), BLSPublic(sk2).Serialize()})
	if err != nil {
		t.Fatal(err)
	}
	ok, err = VerifyAggregatedBLS(aggSig, aggPub, msg)
	if err != nil || !ok {
		t.Fatalf("aggregated bls verify failed: ok=%v err=%v", ok, err)
	}
}
