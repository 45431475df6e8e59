package crypto

import (
	"errors"
	"fmt"
	"sync"

	bls "github.com/herumi/bls-eth-go-binary/bls"
)

var blsInitOnce sync.Once
var blsInitErr error

// ensureBLS lazily runs bls.Init, mirroring the teacher's package-level
// init() but deferred so importing this package never pays the BLS
// library's native-code setup cost unless a caller actually uses it
// (CryptoLib/RoleManagement/Notary committee-signature paths).
func ensureBLS() error {
	blsInitOnce.Do(func() {
		blsInitErr = bls.Init(bls.BLS12_381)
	})
	return blsInitErr
}

// BLSSecretKey and BLSPublicKey alias the underlying library types so
// callers outside this package never import herumi/bls directly.
type BLSSecretKey = bls.SecretKey
type BLSPublicKey = bls.PublicKey

// GenerateBLSKey creates a fresh BLS12-381 key pair, used by
// RoleManagement/Notary committee-member setup.
func GenerateBLSKey() (*BLSSecretKey, error) {
	if err := ensureBLS(); err != nil {
		return nil, err
	}
	var sk bls.SecretKey
	sk.SetByCSPRNG()
	return &sk, nil
}

// BLSPublic returns sk's public key.
func BLSPublic(sk *BLSSecretKey) *BLSPublicKey {
	pk := sk.GetPublicKey()
	return pk
}

// SignBLS signs msg with sk, returning the compressed signature bytes.
func SignBLS(sk *BLSSecretKey, msg []byte) ([]byte, error) {
	if err := ensureBLS(); err != nil {
		return nil, err
	}
	sig := sk.SignByte(msg)
	return sig.Serialize(), nil
}

// VerifyBLS checks a single BLS signature against a compressed public key.
func VerifyBLS(pub []byte, msg, sig []byte) (bool, error) {
	if err := ensureBLS(); err != nil {
		return false, err
	}
	var pk bls.PublicKey
	if err := pk.Deserialize(pub); err != nil {
		return false, fmt.Errorf("crypto: bad bls public key: %w", err)
	}
	var s bls.Sign
	if err := s.Deserialize(sig); err != nil {
		return false, fmt.Errorf("crypto: bad bls signature: %w", err)
	}
	return s.VerifyByte(&pk, msg), nil
}

// AggregateBLS merges multiple compressed BLS signatures over the same
// message into one, the mechanism CryptoLib exposes to native contracts
// and the ledger uses for committee/consensus signature checks.
func AggregateBLS(sigs [][]byte) ([]byte, error) {
	if err := ensureBLS(); err != nil {
		return nil, err
	}
	if len(sigs) == 0 {
		return nil, errors.New("crypto: no bls signatures to aggregate")
	}
	var agg bls.Sign
	for i, raw := range sigs {
		var s bls.Sign
		if err := s.Deserialize(raw); err != nil {
			return nil, fmt.Errorf("crypto: bls sig %d: %w", i, err)
		}
		if i == 0 {
			agg = s
		} else {
			agg.Add(&s)
		}
	}
	return agg.Serialize(), nil
}

// VerifyAggregatedBLS verifies an aggregated signature against an
// aggregated public key, for the case where every signer signed the same
// message (committee block-seal verification).
func VerifyAggregatedBLS(aggSig, aggPub, msg []byte) (bool, error) {
	return VerifyBLS(aggPub, msg, aggSig)
}

// AggregateBLSPublicKeys combines compressed public keys into one, for
// building the aggregated key VerifyAggregatedBLS checks against.
func AggregateBLSPublicKeys(pubs [][]byte) ([]byte, error) {
	if err := ensureBLS(); err != nil {
		return nil, err
	}
	if len(pubs) == 0 {
		return nil, errors.New("crypto: no bls public keys to aggregate")
	}
	var agg bls.PublicKey
	for i, raw := range pubs {
		var pk bls.PublicKey
		if err := pk.Deserialize(raw); err != nil {
			return nil, fmt.Errorf("crypto: bls pub %d: %w", i, err)
		}
		if i == 0 {
			agg = pk
		} else {
			agg.Add(&pk)
		}
	}
	return agg.Serialize(), nil
}
