// Package crypto implements the node's signing/verification primitives
// (§4.1/§6.5/§8 of the crypto & codec surface): secp256r1 ECDSA, BLS12-381
// group operations, and the WIF/NEP-2 private-key export formats.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/n3node/core/pkg/hashing"
)

// ErrInvalidSignature is returned when a secp256r1 signature fails to
// verify.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// Curve is the NIST P-256 curve Neo N3 uses for account keys. No pack
// example or ecosystem library exposes a Neo-flavored secp256r1 signer —
// the teacher's only P-256 usage is as a TLS curve preference, not a
// signing API — so this is the one place the module reaches for the
// standard library's crypto/ecdsa directly (see DESIGN.md).
func Curve() elliptic.Curve { return elliptic.P256() }

// PrivateKey wraps an ecdsa.PrivateKey over secp256r1.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

// PublicKey wraps an ecdsa.PublicKey over secp256r1.
type PublicKey struct {
	*ecdsa.PublicKey
}

// GenerateKey creates a new random secp256r1 key pair.
func GenerateKey() (*PrivateKey, error) {
	k, err := ecdsa.GenerateKey(Curve(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{k}, nil
}

// PrivateKeyFromBytes reconstructs a private key from its 32-byte scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, errors.New("crypto: private key must be 32 bytes")
	}
	curve := Curve()
	d := new(big.Int).SetBytes(b)
	x, y := curve.ScalarBaseMult(b)
	k := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         d,
	}
	return &PrivateKey{k}, nil
}

// Bytes returns the private key's 32-byte big-endian scalar.
func (k *PrivateKey) Bytes() []byte {
	b := make([]byte, 32)
	k.D.FillBytes(b)
	return b
}

// Public returns the corresponding public key.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// CompressedBytes encodes the public key in SEC1 compressed form
// (0x02/0x03 prefix || 32-byte X), Neo N3's on-wire ECPoint encoding.
func (p *PublicKey) CompressedBytes() []byte {
	out := make([]byte, 33)
	if p.Y.Bit(0) == 0 {
		out[0] = 0x02
	} else {
		out[0] = 0x03
	}
	p.X.FillBytes(out[1:])
	return out
}

// PublicKeyFromCompressed decodes a SEC1 compressed ECPoint.
func PublicKeyFromCompressed(b []byte) (*PublicKey, error) {
	if len(b) != 33 || (b[0] != 0x02 && b[0] != 0x03) {
		return nil, errors.New("crypto: malformed compressed public key")
	}
	params := Curve().Params()
	x := new(big.Int).SetBytes(b[1:])
	y := decompressY(params, x, b[0] == 0x03)
	if y == nil {
		return nil, errors.New("crypto: point not on curve")
	}
	return &PublicKey{&ecdsa.PublicKey{Curve: Curve(), X: x, Y: y}}, nil
}

func decompressY(curve *elliptic.CurveParams, x *big.Int, odd bool) *big.Int {
	// y^2 = x^3 - 3x + b (mod p)
	p := curve.P
	x3 := new(big.Int).Exp(x, big.NewInt(3), p)
	threeX := new(big.Int).Mul(x, big.NewInt(3))
	y2 := new(big.Int).Sub(x3, threeX)
	y2.Add(y2, curve.B)
	y2.Mod(y2, p)

	y := new(big.Int).ModSqrt(y2, p)
	if y == nil {
		return nil
	}
	if y.Bit(0) == 1 != odd {
		y.Sub(p, y)
	}
	return y
}

// ScriptHash returns the Hash160 of the public key's single-signature
// verification script (PUSHDATA1(33) followed by the compressed key, the
// form pkg/ledger's witness check accepts), as used to derive account
// addresses (§6.5).
func (p *PublicKey) ScriptHash() hashing.Hash160 {
	return hashing.Hash160Of(append([]byte{0x0C, 33}, p.CompressedBytes()...))
}

// Sign produces a deterministic-enough (crypto/rand-nonce) ECDSA
// signature over SHA-256(msg), returned as the 64-byte r||s wire format
// Neo N3 witnesses carry.
func Sign(priv *PrivateKey, msg []byte) ([]byte, error) {
	h := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, priv.PrivateKey, h[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, 64)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out, nil
}

// Verify checks a 64-byte r||s signature over SHA-256(msg).
func Verify(pub *PublicKey, msg, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	h := sha256.Sum256(msg)
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	return ecdsa.Verify(pub.PublicKey, h[:], r, s)
}
