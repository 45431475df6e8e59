package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"

	"github.com/n3node/core/pkg/hashing"
	"golang.org/x/crypto/scrypt"
)

// NEP-2 constants, per §6.5 and the Open Question decision in
// SPEC_FULL.md to follow Neo's official NEP-2 rather than either of the
// source's two diverging implementations.
const (
	nep2Prefix1  = 0x01
	nep2Prefix2  = 0x42
	nep2Flag     = 0xE0
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 8
	scryptKeyLen = 64
)

// ErrMalformedNEP2 is returned when an encrypted-key string doesn't match
// the expected prefix/flag/length shape.
var ErrMalformedNEP2 = errors.New("crypto: malformed NEP-2 key")

// ErrWrongPassphrase is returned by DecryptNEP2 when the address checksum
// recovered after decryption does not match the one embedded in the
// ciphertext, meaning the passphrase (or the key) was wrong.
var ErrWrongPassphrase = errors.New("crypto: wrong NEP-2 passphrase")

// addressHash is the 4-byte checksum NEP-2 binds the encrypted key to:
// the first 4 bytes of SHA-256(SHA-256(address_string)).
func addressHash(priv *PrivateKey) [4]byte {
	addr := priv.Public().ScriptHash()
	addrStr := hashing.Base58CheckEncode(append([]byte{0x35}, addr[:]...))
	h1 := sha256.Sum256([]byte(addrStr))
	h2 := sha256.Sum256(h1[:])
	var out [4]byte
	copy(out[:], h2[:4])
	return out
}

// EncryptNEP2 encrypts priv under passphrase following NEP-2: derive
// scrypt(N=16384,r=8,p=8) over passphrase salted with the address hash,
// split the 64-byte result into halves, XOR the private key's two
// 16-byte blocks against the first half, then AES-256-ECB encrypt
// against the second half.
func EncryptNEP2(priv *PrivateKey, passphrase string) (string, error) {
	ah := addressHash(priv)

	derived, err := scrypt.Key([]byte(passphrase), ah[:], scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", err
	}
	derivedHalf1, derivedHalf2 := derived[:32], derived[32:]

	block, err := aes.NewCipher(derivedHalf2)
	if err != nil {
		return "", err
	}

	privBytes := priv.Bytes()
	xored := make([]byte, 32)
	for i := range xored {
		xored[i] = privBytes[i] ^ derivedHalf1[i]
	}

	encrypted := make([]byte, 32)
	ecbEncrypt(block, encrypted[:16], xored[:16])
	ecbEncrypt(block, encrypted[16:], xored[16:])

	buf := make([]byte, 0, 39)
	buf = append(buf, nep2Prefix1, nep2Prefix2, nep2Flag)
	buf = append(buf, ah[:]...)
	buf = append(buf, encrypted...)
	return hashing.Base58CheckEncode(buf), nil
}

// DecryptNEP2 reverses EncryptNEP2, returning ErrWrongPassphrase if the
// recovered key's address hash doesn't match the one embedded in enc.
func DecryptNEP2(enc, passphrase string) (*PrivateKey, error) {
	buf, err := hashing.Base58CheckDecode(enc)
	if err != nil {
		return nil, err
	}
	if len(buf) != 39 || buf[0] != nep2Prefix1 || buf[1] != nep2Prefix2 || buf[2] != nep2Flag {
		return nil, ErrMalformedNEP2
	}
	var ah [4]byte
	copy(ah[:], buf[3:7])
	encrypted := buf[7:39]

	derived, err := scrypt.Key([]byte(passphrase), ah[:], scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, err
	}
	derivedHalf1, derivedHalf2 := derived[:32], derived[32:]

	block, err := aes.NewCipher(derivedHalf2)
	if err != nil {
		return nil, err
	}

	xored := make([]byte, 32)
	ecbDecrypt(block, xored[:16], encrypted[:16])
	ecbDecrypt(block, xored[16:], encrypted[16:])

	privBytes := make([]byte, 32)
	for i := range privBytes {
		privBytes[i] = xored[i] ^ derivedHalf1[i]
	}

	priv, err := PrivateKeyFromBytes(privBytes)
	if err != nil {
		return nil, err
	}
	got := addressHash(priv)
	if !bytes.Equal(got[:], ah[:]) {
		return nil, ErrWrongPassphrase
	}
	return priv, nil
}

// ecbEncrypt/ecbDecrypt apply a single AES block operation, NEP-2's
// "AES-256 in ECB mode, no padding" requirement over exactly two
// 16-byte blocks — too small a primitive to justify importing a
// general-purpose ECB-mode package.
func ecbEncrypt(block cipher.Block, dst, src []byte) { block.Encrypt(dst, src) }
func ecbDecrypt(block cipher.Block, dst, src []byte) { block.Decrypt(dst, src) }
