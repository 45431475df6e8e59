package crypto

import (
	"errors"

	"github.com/n3node/core/pkg/hashing"
)

// wifVersion is the address-version byte Neo N3 private-key export uses
// (§6.5: "base58check of 0x80 || priv(32) || 0x01").
const wifVersion = 0x80

// ErrMalformedWIF is returned when a WIF string doesn't decode to the
// expected length/version/compression-flag shape.
var ErrMalformedWIF = errors.New("crypto: malformed WIF")

// EncodeWIF exports priv in Wallet Import Format: base58check of
// 0x80 || priv(32) || 0x01 (compressed-public-key flag).
func EncodeWIF(priv *PrivateKey) string {
	buf := make([]byte, 1+32+1)
	buf[0] = wifVersion
	copy(buf[1:33], priv.Bytes())
	buf[33] = 0x01
	return hashing.Base58CheckEncode(buf)
}

// DecodeWIF parses a WIF string back into a private key.
func DecodeWIF(wif string) (*PrivateKey, error) {
	buf, err := hashing.Base58CheckDecode(wif)
	if err != nil {
		return nil, err
	}
	if len(buf) != 34 || buf[0] != wifVersion || buf[33] != 0x01 {
		return nil, ErrMalformedWIF
	}
	return PrivateKeyFromBytes(buf[1:33])
}
