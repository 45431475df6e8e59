package native

import "github.com/n3node/core/pkg/hashing"

func doubleSHA256(b []byte) [32]byte {
	first := hashing.SHA256(b)
	return hashing.SHA256(first[:])
}
