package vm

import "crypto/sha256"

// SyscallID derives the 4-byte little-endian interop identifier a SYSCALL
// operand encodes, matching Neo N3's convention of hashing the ASCII
// service name (e.g. "System.Runtime.Notify") and keeping the first four
// bytes of SHA-256 as a little-endian uint32.
func SyscallID(name string) uint32 {
	sum := sha256.Sum256([]byte(name))
	return uint32(sum[0]) | uint32(sum[1])<<8 | uint32(sum[2])<<16 | uint32(sum[3])<<24
}
