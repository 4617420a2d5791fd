// Package crypto adapts the concrete cryptographic primitives the node
// depends on (hashing, signatures, key agreement, authenticated encryption)
// behind a small set of contracts so the rest of the repository never talks
// to a specific algorithm directly.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSize is the length in bytes of a digest produced by Hash.
const HashSize = sha256.Size

// AddressSize is the number of hex characters an address is truncated to.
const AddressSize = 32

// Hash returns the SHA-256 digest of b.
func Hash(b []byte) [HashSize]byte {
	return sha256.Sum256(b)
}

// HashHex returns the lowercase hex encoding of Hash(b).
func HashHex(b []byte) string {
	h := Hash(b)
	return hex.EncodeToString(h[:])
}

// AddressOf derives the address of a signer from its public key bytes: the
// first 32 hex characters of SHA-256(pubKeyBytes).
func AddressOf(pubKeyBytes []byte) string {
	h := Hash(pubKeyBytes)
	return hex.EncodeToString(h[:])[:AddressSize]
}
