package node

import (
	"encoding/pem"
	"errors"
)

const dhPublicKeyPEMType = "X25519 PUBLIC KEY"

// dhPublicKeySize is the length of a raw X25519 public key.
const dhPublicKeySize = 32

// ErrMalformedPublicKey is returned when a REQUEST_PUBLIC_KEY reply body is
// not a well-formed PEM block of the expected type and length.
var ErrMalformedPublicKey = errors.New("node: malformed public key reply")

// encodePublicKeyPEM wraps a raw X25519 public key in a PEM envelope, the
// wire shape used for a REQUEST_PUBLIC_KEY reply body.
func encodePublicKeyPEM(pub []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  dhPublicKeyPEMType,
		Bytes: pub,
	})
}

// decodePublicKeyPEM unwraps a PEM-encoded public key back to raw bytes,
// rejecting a block of another type or a key that is not dhPublicKeySize
// bytes long.
func decodePublicKeyPEM(data []byte) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != dhPublicKeyPEMType || len(block.Bytes) != dhPublicKeySize {
		return nil, ErrMalformedPublicKey
	}
	return block.Bytes, nil
}
