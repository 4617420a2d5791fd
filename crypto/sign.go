package crypto

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ErrInvalidPublicKey is returned when a public key cannot be parsed.
var ErrInvalidPublicKey = errors.New("crypto: invalid public key")

// PrivateKey is a signing keypair usable to Sign messages and to derive the
// matching public key bytes for AddressOf.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// GenerateKey creates a fresh signing keypair.
func GenerateKey() (*PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// PublicKeyBytes returns the compressed SEC1 encoding of the public key.
func (p *PrivateKey) PublicKeyBytes() []byte {
	return p.key.PubKey().SerializeCompressed()
}

// Bytes returns the raw 32-byte scalar of the private key, for keyfile
// persistence (see cmd/chainmsgkey).
func (p *PrivateKey) Bytes() []byte {
	return p.key.Serialize()
}

// PrivateKeyFromBytes reconstructs a signing keypair from the raw 32-byte
// scalar Bytes returns.
func PrivateKeyFromBytes(b []byte) *PrivateKey {
	key, _ := btcec.PrivKeyFromBytes(b)
	return &PrivateKey{key: key}
}

// Sign signs a 32-byte message digest, returning a DER-encoded signature.
func (p *PrivateKey) Sign(digest []byte) []byte {
	sig := ecdsa.Sign(p.key, digest)
	return sig.Serialize()
}

// Verify reports whether sig is a valid signature by pubKeyBytes over digest.
// It is total: malformed inputs return false rather than panicking or
// returning an error.
func Verify(pubKeyBytes, digest, sig []byte) bool {
	pub, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return signature.Verify(digest, pub)
}

// ParsePublicKey validates that pubKeyBytes decodes to a curve point,
// returning ErrInvalidPublicKey otherwise.
func ParsePublicKey(pubKeyBytes []byte) error {
	_, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return ErrInvalidPublicKey
	}
	return nil
}
