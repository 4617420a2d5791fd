package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// ErrKeyAgreementFailed is returned when a shared secret could not be derived.
var ErrKeyAgreementFailed = errors.New("crypto: key agreement failed")

// kdfInfo is a fixed context string mixed into every derived symmetric key,
// domain-separating it from any other use of the same shared secret.
var kdfInfo = []byte("chainmsg/message-key/v1")

// DHGenerate creates a fresh X25519 keypair for key agreement.
func DHGenerate() (priv, pub []byte, err error) {
	priv = make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(priv); err != nil {
		return nil, nil, err
	}
	pub, err = curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

// DHAgree computes the shared secret between a local private key and a
// peer's public key.
func DHAgree(priv, peerPub []byte) ([]byte, error) {
	shared, err := curve25519.X25519(priv, peerPub)
	if err != nil {
		return nil, ErrKeyAgreementFailed
	}
	return shared, nil
}

// KDF stretches a shared secret into a 32-byte symmetric key suitable for
// AEAD sealing.
func KDF(shared []byte) ([32]byte, error) {
	var key [32]byte
	r := hkdf.New(sha256.New, shared, nil, kdfInfo)
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, err
	}
	return key, nil
}
