// Package keyfile persists a node's signing key to disk, encrypted under a
// passphrase. Shaped like the accounts/keystore package (a JSON envelope
// holding an address plus a "crypto" section with KDF parameters and a
// ciphertext) but reduced to this repository's single key type and a much
// smaller parameter set — there is no multi-signer abstraction here, just
// one secp256k1 keypair per node.
package keyfile

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/scrypt"

	"github.com/tos-network/chainmsg/crypto"
)

// scrypt parameters. These defaults are deliberately conservative.
const (
	scryptN = 1 << 18
	scryptR = 8
	scryptP = 1

	saltLen = 16
)

// ErrDecryption is returned by Load when the passphrase is wrong or the
// file is corrupt: AEAD authentication failed.
var ErrDecryption = errors.New("keyfile: decryption failed (wrong passphrase or corrupt file)")

type cryptoParams struct {
	Ciphertext string `json:"ciphertext"`
	Salt       string `json:"salt"`
	N          int    `json:"n"`
	R          int    `json:"r"`
	P          int    `json:"p"`
}

type encryptedKey struct {
	Address string       `json:"address"`
	Crypto  cryptoParams `json:"crypto"`
}

// Generate creates a fresh signing keypair, encrypts it under passphrase,
// and writes it to path (0600). It returns the new key so the caller can
// use it immediately without a separate Load.
func Generate(path, passphrase string) (*crypto.PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("keyfile: generating key: %w", err)
	}
	if err := save(path, passphrase, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Load decrypts the signing keypair stored at path under passphrase.
func Load(path, passphrase string) (*crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyfile: reading %s: %w", path, err)
	}
	var enc encryptedKey
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("keyfile: parsing %s: %w", path, err)
	}

	salt, err := hex.DecodeString(enc.Crypto.Salt)
	if err != nil {
		return nil, fmt.Errorf("keyfile: malformed salt: %w", err)
	}
	sealed, err := hex.DecodeString(enc.Crypto.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("keyfile: malformed ciphertext: %w", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, enc.Crypto.N, enc.Crypto.R, enc.Crypto.P, 32)
	if err != nil {
		return nil, fmt.Errorf("keyfile: scrypt: %w", err)
	}
	var aeadKey [32]byte
	copy(aeadKey[:], derived)

	raw, err := crypto.Open(aeadKey, sealed)
	if err != nil {
		return nil, ErrDecryption
	}
	key := crypto.PrivateKeyFromBytes(raw)
	if crypto.AddressOf(key.PublicKeyBytes()) != enc.Address {
		return nil, ErrDecryption
	}
	return key, nil
}

func save(path, passphrase string, key *crypto.PrivateKey) error {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return fmt.Errorf("keyfile: scrypt: %w", err)
	}
	var aeadKey [32]byte
	copy(aeadKey[:], derived)

	sealed, err := crypto.Seal(aeadKey, key.Bytes())
	if err != nil {
		return err
	}

	enc := encryptedKey{
		Address: crypto.AddressOf(key.PublicKeyBytes()),
		Crypto: cryptoParams{
			Ciphertext: hex.EncodeToString(sealed),
			Salt:       hex.EncodeToString(salt),
			N:          scryptN,
			R:          scryptR,
			P:          scryptP,
		},
	}
	data, err := json.MarshalIndent(enc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
