package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	digest := Hash([]byte("hello chainmsg"))
	sig := priv.Sign(digest[:])

	require.True(t, Verify(priv.PublicKeyBytes(), digest[:], sig))
}

func TestVerifyRejectsFlippedByte(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	digest := Hash([]byte("hello chainmsg"))
	sig := priv.Sign(digest[:])
	sig[len(sig)-1] ^= 0xFF

	require.False(t, Verify(priv.PublicKeyBytes(), digest[:], sig))
}

func TestVerifyTotalOnMalformedInput(t *testing.T) {
	require.False(t, Verify([]byte("not a key"), []byte("digest"), []byte("sig")))
	require.False(t, Verify(nil, nil, nil))
}

func TestAddressOfIsStableAndTruncated(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	addr := AddressOf(priv.PublicKeyBytes())
	require.Len(t, addr, AddressSize)
	require.Equal(t, addr, AddressOf(priv.PublicKeyBytes()))
}

func TestDHAgreementSymmetric(t *testing.T) {
	aPriv, aPub, err := DHGenerate()
	require.NoError(t, err)
	bPriv, bPub, err := DHGenerate()
	require.NoError(t, err)

	aShared, err := DHAgree(aPriv, bPub)
	require.NoError(t, err)
	bShared, err := DHAgree(bPriv, aPub)
	require.NoError(t, err)
	require.Equal(t, aShared, bShared)

	aKey, err := KDF(aShared)
	require.NoError(t, err)
	bKey, err := KDF(bShared)
	require.NoError(t, err)
	require.Equal(t, aKey, bKey)
}

func TestAEADSealOpenRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	plaintext := []byte("a secret transfer memo")
	sealed, err := Seal(key, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	opened, err := Open(key, sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestAEADOpenRejectsTampering(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	sealed, err := Seal(key, []byte("message"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0x01

	_, err = Open(key, sealed)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}
