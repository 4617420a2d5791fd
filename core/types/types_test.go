package types

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/chainmsg/crypto"
)

func signedTransferTx(t *testing.T) (*Transaction, *crypto.PrivateKey) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.AddressOf(priv.PublicKeyBytes())
	tx := New(&sender, "recipient-address", 42, []byte("hi"), priv.PublicKeyBytes())
	tx.Sign(priv)
	return tx, priv
}

func TestTransactionSignVerifyRoundTrip(t *testing.T) {
	tx, _ := signedTransferTx(t)
	require.True(t, tx.Verify())
	require.NoError(t, tx.Validate())
}

func TestTransactionParseSerializeRoundTrip(t *testing.T) {
	tx, _ := signedTransferTx(t)
	data, err := tx.Serialize()
	require.NoError(t, err)

	parsed, err := ParseTransaction(data)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), parsed.Hash())
	require.True(t, parsed.Verify())
}

func TestTransactionHashExcludesSignature(t *testing.T) {
	tx, _ := signedTransferTx(t)
	h1 := tx.Hash()
	tx.Signature[len(tx.Signature)-1] ^= 0x01 // different signature bytes
	h2 := tx.Hash()
	require.Equal(t, h1, h2)
}

func TestCoinbaseSkipsSignatureChecks(t *testing.T) {
	tx := NewCoinbase("miner-address")
	require.True(t, tx.Verify())
	require.NoError(t, tx.Validate())
}

func TestParseRejectsMalformedHex(t *testing.T) {
	_, err := ParseTransaction([]byte(`{"sender":null,"recipient":"r","amount":1,"content":"zz","signer_public_key":null,"signature":null}`))
	require.ErrorIs(t, err, ErrMalformedTx)
}

func TestParseRejectsMissingSignatureForSender(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.AddressOf(priv.PublicKeyBytes())
	pub := hex.EncodeToString(priv.PublicKeyBytes())
	body := []byte(`{"sender":"` + sender + `","recipient":"r","amount":1,"content":"","signer_public_key":"` + pub + `","signature":null}`)
	_, err = ParseTransaction(body)
	require.ErrorIs(t, err, ErrMalformedTx)
}

func TestGenesisDeterminism(t *testing.T) {
	g := Genesis()
	require.Equal(t, uint64(0), g.Index)
	require.Equal(t, GenesisPreviousHash, g.PreviousHash)
	require.Equal(t, int64(0), g.Timestamp)
	require.Empty(t, g.Transactions)
	require.True(t, g.WellFormed(0))
}

func TestBlockParseSerializeRoundTrip(t *testing.T) {
	tx, _ := signedTransferTx(t)
	b := New(1, Genesis().Hash, 1000, []*Transaction{tx}, 0)

	data, err := b.Serialize()
	require.NoError(t, err)

	parsed, err := ParseBlock(data)
	require.NoError(t, err)
	require.Equal(t, b.Hash, parsed.Hash)
	require.Equal(t, b.Recompute(), parsed.Recompute())
}

func TestBlockHashChangesWithTransactionSignature(t *testing.T) {
	tx, priv := signedTransferTx(t)
	b1 := New(1, Genesis().Hash, 1000, []*Transaction{tx}, 0)

	tx2 := New(tx.Sender, tx.Recipient, tx.Amount, tx.Content, tx.SignerPublicKey)
	tx2.Sign(priv)
	tx2.Signature[len(tx2.Signature)-1] ^= 0x01
	b2 := New(1, Genesis().Hash, 1000, []*Transaction{tx2}, 0)

	// Same logical transaction, different signature bytes (signing is
	// deterministic, RFC 6979, so the copy's signature is altered by hand)
	// -> different block preimage, since the signature is included in
	// block hashing.
	require.NotEqual(t, b1.Recompute(), b2.Recompute())
}
