package mempool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/chainmsg/core/chain"
	"github.com/tos-network/chainmsg/core/pow"
	"github.com/tos-network/chainmsg/core/types"
	"github.com/tos-network/chainmsg/crypto"
)

func fundedChain(t *testing.T, sender string, amount uint64) *chain.Chain {
	t.Helper()
	c := chain.New(1)
	coinbase := types.New(nil, sender, amount, nil, nil)
	tip := c.Tip()
	block := types.New(1, tip.Hash, tip.Timestamp+1, []*types.Transaction{coinbase}, 0)
	mined, err := pow.Mine(context.Background(), block, c.Difficulty())
	require.NoError(t, err)
	require.NoError(t, c.Append(mined))
	return c
}

func TestAdmitRejectsDuplicate(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.AddressOf(priv.PublicKeyBytes())
	c := fundedChain(t, sender, 10)

	tx := types.New(&sender, "other", 1, nil, priv.PublicKeyBytes())
	tx.Sign(priv)

	m := New()
	require.NoError(t, m.Admit(tx, c))
	require.ErrorIs(t, m.Admit(tx, c), ErrDuplicate)
	require.Equal(t, 1, m.Len())
}

func TestAdmitRejectsBadSignature(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.AddressOf(priv.PublicKeyBytes())
	c := fundedChain(t, sender, 10)

	tx := types.New(&sender, "other", 1, nil, priv.PublicKeyBytes())
	tx.Sign(priv)
	tx.Signature[0] ^= 0xFF

	m := New()
	err = m.Admit(tx, c)
	require.Error(t, err)
	require.Equal(t, 0, m.Len())
}

func TestAdmitRejectsInsufficientBalance(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.AddressOf(priv.PublicKeyBytes())
	c := fundedChain(t, sender, 1)

	tx := types.New(&sender, "other", 100, nil, priv.PublicKeyBytes())
	tx.Sign(priv)

	m := New()
	require.ErrorIs(t, m.Admit(tx, c), ErrInsufficientBalance)
}

func TestPurgeIncludedRemovesMinedTransactions(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.AddressOf(priv.PublicKeyBytes())
	c := fundedChain(t, sender, 10)

	tx := types.New(&sender, "other", 1, nil, priv.PublicKeyBytes())
	tx.Sign(priv)

	m := New()
	require.NoError(t, m.Admit(tx, c))

	tip := c.Tip()
	block := types.New(uint64(c.Length()), tip.Hash, tip.Timestamp+1, []*types.Transaction{tx}, 0)
	mined, err := pow.Mine(context.Background(), block, c.Difficulty())
	require.NoError(t, err)
	require.NoError(t, c.Append(mined))

	m.PurgeIncluded(c)
	require.Equal(t, 0, m.Len())
}
