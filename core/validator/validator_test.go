package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/chainmsg/core/chain"
	"github.com/tos-network/chainmsg/core/pow"
	"github.com/tos-network/chainmsg/core/types"
	"github.com/tos-network/chainmsg/crypto"
)

func mineNext(t *testing.T, c *chain.Chain, txs []*types.Transaction) *types.Block {
	t.Helper()
	tip := c.Tip()
	block := types.New(uint64(c.Length()), tip.Hash, tip.Timestamp+1, txs, 0)
	mined, err := pow.Mine(context.Background(), block, c.Difficulty())
	require.NoError(t, err)
	return mined
}

func TestMineOneBlock(t *testing.T) {
	c := chain.New(2)
	coinbase := types.NewCoinbase("R")
	block := mineNext(t, c, []*types.Transaction{coinbase})

	require.True(t, ValidateBlock(block, c.Tip(), c.Difficulty()))
	require.NoError(t, c.Append(block))
	require.Equal(t, 2, c.Length())
	require.Equal(t, "00", block.Hash[:2])
	require.True(t, ValidateChain(c))
	require.EqualValues(t, 1, c.BalanceOf("R"))
}

func TestValidateChainRejectsOverspend(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.AddressOf(priv.PublicKeyBytes())

	c := chain.New(1)
	coinbase := types.NewCoinbase(sender)
	b1 := mineNext(t, c, []*types.Transaction{coinbase})
	require.NoError(t, c.Append(b1))

	overspend := types.New(&sender, "other", 100, nil, priv.PublicKeyBytes())
	overspend.Sign(priv)
	b2 := mineNext(t, c, []*types.Transaction{overspend})

	// Block itself is well-formed and the transaction signs correctly, but
	// it is not appended to a chain (no balance check at Append time) —
	// ValidateChain is where the non-negative-balance invariant is
	// enforced, over the chain that WOULD result from appending b2.
	grown := chain.FromBlocks(append(append([]*types.Block{}, c.Blocks()...), b2), c.Difficulty())
	require.False(t, ValidateChain(grown))
}

func TestValidateBlockRejectsBadCoinbaseAmount(t *testing.T) {
	c := chain.New(1)
	bad := types.NewCoinbase("R")
	bad.Amount = 5
	block := mineNext(t, c, []*types.Transaction{bad})
	require.False(t, ValidateBlock(block, c.Tip(), c.Difficulty()))
}

func TestValidateBlockRejectsStaleTimestamp(t *testing.T) {
	c := chain.New(1)
	tip := c.Tip()
	block := types.New(1, tip.Hash, tip.Timestamp, nil, 0)
	mined, err := pow.Mine(context.Background(), block, c.Difficulty())
	require.NoError(t, err)
	require.False(t, ValidateBlock(mined, tip, c.Difficulty()))
}

func TestValidateBlockRejectsMultipleCoinbases(t *testing.T) {
	c := chain.New(1)
	block := mineNext(t, c, []*types.Transaction{
		types.NewCoinbase("R1"),
		types.NewCoinbase("R2"),
	})
	require.False(t, ValidateBlock(block, c.Tip(), c.Difficulty()))
}

// TestValidateChainRejectsForgedGenesis guards against a peer fabricating an
// alternate genesis block: genesis is difficulty-exempt, so any nonce
// produces a structurally well-formed block unless the hash is pinned to
// the one canonical types.Genesis().
func TestValidateChainRejectsForgedGenesis(t *testing.T) {
	forged := types.Genesis()
	forged.Nonce = 1
	forged.Hash = forged.Recompute()
	require.NotEqual(t, types.Genesis().Hash, forged.Hash)

	c := chain.FromBlocks([]*types.Block{forged}, 1)
	require.False(t, ValidateChain(c))
}

// TestValidateChainAcceptsInBlockReceiveThenSpend covers a sender who
// receives a transfer and spends it within the same block: the running
// in-block balance must credit earlier receipts, not just debit earlier
// spends, or a legitimate longer chain from a peer would be rejected.
func TestValidateChainAcceptsInBlockReceiveThenSpend(t *testing.T) {
	funder, err := crypto.GenerateKey()
	require.NoError(t, err)
	funderAddr := crypto.AddressOf(funder.PublicKeyBytes())

	spender, err := crypto.GenerateKey()
	require.NoError(t, err)
	spenderAddr := crypto.AddressOf(spender.PublicKeyBytes())

	c := chain.New(1)
	coinbase := types.NewCoinbase(funderAddr)
	b1 := mineNext(t, c, []*types.Transaction{coinbase})
	require.NoError(t, c.Append(b1))
	require.EqualValues(t, 1, c.BalanceOf(funderAddr))

	fund := types.New(&funderAddr, spenderAddr, 1, nil, funder.PublicKeyBytes())
	fund.Sign(funder)
	spend := types.New(&spenderAddr, "other", 1, nil, spender.PublicKeyBytes())
	spend.Sign(spender)

	b2 := mineNext(t, c, []*types.Transaction{fund, spend})
	require.True(t, ValidateBlock(b2, c.Tip(), c.Difficulty()))
	require.NoError(t, c.Append(b2))
	require.True(t, ValidateChain(c))
}
