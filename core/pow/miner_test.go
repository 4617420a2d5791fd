package pow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/chainmsg/core/types"
)

func TestMineSatisfiesDifficulty(t *testing.T) {
	coinbase := types.NewCoinbase("miner-addr")
	genesis := types.Genesis()
	block := types.New(1, genesis.Hash, genesis.Timestamp+1, []*types.Transaction{coinbase}, 0)

	mined, err := Mine(context.Background(), block, 2)
	require.NoError(t, err)
	require.True(t, mined.HasValidPoW(2))
	require.Equal(t, mined.Recompute(), mined.Hash)
}

func TestMineCancellation(t *testing.T) {
	genesis := types.Genesis()
	block := types.New(1, genesis.Hash, genesis.Timestamp+1, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Mine(ctx, block, 64) // unreachable difficulty forces the cancellation check
	require.ErrorIs(t, err, ErrCancelled)
}

func TestAdjustDifficulty(t *testing.T) {
	require.Equal(t, 3, Adjust(1*time.Second, 2))
	require.Equal(t, 1, Adjust(25*time.Second, 2))
	require.Equal(t, 1, Adjust(25*time.Second, 1))
	require.Equal(t, 2, Adjust(10*time.Second, 2))
}
