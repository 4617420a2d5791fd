package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/chainmsg/core/chain"
	"github.com/tos-network/chainmsg/core/mempool"
	"github.com/tos-network/chainmsg/core/pow"
	"github.com/tos-network/chainmsg/core/types"
	"github.com/tos-network/chainmsg/p2p/socket"
)

func mine(t *testing.T, c *chain.Chain, minerAddr string) *types.Block {
	t.Helper()
	tip := c.Tip()
	block := types.New(tip.Index+1, tip.Hash, tip.Timestamp+1, []*types.Transaction{types.NewCoinbase(minerAddr)}, 0)
	mined, err := pow.Mine(context.Background(), block, c.Difficulty())
	require.NoError(t, err)
	return mined
}

func newState() (*chain.Chain, *mempool.Mempool) {
	return chain.New(1), mempool.New()
}

func TestMergeChainRejectsInvalidCandidateEvenIfLonger(t *testing.T) {
	c, mp := newState()
	state := &State{Chain: c, Mempool: mp}
	locked := func(fn func(*State)) { fn(state) }

	m := New(socket.New("127.0.0.1", 4, nil), locked)

	// A longer candidate whose second block is not well-formed: validating
	// the *local* chain instead of this one would let it through, since the
	// local chain (genesis only) always validates trivially.
	bad := types.New(1, c.Tip().Hash, 1, nil, 0)
	bad.Hash = "not-a-real-hash"
	candidate := []*types.Block{c.Tip(), bad}

	m.MergeChain(candidate)

	require.Equal(t, 1, state.Chain.Length(), "invalid longer chain must not replace the local one")
}

func TestMergeChainAcceptsLongerValidChain(t *testing.T) {
	c, mp := newState()
	state := &State{Chain: c, Mempool: mp}
	locked := func(fn func(*State)) { fn(state) }
	m := New(socket.New("127.0.0.1", 4, nil), locked)

	longer := chain.New(1)
	block := mine(t, longer, "miner-addr")
	require.NoError(t, longer.Append(block))

	m.MergeChain(longer.Blocks())

	require.Equal(t, 2, state.Chain.Length())
}

func TestHandleNewBlockAppendsOnceAndDropsDuplicate(t *testing.T) {
	c, mp := newState()
	state := &State{Chain: c, Mempool: mp}
	locked := func(fn func(*State)) { fn(state) }

	sock := socket.New("127.0.0.1", 4, nil)
	m := New(sock, locked)

	block := mine(t, c, "miner-addr")
	data, err := block.Serialize()
	require.NoError(t, err)

	// HandleNewBlock with a nil "from" connection should still append the
	// block locally without panicking on broadcast (no connections
	// registered).
	m.HandleNewBlock(data, nil)
	require.Equal(t, 2, state.Chain.Length())

	// A second delivery of the same block is a duplicate and must not be
	// appended twice.
	m.HandleNewBlock(data, nil)
	require.Equal(t, 2, state.Chain.Length())
}

func TestLoopStopsOnDone(t *testing.T) {
	c, mp := newState()
	state := &State{Chain: c, Mempool: mp}
	locked := func(fn func(*State)) { fn(state) }
	m := New(socket.New("127.0.0.1", 4, nil), locked)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		m.Loop(10*time.Millisecond, done)
		close(stopped)
	}()
	close(done)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Loop did not stop after done was closed")
	}
}
