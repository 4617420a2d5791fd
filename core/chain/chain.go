// Package chain holds the ordered block sequence and the balance ledger
// derived from it. Chain itself holds no lock: the Node is the sole owner
// of a Chain and serializes access to it under the node lock; Chain's
// methods assume single-writer, and readers that need a consistent
// snapshot take the same lock at the call site (see node.Node and
// sync.Manager).
package chain

import (
	"errors"

	"github.com/tos-network/chainmsg/core/types"
)

// ErrInvalidBlock is returned by Append when a candidate block is not
// well-formed or does not link onto the current tip.
var ErrInvalidBlock = errors.New("chain: invalid block")

// Chain is an ordered, append-only sequence of blocks beginning with a
// fixed genesis block, plus the difficulty parameter new blocks must
// satisfy.
type Chain struct {
	blocks     []*types.Block
	difficulty int
}

// New creates a chain containing only the genesis block.
func New(difficulty int) *Chain {
	return &Chain{
		blocks:     []*types.Block{types.Genesis()},
		difficulty: difficulty,
	}
}

// FromBlocks builds a Chain from a block sequence as given, without
// validating it (sync.Manager's MergeChain wraps a received chain this way
// so ValidateChain can check it before the chain is adopted).
func FromBlocks(blocks []*types.Block, difficulty int) *Chain {
	cp := make([]*types.Block, len(blocks))
	copy(cp, blocks)
	return &Chain{blocks: cp, difficulty: difficulty}
}

// Difficulty returns the number of leading zero hex nibbles a new block's
// hash must have.
func (c *Chain) Difficulty() int {
	return c.difficulty
}

// SetDifficulty updates the local difficulty policy. Difficulty is local
// policy, not chain-encoded consensus state.
func (c *Chain) SetDifficulty(d int) {
	c.difficulty = d
}

// Tip returns the last block of the chain.
func (c *Chain) Tip() *types.Block {
	return c.blocks[len(c.blocks)-1]
}

// Length returns the number of blocks in the chain, including genesis.
func (c *Chain) Length() int {
	return len(c.blocks)
}

// Blocks returns the chain's blocks in order. The returned slice must not
// be mutated by the caller.
func (c *Chain) Blocks() []*types.Block {
	return c.blocks
}

// Contains reports whether any block in the chain has the given hash.
func (c *Chain) Contains(hash string) bool {
	for _, b := range c.blocks {
		if b.Hash == hash {
			return true
		}
	}
	return false
}

// Append adds block to the chain if it is well-formed against the current
// difficulty and links onto the tip; otherwise it returns ErrInvalidBlock
// and leaves the chain unchanged.
func (c *Chain) Append(block *types.Block) error {
	tip := c.Tip()
	if !block.WellFormed(c.difficulty) {
		return ErrInvalidBlock
	}
	if block.PreviousHash != tip.Hash {
		return ErrInvalidBlock
	}
	if block.Timestamp <= tip.Timestamp {
		return ErrInvalidBlock
	}
	c.blocks = append(c.blocks, block)
	return nil
}

// BalanceOf computes the balance of addr across the full chain: the sum of
// amounts received minus the sum of amounts sent. Genesis contributes
// zero. This is a linear scan, cacheable but not required.
func (c *Chain) BalanceOf(addr string) int64 {
	return BalanceAcross(c.blocks, addr)
}

// BalanceAcross computes addr's balance over an explicit block slice, used
// both by Chain.BalanceOf and by the validator's incremental
// balance-non-negativity check, which needs the balance over a prefix plus
// some transactions already accepted earlier in the same block.
func BalanceAcross(blocks []*types.Block, addr string) int64 {
	var balance int64
	for _, b := range blocks {
		balance += balanceDelta(b.Transactions, addr)
	}
	return balance
}

func balanceDelta(txs []*types.Transaction, addr string) int64 {
	var balance int64
	for _, tx := range txs {
		if tx.Recipient == addr {
			balance += int64(tx.Amount)
		}
		if tx.Sender != nil && *tx.Sender == addr {
			balance -= int64(tx.Amount)
		}
	}
	return balance
}
