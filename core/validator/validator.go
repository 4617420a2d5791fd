// Package validator holds the pure functions that decide whether a block
// or a chain is acceptable. It carries no state beyond configuration (a
// difficulty parameter), the shape a consensus engine commonly takes,
// reduced here to a simple nonce-search PoW rule.
package validator

import (
	"github.com/tos-network/chainmsg/core/chain"
	"github.com/tos-network/chainmsg/core/types"
)

// ValidateBlock reports whether block is acceptable as the next block
// after prev under difficulty: the stored hash matches the recomputed
// hash, the hash has at least `difficulty` leading zero hex nibbles, the
// linkage and strictly-increasing timestamp hold, and every transaction is
// either a well-formed coinbase (amount == types.MiningReward, at most one
// per block) or independently valid per Transaction.Validate.
func ValidateBlock(block, prev *types.Block, difficulty int) bool {
	if !block.WellFormed(difficulty) {
		return false
	}
	if block.PreviousHash != prev.Hash {
		return false
	}
	if block.Timestamp <= prev.Timestamp {
		return false
	}
	coinbases := 0
	for _, tx := range block.Transactions {
		if tx.IsCoinbase() {
			coinbases++
			if coinbases > 1 {
				return false
			}
			if tx.Amount != types.MiningReward {
				return false
			}
			continue
		}
		if tx.Validate() != nil {
			return false
		}
	}
	return true
}

// ValidateChain checks that blocks[0] is the one canonical genesis block,
// then folds ValidateBlock from genesis forward and additionally checks
// that no non-coinbase transaction ever drives its sender's balance below
// zero, considering balance across all prior blocks plus any transactions
// earlier in the same block.
func ValidateChain(c *chain.Chain) bool {
	blocks := c.Blocks()
	if len(blocks) == 0 {
		return false
	}
	genesis := blocks[0]
	if genesis.PreviousHash != types.GenesisPreviousHash || genesis.Timestamp != 0 || len(genesis.Transactions) != 0 {
		return false
	}
	if !genesis.WellFormed(0) {
		return false
	}
	// Genesis is fixed (spec.md §3): difficulty-exemption alone would let a
	// peer fabricate an alternate genesis with an arbitrary nonce and grow a
	// longer chain on top of it. Pin it to the one canonical hash.
	if genesis.Hash != types.Genesis().Hash {
		return false
	}

	for i := 1; i < len(blocks); i++ {
		if !ValidateBlock(blocks[i], blocks[i-1], c.Difficulty()) {
			return false
		}
		if !balancesStayNonNegative(blocks[:i], blocks[i]) {
			return false
		}
	}
	return true
}

// balancesStayNonNegative checks every non-coinbase transaction in block
// against the balance of its sender accumulated over priorBlocks plus every
// transaction earlier in block itself — both the credits and the debits,
// since a sender can receive in one in-block transaction and spend it in a
// later one.
func balancesStayNonNegative(priorBlocks []*types.Block, block *types.Block) bool {
	delta := map[string]int64{}
	for _, tx := range block.Transactions {
		if !tx.IsCoinbase() {
			sender := *tx.Sender
			balance := chain.BalanceAcross(priorBlocks, sender) + delta[sender]
			if balance-int64(tx.Amount) < 0 {
				return false
			}
			delta[sender] -= int64(tx.Amount)
		}
		delta[tx.Recipient] += int64(tx.Amount)
	}
	return true
}
