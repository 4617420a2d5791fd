// Package mempool holds the set of transactions not yet included in any
// block. Like chain.Chain, Mempool holds no internal lock — it is guarded
// by the node lock at the call site.
package mempool

import (
	"errors"

	"github.com/tos-network/chainmsg/core/chain"
	"github.com/tos-network/chainmsg/core/types"
)

// ErrDuplicate is returned by Admit when a transaction with the same hash
// is already pending.
var ErrDuplicate = errors.New("mempool: duplicate transaction")

// ErrInsufficientBalance is returned by Admit when a non-coinbase sender's
// committed-chain balance cannot cover the transaction amount.
var ErrInsufficientBalance = errors.New("mempool: insufficient balance")

// Mempool is a set of pending transactions deduplicated by hash.
type Mempool struct {
	byHash map[string]*types.Transaction
}

// New creates an empty mempool.
func New() *Mempool {
	return &Mempool{byHash: make(map[string]*types.Transaction)}
}

// Admit validates tx in isolation and, for non-coinbase transactions,
// checks that the sender's balance on c (the committed chain — pending
// transactions are not considered) is at least tx.Amount. On success tx is
// added to the pool; duplicates and invalid/infeasible transactions are
// rejected without mutating the pool.
func (m *Mempool) Admit(tx *types.Transaction, c *chain.Chain) error {
	hash := tx.Hash()
	if _, ok := m.byHash[hash]; ok {
		return ErrDuplicate
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	if !tx.IsCoinbase() {
		if c.BalanceOf(*tx.Sender) < int64(tx.Amount) {
			return ErrInsufficientBalance
		}
	}
	m.byHash[hash] = tx
	return nil
}

// Contains reports whether a transaction with this hash is pending.
func (m *Mempool) Contains(hash string) bool {
	_, ok := m.byHash[hash]
	return ok
}

// Remove drops the given hashes from the pool, e.g. once their
// transactions have been included in an accepted block.
func (m *Mempool) Remove(hashes ...string) {
	for _, h := range hashes {
		delete(m.byHash, h)
	}
}

// PurgeIncluded removes every pending transaction whose hash appears in
// any block of c (called after MergeChain replaces the local chain).
func (m *Mempool) PurgeIncluded(c *chain.Chain) {
	included := make(map[string]struct{})
	for _, b := range c.Blocks() {
		for _, tx := range b.Transactions {
			included[tx.Hash()] = struct{}{}
		}
	}
	for h := range m.byHash {
		if _, ok := included[h]; ok {
			delete(m.byHash, h)
		}
	}
}

// List returns a snapshot of pending transactions in no particular order.
func (m *Mempool) List() []*types.Transaction {
	out := make([]*types.Transaction, 0, len(m.byHash))
	for _, tx := range m.byHash {
		out = append(out, tx)
	}
	return out
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int {
	return len(m.byHash)
}
