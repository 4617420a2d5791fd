// Package sync implements the Sync Manager: inbound frame handlers for
// chain/block/transaction gossip, outbound chain requests, and the periodic
// sync loop that keeps a peer set converged on the longest valid chain. It
// holds only a reference back to the owning Node's locked state, shaped
// like tos/sync.go: a small manager struct wired to the blockchain/peer-set
// it serves, with one method per inbound message.
package sync

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/tos-network/chainmsg/core/chain"
	"github.com/tos-network/chainmsg/core/mempool"
	"github.com/tos-network/chainmsg/core/types"
	"github.com/tos-network/chainmsg/core/validator"
	"github.com/tos-network/chainmsg/log"
	"github.com/tos-network/chainmsg/p2p/socket"
)

var logger = log.New("sync")

// State holds the Node-owned data a Manager reads and mutates under the
// caller's lock. Manager holds no mutex of its own: its exported methods
// reach State only through the locked function given to New, which takes
// the node lock, so they are called without that lock held.
type State struct {
	Chain   *chain.Chain
	Mempool *mempool.Mempool
}

// Manager implements socket.Handler's chain/block/tx tags. INCOME_PORT and
// REQUEST_PUBLIC_KEY are handled by node.Node directly; every other tag is
// passed to Manager, which acts on the five chain-gossip tags only.
type Manager struct {
	socket *socket.Socket
	locked func(func(*State))
}

// New creates a Manager that dispatches gossip frames against whatever
// *State the supplied locked function exposes. locked must run fn with the
// node lock held and release it before returning: operations held under
// the lock must stay short and non-blocking, and network I/O must never
// happen with the lock held.
func New(sock *socket.Socket, locked func(func(*State))) *Manager {
	return &Manager{socket: sock, locked: locked}
}

// HandleFrame dispatches a single inbound frame by tag. Frames outside the
// five tags Manager understands (CHAIN_LENGTH replies and unknown tags
// included) are ignored and not forwarded.
func (m *Manager) HandleFrame(conn *socket.Conn, f socket.Frame) {
	switch f.Tag {
	case socket.TagNewBlock:
		m.HandleNewBlock(f.Body, conn)
	case socket.TagNewTransaction:
		m.HandleNewTransaction(f.Body, conn)
	case socket.TagRequestChain:
		m.HandleRequestChain(conn)
	case socket.TagRequestChainLength:
		m.HandleRequestChainLength(conn)
	case socket.TagBlockchain:
		m.HandleBlockchain(f.Body)
	}
}

// HandleNewBlock parses body as a Block; if its hash is already known it is
// dropped, otherwise it is validated against the current tip and, on
// success, appended and re-broadcast to every peer except from.
func (m *Manager) HandleNewBlock(body []byte, from *socket.Conn) {
	block, err := types.ParseBlock(body)
	if err != nil {
		logger.Debug("sync: malformed NEW_BLOCK", "err", err)
		return
	}

	var toBroadcast *types.Block
	m.locked(func(s *State) {
		if s.Chain.Contains(block.Hash) {
			return
		}
		if !validator.ValidateBlock(block, s.Chain.Tip(), s.Chain.Difficulty()) {
			logger.Debug("sync: rejecting invalid block", "hash", block.Hash)
			return
		}
		if err := s.Chain.Append(block); err != nil {
			logger.Debug("sync: append failed after validation passed", "err", err)
			return
		}
		s.Mempool.PurgeIncluded(s.Chain)
		toBroadcast = block
		if from != nil {
			from.MarkKnownBlock(block.Hash)
		}
	})

	if toBroadcast != nil {
		m.broadcastBlock(toBroadcast, from)
	}
}

// HandleNewTransaction parses body as a Transaction; if already pending it
// is dropped, otherwise it is admitted to the mempool (validity + balance
// feasibility) and, on success, re-broadcast to every peer except from.
func (m *Manager) HandleNewTransaction(body []byte, from *socket.Conn) {
	tx, err := types.ParseTransaction(body)
	if err != nil {
		logger.Debug("sync: malformed NEW_TRANSACTION", "err", err)
		return
	}

	var toBroadcast *types.Transaction
	m.locked(func(s *State) {
		if s.Mempool.Contains(tx.Hash()) {
			return
		}
		if err := s.Mempool.Admit(tx, s.Chain); err != nil {
			logger.Debug("sync: rejecting transaction", "err", err)
			return
		}
		toBroadcast = tx
		if from != nil {
			from.MarkKnownTransaction(tx.Hash())
		}
	})

	if toBroadcast != nil {
		m.broadcastTransaction(toBroadcast, from)
	}
}

// HandleRequestChain replies to conn with a BLOCKCHAIN frame carrying the
// full serialized chain.
func (m *Manager) HandleRequestChain(conn *socket.Conn) {
	var blocks []*types.Block
	m.locked(func(s *State) {
		blocks = append(blocks, s.Chain.Blocks()...)
	})

	data, err := json.Marshal(blocks)
	if err != nil {
		logger.Error("sync: failed to serialize chain", "err", err)
		return
	}
	if err := conn.Send(socket.Frame{Tag: socket.TagBlockchain, Body: data}); err != nil {
		logger.Debug("sync: failed to send BLOCKCHAIN reply", "err", err)
	}
}

// HandleRequestChainLength replies to conn with the local chain length as
// decimal ASCII, letting a peer decide whether a full REQUEST_CHAIN round
// trip is worth the bandwidth.
func (m *Manager) HandleRequestChainLength(conn *socket.Conn) {
	var length int
	m.locked(func(s *State) {
		length = s.Chain.Length()
	})
	body := []byte(strconv.Itoa(length))
	if err := conn.Send(socket.Frame{Tag: socket.TagChainLength, Body: body}); err != nil {
		logger.Debug("sync: failed to send CHAIN_LENGTH reply", "err", err)
	}
}

// HandleBlockchain parses body as a JSON array of Block and hands it to
// MergeChain.
func (m *Manager) HandleBlockchain(body []byte) {
	var blocks []*types.Block
	if err := json.Unmarshal(body, &blocks); err != nil {
		logger.Debug("sync: malformed BLOCKCHAIN", "err", err)
		return
	}
	for _, b := range blocks {
		if b == nil {
			logger.Debug("sync: malformed BLOCKCHAIN: nil block")
			return
		}
	}
	m.MergeChain(blocks)
}

// MergeChain replaces the local chain with received if it is both longer
// and valid, purging mempool entries the new chain now includes.
//
// Validating the *local* chain in this code path instead of the received
// one would let an attacker's short, invalid chain through as long as the
// node's own (already-trusted) chain happens to validate — the length
// comparison would be the only real check surviving. ValidateChain always
// runs against the candidate chain instead.
func (m *Manager) MergeChain(received []*types.Block) {
	m.locked(func(s *State) {
		if len(received) <= s.Chain.Length() {
			return
		}
		candidate := chain.FromBlocks(received, s.Chain.Difficulty())
		if !validator.ValidateChain(candidate) {
			logger.Debug("sync: discarding invalid candidate chain", "length", len(received))
			return
		}
		s.Chain = candidate
		s.Mempool.PurgeIncluded(s.Chain)
	})
}

// RequestChain sends REQUEST_CHAIN to conn; the reply arrives asynchronously
// through HandleBlockchain on the same connection's read loop.
func (m *Manager) RequestChain(conn *socket.Conn) error {
	return conn.Send(socket.Frame{Tag: socket.TagRequestChain})
}

// BroadcastBlock frames and fans block out to every connection on the
// socket except those that already know it.
func (m *Manager) BroadcastBlock(block *types.Block) {
	m.broadcastBlock(block, nil)
}

func (m *Manager) broadcastBlock(block *types.Block, except *socket.Conn) {
	data, err := block.Serialize()
	if err != nil {
		logger.Error("sync: failed to serialize block for broadcast", "err", err)
		return
	}
	frame := socket.Frame{Tag: socket.TagNewBlock, Body: data}
	for _, conn := range m.socket.All() {
		if conn == except || conn.KnownBlock(block.Hash) {
			continue
		}
		if err := conn.Send(frame); err != nil {
			logger.Debug("sync: block broadcast write failed", "peer", conn.Key(), "err", err)
			continue
		}
		conn.MarkKnownBlock(block.Hash)
	}
}

// BroadcastTransaction frames and fans tx out to every connection on the
// socket except those that already know it.
func (m *Manager) BroadcastTransaction(tx *types.Transaction) {
	m.broadcastTransaction(tx, nil)
}

func (m *Manager) broadcastTransaction(tx *types.Transaction, except *socket.Conn) {
	data, err := tx.Serialize()
	if err != nil {
		logger.Error("sync: failed to serialize transaction for broadcast", "err", err)
		return
	}
	frame := socket.Frame{Tag: socket.TagNewTransaction, Body: data}
	hash := tx.Hash()
	for _, conn := range m.socket.All() {
		if conn == except || conn.KnownTransaction(hash) {
			continue
		}
		if err := conn.Send(frame); err != nil {
			logger.Debug("sync: transaction broadcast write failed", "peer", conn.Key(), "err", err)
			continue
		}
		conn.MarkKnownTransaction(hash)
	}
}

// Loop runs RequestChain against every connected peer every interval, until
// done is closed.
func (m *Manager) Loop(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, conn := range m.socket.All() {
				if err := m.RequestChain(conn); err != nil {
					logger.Debug("sync: periodic RequestChain failed", "peer", conn.Key(), "err", err)
				}
			}
		case <-done:
			return
		}
	}
}

