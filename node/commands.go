package node

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tos-network/chainmsg/core/pow"
	"github.com/tos-network/chainmsg/core/types"
	"github.com/tos-network/chainmsg/crypto"
	"github.com/tos-network/chainmsg/p2p/socket"
	syncmgr "github.com/tos-network/chainmsg/sync"
)

// ErrUnknownPeer is returned by RequestPublicKey (and so by Message) when
// host:port is not a currently connected peer or disconnects before
// answering.
var ErrUnknownPeer = errors.New("node: not connected to that peer")

// ErrPublicKeyTimeout is returned by Message when a peer never answers
// REQUEST_PUBLIC_KEY within requestPublicKeyTimeout.
var ErrPublicKeyTimeout = errors.New("node: timed out waiting for peer public key")

const requestPublicKeyTimeout = 5 * time.Second

// Connect dials host:port, announces this node's listening port, and kicks
// off an initial chain sync.
func (n *Node) Connect(host string, port int) error {
	conn, err := n.sock.Dial(host, port)
	if err != nil {
		return err
	}
	if err := conn.Send(socket.Frame{Tag: socket.TagIncomePort, Body: []byte(strconv.Itoa(n.cfg.Port))}); err != nil {
		return fmt.Errorf("node: INCOME_PORT handshake failed: %w", err)
	}
	if err := n.syncMgr.RequestChain(conn); err != nil {
		logger.Debug("node: initial RequestChain failed", "err", err)
	}
	return nil
}

// RequestPublicKey asks a connected peer for its DH public key and blocks
// until it answers or requestPublicKeyTimeout elapses.
func (n *Node) RequestPublicKey(host string, port int) ([]byte, error) {
	conn, ok := n.sock.Get(host, port)
	if !ok {
		return nil, ErrUnknownPeer
	}

	ch := make(chan []byte, 1)
	n.pendingKeysMu.Lock()
	n.pendingKeys[conn] = ch
	n.pendingKeysMu.Unlock()
	defer func() {
		n.pendingKeysMu.Lock()
		delete(n.pendingKeys, conn)
		n.pendingKeysMu.Unlock()
	}()

	if err := conn.Send(socket.Frame{Tag: socket.TagRequestPublicKey}); err != nil {
		return nil, err
	}

	select {
	case body, ok := <-ch:
		if !ok {
			return nil, ErrUnknownPeer
		}
		return decodePublicKeyPEM(body)
	case <-time.After(requestPublicKeyTimeout):
		return nil, ErrPublicKeyTimeout
	}
}

// Message encrypts content for the peer at host:port via ECDH + AEAD and
// gossips it as a zero-amount Transaction carrying the sealed ciphertext.
func (n *Node) Message(host string, port int, content []byte) error {
	peerPub, err := n.RequestPublicKey(host, port)
	if err != nil {
		return err
	}
	shared, err := crypto.DHAgree(n.dhPriv, peerPub)
	if err != nil {
		return err
	}
	key, err := crypto.KDF(shared)
	if err != nil {
		return err
	}
	sealed, err := crypto.Seal(key, content)
	if err != nil {
		return err
	}

	recipient := crypto.AddressOf(peerPub)
	return n.sendTransaction(recipient, 0, sealed)
}

// Send transfers amount from this node to recipient, signed with this
// node's key.
func (n *Node) Send(recipient string, amount uint64) error {
	return n.sendTransaction(recipient, amount, nil)
}

func (n *Node) sendTransaction(recipient string, amount uint64, content []byte) error {
	sender := n.address
	tx := types.New(&sender, recipient, amount, content, n.signKey.PublicKeyBytes())
	tx.Sign(n.signKey)

	var admitted bool
	var admitErr error
	n.locked(func(s *syncmgr.State) {
		admitErr = s.Mempool.Admit(tx, s.Chain)
		admitted = admitErr == nil
	})
	if !admitted {
		return fmt.Errorf("node: transaction rejected: %w", admitErr)
	}
	n.syncMgr.BroadcastTransaction(tx)
	return nil
}

// Mine drains the mempool into a new block, searches for a valid nonce, and
// on success appends and broadcasts it. Mining itself runs without holding
// the node lock: the tip and pending transactions are snapshotted up front.
func (n *Node) Mine(ctx context.Context) (*types.Block, error) {
	var tip *types.Block
	var txs []*types.Transaction
	var difficulty int
	n.locked(func(s *syncmgr.State) {
		tip = s.Chain.Tip()
		txs = append(txs, s.Mempool.List()...)
		difficulty = s.Chain.Difficulty()
	})

	reward := types.NewCoinbase(n.address)
	candidate := types.New(tip.Index+1, tip.Hash, time.Now().Unix(), append(txs, reward), 0)

	start := time.Now()
	mined, err := pow.Mine(ctx, candidate, difficulty)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	var appended bool
	n.locked(func(s *syncmgr.State) {
		if s.Chain.Tip().Hash != tip.Hash {
			// Tip moved while we were mining; reject rather than fork
			// silently instead of preempting the in-flight search.
			return
		}
		if err := s.Chain.Append(mined); err != nil {
			return
		}
		hashes := make([]string, 0, len(txs))
		for _, tx := range txs {
			hashes = append(hashes, tx.Hash())
		}
		s.Mempool.Remove(hashes...)
		s.Chain.SetDifficulty(pow.Adjust(elapsed, difficulty))
		appended = true
	})
	if !appended {
		return nil, errors.New("node: tip advanced during mining, block discarded")
	}

	n.syncMgr.BroadcastBlock(mined)
	return mined, nil
}

// Balance returns the address's balance over the committed chain.
func (n *Node) Balance(address string) int64 {
	var balance int64
	n.locked(func(s *syncmgr.State) {
		balance = s.Chain.BalanceOf(address)
	})
	return balance
}

// Peers lists the (host, port) of every currently connected peer.
func (n *Node) Peers() []string {
	conns := n.sock.All()
	out := make([]string, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Key())
	}
	return out
}

// ShowChain returns a snapshot of the local chain.
func (n *Node) ShowChain() []*types.Block {
	var blocks []*types.Block
	n.locked(func(s *syncmgr.State) {
		blocks = append(blocks, s.Chain.Blocks()...)
	})
	return blocks
}
