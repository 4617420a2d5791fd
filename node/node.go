// Package node wires the Framed Peer Socket, Discovery, Sync Manager, and
// PoW Miner into a single Node façade, and owns the one coarse "node lock"
// serializing access to the Chain and Mempool. The connection map is
// guarded by the Socket's own mutex and the LAN peer set by its thread-safe
// set type; neither is under the node lock.
// Shaped like tos.Tos (tos/backend.go): a single top-level type embedding
// the sub-components, with a context/cancel pair for lifecycle and one
// exported entrypoint per command the outer CLI drives.
package node

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tos-network/chainmsg/core/chain"
	"github.com/tos-network/chainmsg/core/mempool"
	"github.com/tos-network/chainmsg/crypto"
	"github.com/tos-network/chainmsg/log"
	"github.com/tos-network/chainmsg/p2p/discover"
	"github.com/tos-network/chainmsg/p2p/socket"
	syncmgr "github.com/tos-network/chainmsg/sync"
)

var logger = log.New("node")

// Config holds every parameter Node needs to start, already merged from
// CLI flags and a TOML file by the config package.
type Config struct {
	Host              string
	Port              int
	MaxConnections    int
	BroadcastPort     int
	BroadcastInterval time.Duration
	DirectoryAddress  string
	SyncInterval      time.Duration
	SyncTimeout       time.Duration
	Difficulty        int
}

// Node is the process's single top-level object: it exclusively owns the
// Chain, Mempool, peer set, and listening socket, and exposes the command
// surface driven by the node binary (connect, message, send, mine,
// balance, peers, chain).
type Node struct {
	cfg Config

	signKey *crypto.PrivateKey
	address string

	dhPriv, dhPub []byte

	mu      sync.Mutex // the node lock
	chain   *chain.Chain
	mempool *mempool.Mempool

	sock    *socket.Socket
	syncMgr *syncmgr.Manager
	lan     *discover.LAN
	dir     *discover.Client

	pendingKeys   map[*socket.Conn]chan []byte
	pendingKeysMu sync.Mutex

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New builds a Node from cfg and a signing key loaded by the caller (see
// cmd/chainmsgkey for key generation).
func New(cfg Config, signKey *crypto.PrivateKey) (*Node, error) {
	dhPriv, dhPub, err := crypto.DHGenerate()
	if err != nil {
		return nil, fmt.Errorf("node: generating DH keypair: %w", err)
	}

	n := &Node{
		cfg:         cfg,
		signKey:     signKey,
		address:     crypto.AddressOf(signKey.PublicKeyBytes()),
		dhPriv:      dhPriv,
		dhPub:       dhPub,
		chain:       chain.New(cfg.Difficulty),
		mempool:     mempool.New(),
		pendingKeys: make(map[*socket.Conn]chan []byte),
	}
	n.sock = socket.New(cfg.Host, cfg.MaxConnections, n)
	n.syncMgr = syncmgr.New(n.sock, n.locked)
	return n, nil
}

// locked runs fn with the node lock held; it is the function sync.Manager
// calls into for every State access (see sync.New). A Chain or Mempool that
// fn stores into the State (MergeChain's replacement chain) becomes the
// Node's own.
func (n *Node) locked(fn func(*syncmgr.State)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	st := syncmgr.State{Chain: n.chain, Mempool: n.mempool}
	fn(&st)
	n.chain, n.mempool = st.Chain, st.Mempool
}

// Address returns this node's derived signing address.
func (n *Node) Address() string {
	return n.address
}

// ListenAddr returns the Socket's bound TCP address. Only valid after
// Start succeeds; used by callers that bound an ephemeral port (0) and
// need to learn what the OS assigned, e.g. in tests.
func (n *Node) ListenAddr() net.Addr {
	return n.sock.Addr()
}

// Start launches every long-lived background task: the accept loop (owned
// by Socket.Listen), the broadcast announcer/listener, the loop dialing
// LAN-discovered peers, and the sync loop; then, if a directory is
// configured, it registers with it and dials the peers it lists. The
// command surface and miner are driven on-demand by the embedding CLI, not
// started here.
func (n *Node) Start(ctx context.Context) error {
	if err := n.sock.Listen(n.cfg.Port); err != nil {
		return fmt.Errorf("node: listen: %w", err)
	}

	lan, err := discover.NewLAN(n.cfg.BroadcastPort, discover.PeerAddr{Host: n.cfg.Host, Port: n.cfg.Port})
	if err != nil {
		return fmt.Errorf("node: LAN discovery: %w", err)
	}
	n.lan = lan

	if n.cfg.DirectoryAddress != "" {
		n.dir = discover.NewClient(n.cfg.DirectoryAddress, n.cfg.SyncTimeout)
	}

	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	group, runCtx := errgroup.WithContext(runCtx)
	n.group = group

	group.Go(func() error {
		n.lan.Listen()
		return nil
	})
	group.Go(func() error {
		n.lan.AnnounceLoop(n.cfg.BroadcastInterval)
		return nil
	})
	group.Go(func() error {
		n.discoverFoundPeers(runCtx)
		return nil
	})
	group.Go(func() error {
		n.syncMgr.Loop(n.cfg.SyncInterval, runCtx.Done())
		return nil
	})

	if n.dir != nil {
		if err := n.dir.Register(n.cfg.Port); err != nil {
			logger.Warn("node: directory registration failed", "err", err)
		}
		if peers, err := n.dir.GetPeers(); err != nil {
			logger.Warn("node: directory GET_PEERS failed", "err", err)
		} else {
			for _, p := range peers {
				if err := n.Connect(p.Host, p.Port); err != nil {
					logger.Debug("node: dial from directory failed", "peer", p, "err", err)
					if reportErr := n.dir.ReportInvalid(p.Host, p.Port); reportErr != nil {
						logger.Debug("node: INVALID_PEER report failed", "err", reportErr)
					}
				}
			}
		}
	}

	return nil
}

// discoverFoundPeers dials every newly announced LAN peer until ctx is
// done.
func (n *Node) discoverFoundPeers(ctx context.Context) {
	for {
		select {
		case addr := <-n.lan.Found():
			if err := n.Connect(addr.Host, addr.Port); err != nil {
				logger.Debug("node: dial from LAN discovery failed", "peer", addr, "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Exit shuts down every long-lived task and closes the socket and
// discovery sockets: loops exit at the next iteration, sockets close,
// outstanding reads unblock via EOF.
func (n *Node) Exit() error {
	if n.cancel != nil {
		n.cancel()
	}
	if n.lan != nil {
		n.lan.Close()
	}
	n.sock.Close()
	if n.group != nil {
		return n.group.Wait()
	}
	return nil
}
