package socket

import (
	"net"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/google/uuid"
)

// knownCacheSize bounds the per-connection known-block/known-tx caches: a
// connection must not re-broadcast a hash it has already sent to, or
// received from, that peer.
const knownCacheSize = 4096

// Conn is one accepted-or-dialed peer connection: a raw net.Conn plus its
// per-peer bookkeeping. Shaped like tosPeer (tos/peer.go), minus the
// sub-protocol negotiation this repo has no use for: one connection here
// is one peer, full stop.
type Conn struct {
	ID   string // session id for log correlation, from github.com/google/uuid
	Host string
	Port int

	nc net.Conn

	writeMu sync.Mutex // serializes frame writes; see WriteFrame doc on frame.go

	knownBlocks *lru.Cache // hash hex -> struct{}
	knownTxs    *lru.Cache

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(nc net.Conn, host string, port int) *Conn {
	blocks, _ := lru.New(knownCacheSize)
	txs, _ := lru.New(knownCacheSize)
	return &Conn{
		ID:          uuid.New().String(),
		Host:        host,
		Port:        port,
		nc:          nc,
		knownBlocks: blocks,
		knownTxs:    txs,
		closed:      make(chan struct{}),
	}
}

// Key identifies a connection by the (host, port) the remote peer advertised
// its listener on. Only one connection per (host, port) is kept at a time.
func (c *Conn) Key() string {
	return PeerKey(c.Host, c.Port)
}

// PeerKey builds the (host, port) identity key the connection registry uses.
func PeerKey(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Send writes a single frame, holding the per-connection write lock so
// concurrent broadcasts and replies never interleave their bytes.
func (c *Conn) Send(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.nc, f)
}

// MarkKnownBlock records that this peer has seen (or been sent) a block
// hash, so it is skipped on future gossip fan-out.
func (c *Conn) MarkKnownBlock(hashHex string) {
	c.knownBlocks.Add(hashHex, struct{}{})
}

// KnownBlock reports whether this peer is already known to have hashHex.
func (c *Conn) KnownBlock(hashHex string) bool {
	return c.knownBlocks.Contains(hashHex)
}

// MarkKnownTransaction records that this peer has seen (or been sent) a
// transaction hash.
func (c *Conn) MarkKnownTransaction(hashHex string) {
	c.knownTxs.Add(hashHex, struct{}{})
}

// KnownTransaction reports whether this peer is already known to have
// hashHex.
func (c *Conn) KnownTransaction(hashHex string) bool {
	return c.knownTxs.Contains(hashHex)
}

// Close closes the underlying connection; safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.nc.Close()
	})
	return err
}

// Done returns a channel closed once this connection has been closed.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}
