package node

import (
	"strconv"

	"github.com/tos-network/chainmsg/p2p/socket"
)

// HandleFrame implements socket.Handler. It answers the tags that are the
// Node's own responsibility (connection handshake, key exchange) and
// forwards every chain/block/tx tag to the Sync Manager.
func (n *Node) HandleFrame(conn *socket.Conn, f socket.Frame) {
	switch f.Tag {
	case socket.TagIncomePort:
		n.handleIncomePort(conn, f.Body)
	case socket.TagRequestPublicKey:
		n.handleRequestPublicKey(conn)
	case socket.TagPublicKey:
		n.handlePublicKeyReply(conn, f.Body)
	default:
		n.syncMgr.HandleFrame(conn, f)
	}
}

// HandleDisconnect implements socket.Handler, clearing any pending
// REQUEST_PUBLIC_KEY wait so Message doesn't block forever on a connection
// that just died.
func (n *Node) HandleDisconnect(conn *socket.Conn) {
	n.pendingKeysMu.Lock()
	if ch, ok := n.pendingKeys[conn]; ok {
		close(ch)
		delete(n.pendingKeys, conn)
	}
	n.pendingKeysMu.Unlock()
}

// handleIncomePort rekeys conn under the (host, port) the peer actually
// listens on, transitioning it from an ephemeral accept-time entry to a
// proper registered peer.
func (n *Node) handleIncomePort(conn *socket.Conn, body []byte) {
	port, err := strconv.Atoi(string(body))
	if err != nil {
		logger.Debug("node: malformed INCOME_PORT", "err", err)
		return
	}
	if err := n.sock.Rekey(conn, conn.Host, port); err != nil {
		logger.Debug("node: INCOME_PORT rekey failed", "err", err)
	}
}

// handleRequestPublicKey answers with this node's X25519 key-agreement
// public key, PEM-encoded — not the secp256k1 signing key, which can't do
// Diffie-Hellman agreement. This is the first step of the ECDH key
// agreement Message uses to encrypt content.
func (n *Node) handleRequestPublicKey(conn *socket.Conn) {
	body := encodePublicKeyPEM(n.dhPub)
	if err := conn.Send(socket.Frame{Tag: socket.TagPublicKey, Body: body}); err != nil {
		logger.Debug("node: failed to reply to REQUEST_PUBLIC_KEY", "err", err)
	}
}

// handlePublicKeyReply delivers a PUBLIC_KEY reply to whichever RequestPublicKey
// call is waiting on conn, if any.
func (n *Node) handlePublicKeyReply(conn *socket.Conn, body []byte) {
	n.pendingKeysMu.Lock()
	ch, ok := n.pendingKeys[conn]
	n.pendingKeysMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- body:
	default:
	}
}
