// Package discover implements peer discovery: UDP broadcast announce/listen
// on the local network, and a TCP rendez-vous directory client for
// cross-network bootstrap. Shaped like p2p/discover/common.go (a small
// UDPConn interface plus a Config struct with sane defaults), trimmed to
// this repo's much smaller discovery surface — no node records, no
// Kademlia table, just "who else is out there".
package discover

import (
	"encoding/json"
	"net"
	"time"

	mapset "github.com/deckarep/golang-set"

	"github.com/tos-network/chainmsg/log"
)

var logger = log.New("discover")

// PeerAddr is a discovered peer's advertised listening address.
type PeerAddr struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// UDPConn is the subset of net.PacketConn LAN discovery needs, so tests can
// substitute a fake without opening a real socket.
type UDPConn interface {
	ReadFrom(b []byte) (n int, addr net.Addr, err error)
	WriteTo(b []byte, addr net.Addr) (n int, err error)
	Close() error
}

// LAN announces this node's listening address over UDP broadcast and
// collects addresses announced by others, deduplicated in a
// github.com/deckarep/golang-set set.
type LAN struct {
	conn UDPConn
	self PeerAddr

	broadcastAddr *net.UDPAddr

	peers mapset.Set // of PeerAddr

	found chan PeerAddr
	done  chan struct{}
}

// NewLAN opens a UDP socket on broadcastPort and prepares to announce self.
func NewLAN(broadcastPort int, self PeerAddr) (*LAN, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: broadcastPort})
	if err != nil {
		return nil, err
	}
	return &LAN{
		conn:          conn,
		self:          self,
		broadcastAddr: &net.UDPAddr{IP: net.IPv4bcast, Port: broadcastPort},
		peers:         mapset.NewSet(),
		found:         make(chan PeerAddr, 32),
		done:          make(chan struct{}),
	}, nil
}

// Announce broadcasts this node's address once.
func (l *LAN) Announce() error {
	data, err := json.Marshal(l.self)
	if err != nil {
		return err
	}
	_, err = l.conn.WriteTo(data, l.broadcastAddr)
	return err
}

// AnnounceLoop calls Announce every interval until Close is called.
func (l *LAN) AnnounceLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := l.Announce(); err != nil {
				logger.Debug("lan: announce failed", "err", err)
			}
		case <-l.done:
			return
		}
	}
}

// Listen reads announce datagrams until Close is called or a read fails,
// delivering newly seen peer addresses on Found. Malformed datagrams are
// dropped silently;
// this is best-effort discovery, not a protocol that needs to punish a
// malformed broadcast.
func (l *LAN) Listen() {
	buf := make([]byte, 1024)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				logger.Debug("lan: read failed", "err", err)
				return
			}
		}
		var addr PeerAddr
		if err := json.Unmarshal(buf[:n], &addr); err != nil {
			continue
		}
		if addr == l.self {
			continue
		}
		if l.peers.Add(addr) {
			select {
			case l.found <- addr:
			default:
			}
		}
	}
}

// Found delivers each newly discovered peer address at most once; an
// address discovered while the channel's buffer is full is recorded in
// Known but not delivered.
func (l *LAN) Found() <-chan PeerAddr {
	return l.found
}

// Known returns every peer address discovered so far.
func (l *LAN) Known() []PeerAddr {
	out := make([]PeerAddr, 0, l.peers.Cardinality())
	for v := range l.peers.Iter() {
		out = append(out, v.(PeerAddr))
	}
	return out
}

// Close stops the announce and listen loops and releases the socket.
func (l *LAN) Close() error {
	close(l.done)
	return l.conn.Close()
}
