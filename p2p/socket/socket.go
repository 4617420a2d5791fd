package socket

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/tos-network/chainmsg/log"
)

var logger = log.New("socket")

// ErrTooManyConnections is returned by Dial once MaxConnections active
// connections are already tracked; the accept loop closes such a
// connection instead.
var ErrTooManyConnections = errors.New("socket: too many connections")

// ErrAlreadyConnected is returned when a (host, port) pair is already
// registered: only one connection per peer is kept at a time.
var ErrAlreadyConnected = errors.New("socket: already connected to peer")

// Handler receives every frame a Socket reads off any connection. It is
// implemented by node.Node, which routes by tag to itself or to the sync
// manager; Socket itself knows nothing about chain or block semantics,
// staying as blind to the `tos` sub-protocol message bodies it carries as
// the p2p transport layer it's shaped after.
type Handler interface {
	HandleFrame(conn *Conn, frame Frame)
	// HandleDisconnect is invoked once a connection's read loop exits, for
	// any reason (peer closed, error, local Close).
	HandleDisconnect(conn *Conn)
}

// Socket owns the listener, the set of active connections, and dispatch of
// inbound frames to a Handler. Shaped like peerSet (tos/peerset.go): one
// map behind one mutex, register/Rekey/unregister as the only operations
// that change it.
type Socket struct {
	host           string
	maxConnections int
	handler        Handler

	mu    sync.RWMutex
	conns map[string]*Conn // keyed by PeerKey(host, port)

	listener net.Listener
}

// New creates a Socket bound to no listener yet; call Listen to start
// accepting.
func New(host string, maxConnections int, handler Handler) *Socket {
	return &Socket{
		host:           host,
		maxConnections: maxConnections,
		handler:        handler,
		conns:          make(map[string]*Conn),
	}
}

// Listen binds a TCP listener on host:port and starts an accept loop that
// runs until the listener is closed. It returns once the bind succeeds; the
// accept loop itself runs in a background goroutine.
func (s *Socket) Listen(port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("socket: listen: %w", err)
	}
	s.listener = ln

	go s.acceptLoop(ln)
	return nil
}

func (s *Socket) acceptLoop(ln net.Listener) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			logger.Debug("socket: accept loop exiting", "err", err)
			return
		}
		host, _, err := net.SplitHostPort(nc.RemoteAddr().String())
		if err != nil {
			nc.Close()
			continue
		}
		// The remote's listening port is not known until it sends
		// INCOME_PORT; track it under its ephemeral source port until then.
		_, ephemeralPort, _ := net.SplitHostPort(nc.RemoteAddr().String())
		port, _ := strconv.Atoi(ephemeralPort)

		conn := newConn(nc, host, port)
		if !s.register(conn) {
			logger.Warn("socket: rejecting connection, at capacity", "remote", nc.RemoteAddr())
			nc.Close()
			continue
		}
		go s.readLoop(conn)
	}
}

// Dial opens an outbound connection to host:port. It fails with
// ErrAlreadyConnected if that peer is already tracked, and with
// ErrTooManyConnections once the socket is at capacity.
func (s *Socket) Dial(host string, port int) (*Conn, error) {
	key := PeerKey(host, port)

	s.mu.Lock()
	if _, ok := s.conns[key]; ok {
		s.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	if len(s.conns) >= s.maxConnections {
		s.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	s.mu.Unlock()

	nc, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("socket: dial %s: %w", key, err)
	}
	conn := newConn(nc, host, port)
	if !s.register(conn) {
		nc.Close()
		return nil, ErrTooManyConnections
	}
	go s.readLoop(conn)
	return conn, nil
}

// register inserts conn into the registry under its current Key(), failing
// if capacity or uniqueness would be violated. INCOME_PORT moves the entry
// to a new key through Rekey, not through register.
func (s *Socket) register(conn *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[conn.Key()]; ok {
		return false
	}
	if len(s.conns) >= s.maxConnections {
		return false
	}
	s.conns[conn.Key()] = conn
	return true
}

// Rekey re-indexes a connection under a new advertised (host, port),
// handling the INCOME_PORT handshake: an accepted connection is first
// tracked by its ephemeral source port, then moved to its real listening
// port once the peer announces it.
func (s *Socket) Rekey(conn *Conn, host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newKey := PeerKey(host, port)
	if existing, ok := s.conns[newKey]; ok && existing != conn {
		return ErrAlreadyConnected
	}
	delete(s.conns, conn.Key())
	conn.Host, conn.Port = host, port
	s.conns[newKey] = conn
	return nil
}

func (s *Socket) unregister(conn *Conn) {
	s.mu.Lock()
	if s.conns[conn.Key()] == conn {
		delete(s.conns, conn.Key())
	}
	s.mu.Unlock()
}

func (s *Socket) readLoop(conn *Conn) {
	defer func() {
		conn.Close()
		s.unregister(conn)
		s.handler.HandleDisconnect(conn)
	}()
	for {
		frame, err := ReadFrame(conn.nc)
		if err != nil {
			logger.Debug("socket: connection closed", "peer", conn.Key(), "err", err)
			return
		}
		s.handler.HandleFrame(conn, frame)
	}
}

// Broadcast sends f to every connection except those in except.
func (s *Socket) Broadcast(f Frame, except ...*Conn) {
	skip := make(map[*Conn]bool, len(except))
	for _, c := range except {
		skip[c] = true
	}

	for _, conn := range s.All() {
		if skip[conn] {
			continue
		}
		if err := conn.Send(f); err != nil {
			logger.Debug("socket: broadcast write failed", "peer", conn.Key(), "err", err)
		}
	}
}

// All returns a snapshot slice of every currently tracked connection.
func (s *Socket) All() []*Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// Get returns the connection tracked for host:port, if any.
func (s *Socket) Get(host string, port int) (*Conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[PeerKey(host, port)]
	return c, ok
}

// Len reports the number of active connections.
func (s *Socket) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Addr returns the listener's bound address, or nil if Listen has not been
// called yet. Useful for tests that bind an ephemeral port (0) and need to
// discover what the OS actually assigned.
func (s *Socket) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close shuts down the listener and every active connection.
func (s *Socket) Close() error {
	if s.listener != nil {
		s.listener.Close()
	}
	for _, conn := range s.All() {
		conn.Close()
	}
	return nil
}
