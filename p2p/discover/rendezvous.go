package discover

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// maxRetries bounds how many attempts (the first one included) the
// rendez-vous client makes at a directory round trip before giving up: an
// unbounded retry loop spins
// forever against a directory that is permanently down, instead of falling
// back to LAN discovery alone.
const maxRetries = 3

const retryBackoff = 500 * time.Millisecond

// Client talks the rendez-vous directory's plain-text tag protocol. Unlike
// the peer socket, the directory wire format carries no length prefix — it
// is a small, frozen, external protocol kept deliberately separate from the
// peer socket's length-prefixed framing.
type Client struct {
	addr    string
	timeout time.Duration
}

// NewClient builds a directory client dialing addr with the given
// per-round-trip timeout.
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{addr: addr, timeout: timeout}
}

// peerPair decodes one [host, port] entry from the directory's GET_PEERS
// reply.
type peerPair struct {
	Host string
	Port int
}

func (p *peerPair) UnmarshalJSON(data []byte) error {
	var arr [2]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &p.Host); err != nil {
		return err
	}
	return json.Unmarshal(arr[1], &p.Port)
}

// GetPeers asks the directory for its known peer list, making up to
// maxRetries attempts when a round trip fails or its reply is malformed.
func (c *Client) GetPeers() ([]PeerAddr, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryBackoff * time.Duration(attempt))
		}
		peers, err := c.getPeersOnce()
		if err == nil {
			return peers, nil
		}
		lastErr = err
		logger.Debug("discover: GET_PEERS attempt failed", "attempt", attempt, "err", err)
	}
	return nil, fmt.Errorf("discover: GET_PEERS failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) getPeersOnce() ([]PeerAddr, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write([]byte("GET_PEERS")); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		return nil, err
	}

	var pairs []peerPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("discover: malformed GET_PEERS reply: %w", err)
	}
	out := make([]PeerAddr, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, PeerAddr{Host: p.Host, Port: p.Port})
	}
	return out, nil
}

// Register tells the directory this node's listening port; the directory
// infers the host from the TCP connection's source address. Attempted the
// same bounded number of times as GetPeers.
func (c *Client) Register(port int) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryBackoff * time.Duration(attempt))
		}
		if err := c.send("NEW_PEER" + strconv.Itoa(port)); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("discover: NEW_PEER failed after %d attempts: %w", maxRetries, lastErr)
}

// ReportInvalid tells the directory a listed peer could not be reached, so
// it can be pruned from future GET_PEERS replies.
func (c *Client) ReportInvalid(host string, port int) error {
	return c.send(fmt.Sprintf("INVALID_PEER%s:%d", host, port))
}

func (c *Client) send(message string) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))
	_, err = conn.Write([]byte(message))
	return err
}
