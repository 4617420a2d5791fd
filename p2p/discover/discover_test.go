package discover

import (
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetPeersParsesArrayForm(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, len("GET_PEERS"))
		io.ReadFull(conn, buf)
		reply, _ := json.Marshal([][2]interface{}{
			{"10.0.0.1", 30900},
			{"10.0.0.2", 30901},
		})
		conn.Write(reply)
	}()

	client := NewClient(ln.Addr().String(), time.Second)
	peers, err := client.GetPeers()
	require.NoError(t, err)
	require.Len(t, peers, 2)
	require.Equal(t, PeerAddr{Host: "10.0.0.1", Port: 30900}, peers[0])
}

func TestRegisterSendsNewPeerTag(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		received <- string(buf[:n])
	}()

	client := NewClient(ln.Addr().String(), time.Second)
	require.NoError(t, client.Register(30900))

	select {
	case msg := <-received:
		require.Equal(t, "NEW_PEER30900", msg)
	case <-time.After(time.Second):
		t.Fatal("directory never received NEW_PEER")
	}
}

func TestLANAnnounceAndListenRoundTrip(t *testing.T) {
	a, err := NewLAN(0, PeerAddr{Host: "127.0.0.1", Port: 1111})
	require.NoError(t, err)
	defer a.Close()

	b, err := NewLAN(0, PeerAddr{Host: "127.0.0.1", Port: 2222})
	require.NoError(t, err)
	defer b.Close()

	go b.Listen()

	// Directly address b rather than relying on broadcast delivery, which
	// is not guaranteed to work in a sandboxed test network namespace.
	bAddr := b.conn.(*net.UDPConn).LocalAddr().(*net.UDPAddr)
	data, _ := json.Marshal(a.self)
	_, err = a.conn.WriteTo(data, bAddr)
	require.NoError(t, err)

	select {
	case found := <-b.Found():
		require.Equal(t, PeerAddr{Host: "127.0.0.1", Port: 1111}, found)
	case <-time.After(2 * time.Second):
		t.Fatal("peer never discovered")
	}
}
