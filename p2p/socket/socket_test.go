package socket

import (
	"bytes"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Tag: TagNewBlock, Body: []byte("block-bytes")}
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, f))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, f.Tag, got.Tag)
	require.Equal(t, f.Body, got.Body)
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, err := ReadFrame(&buf)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

type recordingHandler struct {
	frames chan Frame
	gone   chan *Conn
}

func (h *recordingHandler) HandleFrame(conn *Conn, f Frame) {
	h.frames <- f
}

func (h *recordingHandler) HandleDisconnect(conn *Conn) {
	h.gone <- conn
}

func TestDialAndSend(t *testing.T) {
	serverHandler := &recordingHandler{frames: make(chan Frame, 4), gone: make(chan *Conn, 4)}
	clientHandler := &recordingHandler{frames: make(chan Frame, 4), gone: make(chan *Conn, 4)}

	server := New("127.0.0.1", 4, serverHandler)
	require.NoError(t, server.Listen(0))
	defer server.Close()

	host, portStr, err := net.SplitHostPort(server.listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client := New("127.0.0.1", 4, clientHandler)
	conn, err := client.Dial(host, port)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, conn.Send(Frame{Tag: TagNewTransaction, Body: []byte("tx")}))

	select {
	case f := <-serverHandler.frames:
		require.Equal(t, TagNewTransaction, f.Tag)
		require.Equal(t, []byte("tx"), f.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received frame")
	}
}

func TestRegisterEnforcesMaxConnections(t *testing.T) {
	h := &recordingHandler{frames: make(chan Frame, 1), gone: make(chan *Conn, 1)}
	s := New("127.0.0.1", 1, h)

	c1 := newConn(nil, "1.2.3.4", 1000)
	require.True(t, s.register(c1))

	c2 := newConn(nil, "1.2.3.5", 1001)
	require.False(t, s.register(c2))
}
