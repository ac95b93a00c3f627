// Package transport is the datagram socket adapter from spec.md §4.1:
// bind/connect a UDP socket and send/receive framed messages with a
// fixed maximum payload, with no retransmission, ordering, or
// connection state of its own. Grounded in the teacher's
// source/server/server.go (Start/listen, net.ListenUDP) and, on the client side, original_source's one-time
// resolver.resolve (src/client/main.cpp) ported to net.ResolveUDPAddr.
package transport

import (
	"net"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ventosilenzioso/numberstream/internal/protocol"
)

// Socket wraps a single *net.UDPConn and enforces the fixed maximum
// payload from protocol.MessageMaxSize on every send.
type Socket struct {
	conn *net.UDPConn
}

// Listen binds a UDP socket on the given port across all interfaces
// with net.ListenUDP. SO_REUSEADDR is not set: net.ListenUDP enables it
// only for multicast addresses, so a port still held by another socket
// fails to bind.
func Listen(port uint16) (*Socket, error) {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: int(port)}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to bind UDP socket")
	}
	return &Socket{conn: conn}, nil
}

// Dial binds an ephemeral local UDP endpoint and resolves the remote
// host:port once, returning both the socket and the resolved peer.
func Dial(host string, port uint16) (*Socket, *net.UDPAddr, error) {
	local := &net.UDPAddr{IP: net.IPv4zero, Port: 0}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to bind local UDP endpoint")
	}

	remote, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		conn.Close()
		return nil, nil, errors.Wrapf(err, "failed to resolve server address %s:%d", host, port)
	}

	return &Socket{conn: conn}, remote, nil
}

// Send transmits message to peer, failing with SEND_FAILURE semantics
// (a non-nil error) on transport error or a zero-byte write.
func (s *Socket) Send(message []byte, peer *net.UDPAddr) (int, error) {
	if len(message) > protocol.MessageMaxSize {
		return 0, errors.Errorf("transport: message of %d bytes exceeds MESSAGE_MAX_SIZE %d", len(message), protocol.MessageMaxSize)
	}

	n, err := s.conn.WriteToUDP(message, peer)
	if err != nil {
		return 0, errors.Wrap(err, "SEND_FAILURE")
	}
	if n == 0 {
		return 0, errors.New("SEND_FAILURE: zero bytes sent")
	}
	return n, nil
}

// Receive reads the next datagram into buffer, failing with
// RECV_FAILURE semantics on transport error or a zero-byte read. The
// returned slice is a fresh copy, safe to hold onto across calls.
func (s *Socket) Receive(buffer []byte) ([]byte, *net.UDPAddr, error) {
	n, peer, err := s.conn.ReadFromUDP(buffer)
	if err != nil {
		return nil, nil, errors.Wrap(err, "RECV_FAILURE")
	}
	if n == 0 {
		return nil, nil, errors.New("RECV_FAILURE: zero bytes received")
	}

	data := make([]byte, n)
	copy(data, buffer[:n])
	return data, peer, nil
}

// LocalAddr returns the socket's bound local address.
func (s *Socket) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Close releases the underlying UDP socket, unblocking any in-flight
// Receive call.
func (s *Socket) Close() error { return s.conn.Close() }

