// Package integration exercises the server and client session loops
// together over real loopback UDP sockets, covering the end-to-end
// scenarios enumerated in spec.md §8.
package integration

import (
	"context"
	"net"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ventosilenzioso/numberstream/internal/client"
	"github.com/ventosilenzioso/numberstream/internal/obslog"
	"github.com/ventosilenzioso/numberstream/internal/protocol"
	"github.com/ventosilenzioso/numberstream/internal/server"
	"github.com/ventosilenzioso/numberstream/internal/transport"
	"github.com/ventosilenzioso/numberstream/internal/wire"
)

func discardLogger(t *testing.T) *obslog.Logger {
	t.Helper()
	log, err := obslog.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func startServer(t *testing.T) (*net.UDPAddr, func()) {
	t.Helper()

	socket, err := transport.Listen(0)
	require.NoError(t, err)

	addr := socket.LocalAddr().(*net.UDPAddr)
	handler := server.NewHandler(socket, discardLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		handler.Run(ctx)
		close(done)
	}()

	return addr, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func dialClient(t *testing.T, serverAddr *net.UDPAddr) *client.Handler {
	t.Helper()
	socket, remote, err := transport.Dial(serverAddr.IP.String(), uint16(serverAddr.Port))
	require.NoError(t, err)
	t.Cleanup(func() { socket.Close() })
	return client.NewHandler(socket, remote, discardLogger(t))
}

func TestSingleFragmentRun(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	h := dialClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.Run(ctx, 10, 100.0)
	require.NoError(t, err)
	require.Len(t, result.Numbers, 10)

	assert.True(t, sort.SliceIsSorted(result.Numbers, func(i, j int) bool { return result.Numbers[i] > result.Numbers[j] }))
	for _, n := range result.Numbers {
		assert.GreaterOrEqual(t, n, -100.0)
		assert.Less(t, n, 100.0)
	}
}

func TestMultiFragmentRunIsGloballyDescendingAndUnique(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	h := dialClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.Run(ctx, 1000, 1000.0)
	require.NoError(t, err)
	require.Len(t, result.Numbers, 1000)

	assert.True(t, sort.SliceIsSorted(result.Numbers, func(i, j int) bool { return result.Numbers[i] > result.Numbers[j] }))

	seen := make(map[float64]struct{}, len(result.Numbers))
	for _, n := range result.Numbers {
		_, dup := seen[n]
		assert.False(t, dup, "duplicate number %v in final output", n)
		seen[n] = struct{}{}
	}
}

func TestZeroNumberCountYieldsEmptyOutput(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	h := dialClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.Run(ctx, 0, 100.0)
	require.NoError(t, err)
	assert.Empty(t, result.Numbers)
}

func TestSingleNumberCount(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	h := dialClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.Run(ctx, 1, 50.0)
	require.NoError(t, err)
	require.Len(t, result.Numbers, 1)
}

func TestInvalidUpperBoundIsSessionFatalOnClient(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	h := dialClient(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.Run(ctx, 10, 0)
	require.Error(t, err)
}

func TestClientTooNewEndsSessionAfterSingleResponse(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	socket, remote, err := transport.Dial(addr.IP.String(), uint16(addr.Port))
	require.NoError(t, err)
	defer socket.Close()

	// Speak a newer protocol version directly over the wire, bypassing
	// client.Handler (which always advertises protocol.Version), to
	// exercise the server's CLIENT_TOO_NEW branch (spec.md §8 scenario
	// 3/4: mismatched protocol versions end the session after exactly
	// one ProtocolVersionResponse).
	req := &protocol.ProtocolVersionRequest{ProtocolVersion: protocol.Version + 1}
	_, err = socket.Send(wire.EncodeProtocolVersionRequest(req), remote)
	require.NoError(t, err)

	buffer := make([]byte, protocol.MessageMaxSize)
	data, _, err := socket.Receive(buffer)
	require.NoError(t, err)

	resp, err := wire.DecodeProtocolVersionResponse(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientTooNew, resp.Error)
	assert.NotEmpty(t, resp.ErrorMessage)
}
