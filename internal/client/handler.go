// Package client implements the client half of the protocol: the
// symmetric C0/C1/C2/C3/C4 session loop from spec.md §4.5, ending in
// the assemble-and-persist step from §4.6. It mirrors the server's
// internal/server package the same way the teacher's single-binary
// structure mirrors client and server logic within one raknet.Session,
// split here into its own package because this protocol, unlike
// RakNet, has genuinely distinct client and server roles.
package client

import (
	"context"
	"fmt"
	"net"

	"github.com/ventosilenzioso/numberstream/internal/merge"
	"github.com/ventosilenzioso/numberstream/internal/obslog"
	"github.com/ventosilenzioso/numberstream/internal/persist"
	"github.com/ventosilenzioso/numberstream/internal/protocol"
	"github.com/ventosilenzioso/numberstream/internal/transport"
	"github.com/ventosilenzioso/numberstream/internal/wire"
)

// Result is what a successful run hands back to main. Run writes no
// file itself; main persists Numbers with PersistResult, and callers
// (and tests) can inspect the in-memory result directly.
type Result struct {
	Numbers []float64
}

// Handler drives one client run against one server endpoint.
type Handler struct {
	socket *transport.Socket
	server *net.UDPAddr
	log    *obslog.Logger
}

// NewHandler binds the client's end of the socket, which must already
// be dialed to the server endpoint via transport.Dial.
func NewHandler(socket *transport.Socket, server *net.UDPAddr, log *obslog.Logger) *Handler {
	return &Handler{socket: socket, server: server, log: log}
}

// Run executes C0 through C4: version handshake, sequence request,
// fragment ingestion with acking, and final assembly. It returns a
// session-fatal error for anything spec.md §7 marks client-terminal.
func (h *Handler) Run(ctx context.Context, numberCount uint64, upperBound float64) (*Result, error) {
	if err := h.handshake(ctx); err != nil {
		return nil, err
	}

	numbers, err := h.requestSequence(ctx, numberCount, upperBound)
	if err != nil {
		return nil, err
	}

	return &Result{Numbers: numbers}, nil
}

// handshake implements C0 -> C1 -> C2's entry.
func (h *Handler) handshake(ctx context.Context) error {
	request := &protocol.ProtocolVersionRequest{ProtocolVersion: protocol.Version}
	if _, err := h.socket.Send(wire.EncodeProtocolVersionRequest(request), h.server); err != nil {
		return err
	}

	buffer := make([]byte, protocol.MessageMaxSize)
	data, _, err := h.receive(ctx, buffer)
	if err != nil {
		return err
	}

	response, err := wire.DecodeProtocolVersionResponse(data)
	if err != nil {
		return fmt.Errorf("DecodeError: %w", err)
	}

	if response.Error != protocol.VersionOK {
		return fmt.Errorf("VersionMismatch: %s: %s", response.Error, response.ErrorMessage)
	}

	h.log.Info("protocol handshake OK (version %d)", response.ProtocolVersion)
	return nil
}

// requestSequence implements C2 -> C3 -> C4: send the request, then
// ingest fragments until the server-declared sequence_count is
// satisfied, sorting each fragment as it arrives and merging them all
// once the last one is in.
func (h *Handler) requestSequence(ctx context.Context, numberCount uint64, upperBound float64) ([]float64, error) {
	request := &protocol.NumberSequenceRequest{NumberCount: numberCount, UpperBound: upperBound}
	if _, err := h.socket.Send(wire.EncodeNumberSequenceRequest(request), h.server); err != nil {
		return nil, err
	}

	if numberCount == 0 {
		// The server's fragment loop never runs for a zero-count
		// request, so no NumberSequenceResponse is ever sent; the
		// client already knows the count it asked for and can skip
		// straight to the empty result (spec.md §8: "number_count = 0
		// yields zero fragments").
		return []float64{}, nil
	}

	buffer := make([]byte, protocol.MessageMaxSize)
	var stack *merge.Stack
	var received uint64
	var expected uint64 = 1 // unknown until the first fragment arrives

	for received < expected {
		data, _, err := h.receive(ctx, buffer)
		if err != nil {
			return nil, err
		}

		response, err := wire.DecodeNumberSequenceResponse(data)
		if err != nil {
			return nil, fmt.Errorf("DecodeError: %w", err)
		}

		if response.Error != protocol.SequenceOK {
			return nil, fmt.Errorf("InvalidUpperBound: %s", response.ErrorMessage)
		}

		if stack == nil {
			expected = response.SequenceCount
			stack = merge.NewStack(int(expected))
			if expected == 0 {
				break
			}
		}

		accepted, err := h.ackFragment(ctx, response)
		if err != nil {
			return nil, err
		}
		if !accepted {
			return nil, fmt.Errorf("ChecksumMismatch: fragment %d abandoned by server after retry budget exhausted", response.SequenceIndex)
		}

		stack.Push(merge.SortDescending(response.Numbers))
		received++
	}

	if stack == nil {
		return []float64{}, nil
	}
	return stack.Finish(), nil
}

// ackFragment recomputes the checksum for one fragment and acks it,
// retrying receipt (not resend — the client never initiates retries,
// per spec.md §4.5) until the checksum matches or the per-fragment
// retry budget is spent.
func (h *Handler) ackFragment(ctx context.Context, response *protocol.NumberSequenceResponse) (bool, error) {
	buffer := make([]byte, protocol.MessageMaxSize)
	current := response

	for attempt := 0; ; attempt++ {
		recomputed := protocol.Checksum(current.Numbers)
		verdict := protocol.AckInvalid
		if recomputed == current.Checksum {
			verdict = protocol.AckOK
		}

		ack := &protocol.NumberSequenceAckRequest{
			SequenceIndex: current.SequenceIndex,
			Ack:           verdict,
			Checksum:      recomputed,
		}
		if _, err := h.socket.Send(wire.EncodeNumberSequenceAckRequest(ack), h.server); err != nil {
			return false, err
		}

		if verdict == protocol.AckOK {
			response.Numbers = current.Numbers
			return true, nil
		}

		if attempt >= protocol.MaxRetries {
			return false, nil
		}

		data, _, err := h.receive(ctx, buffer)
		if err != nil {
			return false, err
		}
		retry, err := wire.DecodeNumberSequenceResponse(data)
		if err != nil {
			return false, fmt.Errorf("DecodeError: %w", err)
		}
		current = retry
	}
}

func (h *Handler) receive(ctx context.Context, buffer []byte) ([]byte, *net.UDPAddr, error) {
	type result struct {
		data []byte
		peer *net.UDPAddr
		err  error
	}

	done := make(chan result, 1)
	go func() {
		data, peer, err := h.socket.Receive(buffer)
		done <- result{data, peer, err}
	}()

	select {
	case r := <-done:
		return r.data, r.peer, r.err
	case <-ctx.Done():
		h.socket.Close()
		return nil, nil, ctx.Err()
	}
}

// PersistResult writes a completed run's numbers to path in the
// persisted output format from spec.md §6.
func PersistResult(path string, result *Result) error {
	return persist.Write(path, result.Numbers)
}
