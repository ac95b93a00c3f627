// Package server implements the server half of the protocol: the
// per-peer S0/S1/S2 session state machine from spec.md §4.3 and the
// number generator from §4.4. It is grounded in the teacher's
// source/server/server.go, which dispatches every inbound UDP datagram
// to its own goroutine (go s.raknet.HandlePacket(data, addr)) and keeps
// per-peer state in a protocol.Session guarded by its own mutex
// (source/protocol/raknet.go); here that per-peer state is narrowed to
// the one thing spec.md §3 requires the server to remember: the set of
// numbers already sent to that peer during the current generation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/ventosilenzioso/numberstream/internal/obslog"
	"github.com/ventosilenzioso/numberstream/internal/protocol"
	"github.com/ventosilenzioso/numberstream/internal/transport"
	"github.com/ventosilenzioso/numberstream/internal/wire"
)

// Handler owns the shared socket and the table of live per-peer
// sessions. One Handler serves every client connected to one bound
// port.
type Handler struct {
	socket         *transport.Socket
	log            *obslog.Logger
	maxPerFragment uint64

	mu       sync.Mutex
	sessions map[string]*peerSession
}

// peerSession is the per-peer state the spec requires: the uniqueness
// set for the generation currently in flight, plus the inbox a
// dedicated goroutine drains to run that peer's state machine.
type peerSession struct {
	addr    *net.UDPAddr
	inbox   chan []byte
	seen    map[float64]struct{}
	version uint32
}

// NewHandler derives max_per_fragment once and returns a ready Handler.
func NewHandler(socket *transport.Socket, log *obslog.Logger) *Handler {
	return &Handler{
		socket:         socket,
		log:            log,
		maxPerFragment: maxPerFragmentFor(protocol.MessageMaxSize),
		sessions:       make(map[string]*peerSession),
	}
}

// Run is the server's central receive loop: it owns the only read side
// of the shared socket and fans each datagram out to the goroutine
// running that peer's session, creating one if this is the peer's first
// datagram. It returns when ctx is cancelled or the socket is closed.
func (h *Handler) Run(ctx context.Context) error {
	closeErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		closeErr <- h.socket.Close()
	}()

	buffer := make([]byte, protocol.MessageMaxSize)
	for {
		select {
		case <-ctx.Done():
			return shutdownError(ctx.Err(), <-closeErr)
		default:
		}

		data, peer, err := h.socket.Receive(buffer)
		if err != nil {
			if ctx.Err() != nil {
				return shutdownError(ctx.Err(), <-closeErr)
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			h.log.Warn("transport receive error: %v", err)
			continue
		}

		session := h.sessionFor(ctx, peer)
		select {
		case session.inbox <- data:
		default:
			h.log.Warn("peer %s session inbox full, dropping datagram", peer.String())
		}
	}
}

// shutdownError combines the reason Run is returning with any error the
// socket teardown goroutine produced, since both can carry independent
// information worth surfacing to the caller.
func shutdownError(cause, closeErr error) error {
	var result *multierror.Error
	result = multierror.Append(result, cause)
	if closeErr != nil {
		result = multierror.Append(result, closeErr)
	}
	return result.ErrorOrNil()
}

// sessionFor returns the peer's existing session or creates one and
// spawns the goroutine that runs its S0->S1->S2 state machine.
func (h *Handler) sessionFor(ctx context.Context, peer *net.UDPAddr) *peerSession {
	key := peer.String()

	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[key]; ok {
		return session
	}

	session := &peerSession{
		addr:  peer,
		inbox: make(chan []byte, 8),
		seen:  make(map[float64]struct{}),
	}
	h.sessions[key] = session

	sessionLog := h.log.With("session", uuid.NewString()).With("peer", key)
	go h.runSession(ctx, session, sessionLog)

	return session
}

// dropSession releases a peer's state. Resolves the §9 open question in
// favor of releasing on every exit path: success, error, or timeout.
func (h *Handler) dropSession(peer *net.UDPAddr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, peer.String())
}

// runSession drives one peer through S0 (await version) -> S1 (version
// replied) -> S2 (generating) exactly as spec.md §4.3 describes. Any
// transport failure or malformed datagram ends the session; the outer
// Run loop keeps serving the next peer regardless (spec.md §7: "the
// server never terminates on a session error").
func (h *Handler) runSession(ctx context.Context, session *peerSession, log *obslog.Logger) {
	defer h.dropSession(session.addr)

	if err := h.awaitVersion(ctx, session, log); err != nil {
		log.Warn("session ended in version handshake: %v", err)
		return
	}

	request, err := h.awaitSequenceRequest(ctx, session, log)
	if err != nil {
		log.Warn("session ended awaiting sequence request: %v", err)
		return
	}
	if request == nil {
		return
	}

	if err := h.runGeneration(ctx, session, log, request); err != nil {
		log.Warn("session ended mid-generation: %v", err)
		return
	}

	log.Success("generation session complete")
}

// awaitVersion implements S0 -> S1.
func (h *Handler) awaitVersion(ctx context.Context, session *peerSession, log *obslog.Logger) error {
	data, err := h.receive(ctx, session)
	if err != nil {
		return err
	}

	request, err := wire.DecodeProtocolVersionRequest(data)
	if err != nil {
		return fmt.Errorf("DecodeError: %w", err)
	}

	response := &protocol.ProtocolVersionResponse{ProtocolVersion: protocol.Version}
	switch {
	case request.ProtocolVersion < protocol.Version:
		response.Error = protocol.ClientTooOld
		response.ErrorMessage = fmt.Sprintf("Client is too old. Minimum supported version is %d", protocol.Version)
	case request.ProtocolVersion > protocol.Version:
		response.Error = protocol.ClientTooNew
		response.ErrorMessage = fmt.Sprintf("Client is too new. Maximum supported version is %d", protocol.Version)
	default:
		response.Error = protocol.VersionOK
	}

	if _, err := h.socket.Send(wire.EncodeProtocolVersionResponse(response), session.addr); err != nil {
		return err
	}

	if response.Error != protocol.VersionOK {
		return fmt.Errorf("VersionMismatch: %s", response.Error)
	}

	session.version = request.ProtocolVersion
	return nil
}

// awaitSequenceRequest implements S1 -> S2's entry, including the
// upper_bound validation from spec.md §7.
func (h *Handler) awaitSequenceRequest(ctx context.Context, session *peerSession, log *obslog.Logger) (*protocol.NumberSequenceRequest, error) {
	data, err := h.receive(ctx, session)
	if err != nil {
		return nil, err
	}

	request, err := wire.DecodeNumberSequenceRequest(data)
	if err != nil {
		return nil, fmt.Errorf("DecodeError: %w", err)
	}

	if request.UpperBound <= 0 {
		response := &protocol.NumberSequenceResponse{
			Error:        protocol.InvalidUpperBound,
			ErrorMessage: "Upper bound must be greater than zero",
		}
		if _, err := h.socket.Send(wire.EncodeNumberSequenceResponse(response), session.addr); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return request, nil
}

// runGeneration implements S2: emit each fragment in order, waiting for
// an ack and retrying on ACK_INVALID up to protocol.MaxRetries times
// before abandoning the fragment and advancing (spec.md §4.3).
func (h *Handler) runGeneration(ctx context.Context, session *peerSession, log *obslog.Logger, request *protocol.NumberSequenceRequest) error {
	count := sequenceCount(request.NumberCount, h.maxPerFragment)

	for index := uint64(0); index < count; index++ {
		size := fragmentSize(index, request.NumberCount, h.maxPerFragment)

		numbers, err := generateFragment(size, request.UpperBound, session.seen)
		if err != nil {
			return fmt.Errorf("GenerationExhausted: %w", err)
		}

		response := &protocol.NumberSequenceResponse{
			NumberCount:         request.NumberCount,
			SequenceIndex:       index,
			SequenceCount:       count,
			SequenceNumberCount: size,
			Numbers:             numbers,
			Checksum:            protocol.Checksum(numbers),
			Error:               protocol.SequenceOK,
		}

		if err := h.sendFragmentWithRetries(ctx, session, log, response); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) sendFragmentWithRetries(ctx context.Context, session *peerSession, log *obslog.Logger, response *protocol.NumberSequenceResponse) error {
	encoded := wire.EncodeNumberSequenceResponse(response)

	retries := 0
	for {
		if _, err := h.socket.Send(encoded, session.addr); err != nil {
			return err
		}

		data, err := h.receive(ctx, session)
		if err != nil {
			return err
		}

		ack, err := wire.DecodeNumberSequenceAckRequest(data)
		if err != nil {
			return fmt.Errorf("DecodeError: %w", err)
		}

		if ack.SequenceIndex != response.SequenceIndex {
			log.Warn("ack for stale fragment %d while awaiting %d, ignoring", ack.SequenceIndex, response.SequenceIndex)
			continue
		}

		if ack.Ack == protocol.AckOK {
			return nil
		}

		retries++
		if retries > protocol.MaxRetries {
			log.Warn("fragment %d abandoned after %d retries", response.SequenceIndex, protocol.MaxRetries)
			return nil
		}

		log.Debug("fragment %d NACKed (attempt %d/%d), retransmitting", response.SequenceIndex, retries, protocol.MaxRetries)
	}
}

// receive blocks until the peer's next datagram arrives, ctx is
// cancelled, or the session goes idle past protocol.SessionIdleTimeout.
func (h *Handler) receive(ctx context.Context, session *peerSession) ([]byte, error) {
	timer := time.NewTimer(protocol.SessionIdleTimeout)
	defer timer.Stop()

	select {
	case data := <-session.inbox:
		return data, nil
	case <-timer.C:
		return nil, fmt.Errorf("TransportError: peer %s idle for %s", session.addr, protocol.SessionIdleTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
