package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/rconctl/internal/observability"
	"github.com/danmuck/rconctl/internal/protocol"
	"github.com/danmuck/rconctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// Session is one RCON conversation. Authenticate and Execute are serialized;
// a session that hits a fatal error refuses further requests and must be replaced.
type Session struct {
	mu        sync.Mutex
	transport *Transport
	assembler *Assembler
	ids       IDAllocator
	err       error
	closed    atomic.Bool
}

// Dial connects to host:port and returns an unauthenticated session.
func Dial(ctx context.Context, host string, port int, cfg Config) (*Session, error) {
	t, err := DialTransport(ctx, host, port, cfg)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("addr", t.RemoteAddr()).Msg("rcon connected")
	return New(t, cfg), nil
}

func New(t *Transport, cfg Config) *Session {
	return &Session{
		transport: t,
		assembler: NewAssembler(t, cfg),
	}
}

func (s *Session) RemoteAddr() string {
	return s.transport.RemoteAddr()
}

// Authenticate performs the login handshake. It reports false when the server
// rejects the password; the error is reserved for connection-level failures.
func (s *Session) Authenticate(ctx context.Context, password string) (bool, error) {
	resp, err := s.roundTrip(ctx, frame.TypeAuth, password, "auth")
	if err != nil {
		return false, err
	}
	ok := !resp.AuthFailed && resp.Body == ""
	log.Debug().Bool("ok", ok).Str("addr", s.RemoteAddr()).Msg("rcon auth")
	return ok, nil
}

// Execute runs one command and returns the full response text.
// With a zero read timeout and no context deadline this blocks for as long as
// the server stays silent.
func (s *Session) Execute(ctx context.Context, command string) (string, error) {
	resp, err := s.roundTrip(ctx, frame.TypeExec, command, "exec")
	if err != nil {
		return "", err
	}
	if resp.AuthFailed {
		return "", protocol.ErrAuthenticationFailed
	}
	return resp.Body, nil
}

// Close may be called while a round trip is blocked; the pending read then
// fails with protocol.ErrConnectionClosed.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.transport.Close()
}

func (s *Session) roundTrip(ctx context.Context, typ frame.Type, body string, kind string) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return Response{}, protocol.ErrSessionClosed
	}
	if s.err != nil {
		return Response{}, fmt.Errorf("%w: %v", protocol.ErrSessionClosed, s.err)
	}

	start := time.Now()
	execID := s.ids.Next()
	decoyID := s.ids.Next()

	if err := s.send(ctx, frame.Packet{ID: execID, Type: typ, Body: []byte(body)}, kind); err != nil {
		return Response{}, s.fail(kind, start, err, false)
	}
	// The decoy type is not valid for a client to send; the server answers it
	// with a single packet once the real request has been fully answered.
	if err := s.send(ctx, frame.Packet{ID: decoyID, Type: frame.TypeDecoy}, "decoy"); err != nil {
		return Response{}, s.fail(kind, start, err, false)
	}

	resp, err := s.assembler.Await(ctx, execID, decoyID)
	if err != nil {
		return Response{}, s.fail(kind, start, err, true)
	}

	outcome := "complete"
	if resp.AuthFailed {
		outcome = "auth_failed"
	}
	observability.RecordRoundTrip(kind, outcome, time.Since(start))
	log.Debug().
		Str("kind", kind).
		Int32("exec_id", execID).
		Int32("decoy_id", decoyID).
		Int("fragments", resp.Fragments).
		Int("bytes", len(resp.Body)).
		Msg("rcon round trip")
	return resp, nil
}

func (s *Session) send(ctx context.Context, p frame.Packet, label string) error {
	if err := s.transport.Send(ctx, frame.Encode(p)); err != nil {
		return err
	}
	observability.RecordPacketSent(label)
	return nil
}

// fail records the outcome and poisons the session when the stream can no
// longer be trusted. A timeout while awaiting leaves it usable: late replies
// carry stale ids and are dropped by the assembler. A failed write may have
// left half a frame on the wire, so it is always fatal.
func (s *Session) fail(kind string, start time.Time, err error, awaiting bool) error {
	outcome := "error"
	switch {
	case awaiting && isTimeout(err):
		outcome = "timeout"
	default:
		s.err = err
		_ = s.transport.Close()
	}
	observability.RecordRoundTrip(kind, outcome, time.Since(start))
	log.Warn().Str("kind", kind).Str("outcome", outcome).Err(err).Msg("rcon round trip failed")
	return err
}

func isTimeout(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, protocol.ErrTimeout)
}
