package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/rconctl/internal/protocol"
)

// Transport owns one connected stream socket. It has no protocol knowledge.
type Transport struct {
	conn net.Conn
	cfg  Config
}

// DialTransport connects to host:port. Any dial failure wraps protocol.ErrConnectionRefused.
func DialTransport(ctx context.Context, host string, port int, cfg Config) (*Transport, error) {
	cfg = cfg.WithDefaults()
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", protocol.ErrConnectionRefused, addr, err)
	}
	return NewTransport(conn, cfg), nil
}

// NewTransport wraps an already connected socket.
func NewTransport(conn net.Conn, cfg Config) *Transport {
	return &Transport{conn: conn, cfg: cfg.WithDefaults()}
}

func (t *Transport) RemoteAddr() string {
	if t.conn == nil || t.conn.RemoteAddr() == nil {
		return ""
	}
	return t.conn.RemoteAddr().String()
}

func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// Send writes one encoded frame in full.
func (t *Transport) Send(ctx context.Context, frame []byte) error {
	if err := t.conn.SetWriteDeadline(t.deadline(ctx, t.cfg.WriteTimeout)); err != nil {
		return t.classify(ctx, "write", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetWriteDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := t.conn.Write(frame); err != nil {
		return t.classify(ctx, "write", err)
	}
	return nil
}

// Receive performs one blocking read of at most maxBytes. An empty, non-nil
// result with a nil error means the peer closed the connection.
func (t *Transport) Receive(ctx context.Context, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = t.cfg.ReceiveChunk
	}
	if err := t.conn.SetReadDeadline(t.deadline(ctx, t.cfg.ReadTimeout)); err != nil {
		return nil, t.classify(ctx, "read", err)
	}
	// Registered after the deadline is set so a cancellation cannot be overwritten.
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	buf := make([]byte, maxBytes)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return []byte{}, nil
		}
		return nil, t.classify(ctx, "read", err)
	}
}

// deadline merges the configured timeout with the context deadline. The zero
// time disables the socket deadline.
func (t *Transport) deadline(ctx context.Context, timeout time.Duration) time.Time {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}
	return deadline
}

func (t *Transport) classify(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", protocol.ErrTimeout, op)
	}
	return fmt.Errorf("%w: %s: %v", protocol.ErrConnectionClosed, op, err)
}
