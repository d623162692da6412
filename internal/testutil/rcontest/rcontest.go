// Package rcontest runs an in-process RCON server on loopback for tests.
package rcontest

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/rconctl/internal/protocol/frame"
	"golang.org/x/sync/errgroup"
)

// UnknownCommand is the reply for commands without a scripted response.
const UnknownCommand = "Unknown or incomplete command"

// Options scripts server behaviour.
type Options struct {
	Password  string
	Responses map[string]string
	// FragmentSize splits response bodies into packets of at most this many bytes.
	FragmentSize int
	// WriteChunk forces the server to flush its output in writes of this size.
	WriteChunk int
	// Noise sends a packet with an unrelated id ahead of every reply.
	Noise bool
	// Silent lists commands the server never answers.
	Silent map[string]bool
	// CloseOn lists commands that make the server drop the connection.
	CloseOn map[string]bool
}

// Server is a minimal Minecraft-flavoured RCON peer.
type Server struct {
	t    testing.TB
	opts Options
	ln   net.Listener
	g    errgroup.Group

	mu       sync.Mutex
	conns    []net.Conn
	received []frame.Packet
}

func NewServer(t testing.TB, opts Options) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("rcontest listen: %v", err)
	}
	if opts.FragmentSize <= 0 {
		opts.FragmentSize = 4096
	}
	s := &Server{t: t, opts: opts, ln: ln}
	s.g.Go(s.acceptLoop)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// Received returns every packet the server has read so far.
func (s *Server) Received() []frame.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]frame.Packet, len(s.received))
	copy(out, s.received)
	return out
}

func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	if err := s.g.Wait(); err != nil {
		s.t.Logf("rcontest: %v", err)
	}
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		s.g.Go(func() error {
			s.serve(conn)
			return nil
		})
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	authed := false
	for {
		p, err := frame.ReadPacket(conn, frame.DefaultLimits())
		if err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, p)
		s.mu.Unlock()

		var out []frame.Packet
		if s.opts.Noise {
			out = append(out, frame.Packet{ID: 424242, Type: frame.TypeResponse, Body: []byte("noise")})
		}

		switch p.Type {
		case frame.TypeAuth:
			if string(p.Body) == s.opts.Password {
				authed = true
				out = append(out, frame.Packet{ID: p.ID, Type: frame.TypeAuthResponse})
			} else {
				out = append(out, frame.Packet{ID: -1, Type: frame.TypeAuthResponse})
			}
		case frame.TypeExec:
			command := string(p.Body)
			if s.opts.CloseOn[command] {
				return
			}
			if s.opts.Silent[command] {
				continue
			}
			if !authed {
				out = append(out, frame.Packet{ID: -1, Type: frame.TypeResponse})
				break
			}
			body, ok := s.opts.Responses[command]
			if !ok {
				body = UnknownCommand
			}
			out = append(out, s.fragments(p.ID, body)...)
		default:
			out = append(out, frame.Packet{
				ID:   p.ID,
				Type: frame.TypeResponse,
				Body: []byte(fmt.Sprintf("Unknown request %x", int32(p.Type))),
			})
		}

		if err := s.write(conn, out); err != nil {
			return
		}
	}
}

func (s *Server) fragments(id int32, body string) []frame.Packet {
	if body == "" {
		return []frame.Packet{{ID: id, Type: frame.TypeResponse}}
	}
	var out []frame.Packet
	for len(body) > 0 {
		n := min(s.opts.FragmentSize, len(body))
		out = append(out, frame.Packet{ID: id, Type: frame.TypeResponse, Body: []byte(body[:n])})
		body = body[n:]
	}
	return out
}

func (s *Server) write(conn net.Conn, packets []frame.Packet) error {
	var buf []byte
	for _, p := range packets {
		buf = append(buf, frame.Encode(p)...)
	}
	if s.opts.WriteChunk <= 0 {
		_, err := conn.Write(buf)
		return err
	}
	for len(buf) > 0 {
		n := min(s.opts.WriteChunk, len(buf))
		if _, err := conn.Write(buf[:n]); err != nil {
			return err
		}
		buf = buf[n:]
		// Give the client a chance to observe each partial write on its own.
		time.Sleep(time.Millisecond)
	}
	return nil
}
