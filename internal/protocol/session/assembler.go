package session

import (
	"bytes"
	"context"
	"errors"

	"github.com/danmuck/rconctl/internal/observability"
	"github.com/danmuck/rconctl/internal/protocol"
	"github.com/danmuck/rconctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// AuthFailureID is the id a server puts on its reply to an unauthenticated client.
const AuthFailureID int32 = -1

// Receiver is the read side of a Transport.
type Receiver interface {
	Receive(ctx context.Context, maxBytes int) ([]byte, error)
}

// Response is one reassembled logical reply.
type Response struct {
	Body       string
	Fragments  int
	AuthFailed bool
}

// Assembler drains the socket and stitches response fragments back together.
// It is not safe for concurrent use; Session serializes callers.
type Assembler struct {
	rx     Receiver
	limits frame.Limits
	chunk  int
	buf    []byte
}

func NewAssembler(rx Receiver, cfg Config) *Assembler {
	cfg = cfg.WithDefaults()
	return &Assembler{
		rx:     rx,
		limits: cfg.Limits,
		chunk:  cfg.ReceiveChunk,
	}
}

// Await collects the reply to execID. The reply to decoyID can only arrive after
// every fragment of execID, so it completes the response. Frames carrying any
// other id are dropped.
func (a *Assembler) Await(ctx context.Context, execID, decoyID int32) (Response, error) {
	var body bytes.Buffer
	fragments := 0
	for {
		for {
			p, n, err := frame.Decode(a.buf, a.limits)
			if errors.Is(err, frame.ErrIncomplete) {
				break
			}
			if err != nil {
				return Response{}, err
			}
			a.consume(n)

			switch p.ID {
			case execID:
				body.Write(p.Body)
				fragments++
				observability.RecordFragment()
			case decoyID:
				return Response{Body: body.String(), Fragments: fragments}, nil
			case AuthFailureID:
				log.Debug().Int32("exec_id", execID).Msg("server rejected request as unauthenticated")
				return Response{AuthFailed: true}, nil
			default:
				log.Debug().
					Int32("id", p.ID).
					Str("type", p.Type.Inbound()).
					Int32("exec_id", execID).
					Int32("decoy_id", decoyID).
					Msg("dropping packet with unexpected id")
				observability.RecordDropped("unknown_id")
			}
		}

		data, err := a.rx.Receive(ctx, a.chunk)
		if err != nil {
			return Response{}, err
		}
		if len(data) == 0 {
			return Response{}, protocol.ErrConnectionClosed
		}
		a.buf = append(a.buf, data...)
	}
}

// Buffered reports bytes received but not yet consumed by a response.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

func (a *Assembler) consume(n int) {
	a.buf = a.buf[n:]
	if len(a.buf) == 0 {
		a.buf = nil
	}
}
