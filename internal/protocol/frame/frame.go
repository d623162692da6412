package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// SizeFieldLen is the length of the leading size field, which is not counted by size itself.
	SizeFieldLen = 4
	// HeaderLen covers the size, id and type fields.
	HeaderLen = SizeFieldLen + 4 + 4
	// TrailerLen covers the body terminator and the packet terminator.
	TrailerLen = 2
	// MinSize is the smallest legal value of the size field (empty body).
	MinSize = 4 + 4 + TrailerLen
)

var (
	ErrIncomplete     = errors.New("frame: incomplete packet")
	ErrMalformedFrame = errors.New("frame: malformed packet size")
)

// Type is the packet type field. Client and server reuse numeric values with
// different meanings, so the constants are named by direction.
type Type int32

const (
	TypeResponse     Type = 0
	TypeDecoy        Type = 0
	TypeExec         Type = 2
	TypeAuthResponse Type = 2
	TypeAuth         Type = 3
)

func (t Type) String() string {
	switch t {
	case 0:
		return "RESP"
	case 2:
		return "EXEC"
	case 3:
		return "AUTH"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(t))
	}
}

// Inbound names t as sent by the server, where 2 is the auth response.
func (t Type) Inbound() string {
	switch t {
	case TypeResponse:
		return "RESP"
	case TypeAuthResponse:
		return "AUTH_RESP"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(t))
	}
}

// Packet is one wire frame.
type Packet struct {
	ID   int32
	Type Type
	Body []byte
}

// Limits constrains decode memory use.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFrameBytes: 1 << 20,
	}
}

// Encode renders p into its wire form. The body is not checked for embedded NUL bytes.
func Encode(p Packet) []byte {
	size := MinSize + len(p.Body)
	buf := make([]byte, SizeFieldLen+size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(size))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.ID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.Type))
	copy(buf[HeaderLen:], p.Body)
	// trailing two bytes are already zero
	return buf
}

// Decode parses one packet from the front of buf and reports how many bytes it used.
// ErrIncomplete means buf does not yet hold a whole packet.
func Decode(buf []byte, limits Limits) (Packet, int, error) {
	if len(buf) < SizeFieldLen {
		return Packet{}, 0, ErrIncomplete
	}
	size := int(int32(binary.LittleEndian.Uint32(buf[0:4])))
	if err := checkSize(size, limits); err != nil {
		return Packet{}, 0, err
	}
	total := SizeFieldLen + size
	if len(buf) < total {
		return Packet{}, 0, ErrIncomplete
	}
	body := make([]byte, total-TrailerLen-HeaderLen)
	copy(body, buf[HeaderLen:total-TrailerLen])
	return Packet{
		ID:   int32(binary.LittleEndian.Uint32(buf[4:8])),
		Type: Type(int32(binary.LittleEndian.Uint32(buf[8:12]))),
		Body: body,
	}, total, nil
}

// ReadPacket reads exactly one packet from r.
func ReadPacket(r io.Reader, limits Limits) (Packet, error) {
	var sizeBuf [SizeFieldLen]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return Packet{}, err
	}
	size := int(int32(binary.LittleEndian.Uint32(sizeBuf[:])))
	if err := checkSize(size, limits); err != nil {
		return Packet{}, err
	}
	buf := make([]byte, SizeFieldLen+size)
	copy(buf, sizeBuf[:])
	if _, err := io.ReadFull(r, buf[SizeFieldLen:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Packet{}, io.ErrUnexpectedEOF
		}
		return Packet{}, err
	}
	p, _, err := Decode(buf, limits)
	return p, err
}

func WritePacket(w io.Writer, p Packet) error {
	_, err := w.Write(Encode(p))
	return err
}

func checkSize(size int, limits Limits) error {
	if size < MinSize {
		return fmt.Errorf("%w: size=%d below minimum %d", ErrMalformedFrame, size, MinSize)
	}
	if limits.MaxFrameBytes > 0 && size > limits.MaxFrameBytes {
		return fmt.Errorf("%w: size=%d exceeds limit %d", ErrMalformedFrame, size, limits.MaxFrameBytes)
	}
	return nil
}
