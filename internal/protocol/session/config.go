package session

import (
	"time"

	"github.com/danmuck/rconctl/internal/protocol/frame"
)

const DefaultReceiveChunk = 4096

// Config defines transport/session defaults.
type Config struct {
	ConnectTimeout time.Duration
	// ReadTimeout bounds each socket read. Zero disables the deadline, so a peer
	// that stops answering blocks Execute until the context is cancelled.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ReceiveChunk int
	Limits       frame.Limits
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    0,
		WriteTimeout:   10 * time.Second,
		ReceiveChunk:   DefaultReceiveChunk,
		Limits:         frame.DefaultLimits(),
	}
}

// WithDefaults fills zero-valued fields that have no meaningful zero.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ReadTimeout < 0 {
		c.ReadTimeout = 0
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReceiveChunk <= 0 {
		c.ReceiveChunk = def.ReceiveChunk
	}
	if c.Limits.MaxFrameBytes <= 0 {
		c.Limits = def.Limits
	}
	return c
}
