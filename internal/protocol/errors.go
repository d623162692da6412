package protocol

import "errors"

var (
	ErrConnectionRefused    = errors.New("protocol: connection refused")
	ErrConnectionClosed     = errors.New("protocol: connection closed")
	ErrAuthenticationFailed = errors.New("protocol: authentication failed")
	ErrTimeout              = errors.New("protocol: i/o timeout")
	ErrSessionClosed        = errors.New("protocol: session closed")
)
