package session

import "sync/atomic"

// IDAllocator hands out packet ids starting at 0. The zero value is ready to use.
// Overflow is not handled; a console session never gets close to 2^31 packets.
type IDAllocator struct {
	next atomic.Int32
}

func (a *IDAllocator) Next() int32 {
	return a.next.Add(1) - 1
}
