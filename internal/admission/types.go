package admission

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrUnbound      = errors.New("queue has no bound socket")
	ErrInvalidQueue = errors.New("invalid queue id")
)

// Destination for redirected frames
type Socket interface {
	WriteFrame(frame []byte) (err error)
}

// Queue to socket bindings consulted ahead of all other processing.
// Bindings are published copy-on-write.
type Filter struct {
	bindings atomic.Pointer[map[int]Socket]
	writeMu  sync.Mutex
	port     uint16 // 0 admits every frame of a bound queue
}
