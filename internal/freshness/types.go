package freshness

import (
	"fastrelay/pkg/protocol"
	"sync"
	"sync/atomic"
)

// Action for an incoming metadata value
type Decision uint8

const (
	SlowPath Decision = iota // no slot for the key, hand to the host stack
	Drop                     // already have exactly this value
	Bounce                   // sender is behind, answer with our newer value
	Adopt                    // newer than ours, recorded
)

func (d Decision) String() string {
	switch d {
	case Drop:
		return "drop"
	case Bounce:
		return "bounce"
	case Adopt:
		return "adopt"
	default:
		return "slow-path"
	}
}

// Last-writer-wins slots keyed by metadata key.
// The slot set is published copy-on-write; slot values move only forward.
type Reconciler struct {
	slots   atomic.Pointer[map[protocol.RoutingKey]*atomic.Int64]
	writeMu sync.Mutex
}
