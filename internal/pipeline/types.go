package pipeline

import (
	"fastrelay/internal/admission"
	"fastrelay/internal/freshness"
	"fastrelay/internal/relay"
	"fastrelay/pkg/protocol"
	"sync/atomic"
)

// What the host must do with a frame after processing
type Disposition uint8

const (
	Pass     Disposition = iota // continue to the network stack unmodified
	Relay                       // transmit, frame was retargeted
	Drop                        // discard
	Bounce                      // transmit, frame was reflected to its sender
	Redirect                    // consumed by the admission socket
	SlowPath                    // metadata the core holds no slot for, deliver to the host stack
	Adopt                       // newer metadata recorded, frame consumed
)

var dispositionNames = [...]string{
	Pass:     "pass",
	Relay:    "relay",
	Drop:     "drop",
	Bounce:   "bounce",
	Redirect: "redirect",
	SlowPath: "slow-path",
	Adopt:    "adopt",
}

// Number of distinct dispositions
const DispositionCount int = len(dispositionNames)

func (d Disposition) String() string {
	if int(d) < len(dispositionNames) {
		return dispositionNames[d]
	}
	return "unknown"
}

// True when the host must put the (rewritten) frame back on the wire
func (d Disposition) Transmits() bool {
	return d == Relay || d == Bounce
}

// One frame activation
type Packet struct {
	Queue   int    // receive queue the frame arrived on
	Frame   []byte // mutated in place for Relay and Bounce
	Reentry bool   // clone produced by an earlier activation, skips admission
}

type Result struct {
	Disposition Disposition
	Clone       []byte // must re-enter as a Reentry packet
	Type        protocol.MessageType
	Key         protocol.RoutingKey
	Index       int   // target slot (Relay)
	Timestamp   int64 // metadata value (metadata dispositions)
	Err         error
}

// Read-only collaborators and disposition counters
type Engine struct {
	admission  *admission.Filter
	dispatcher *relay.Dispatcher
	reconciler *freshness.Reconciler

	counts  [DispositionCount]atomic.Uint64
	clones  atomic.Uint64
	errored atomic.Uint64
}

// Point in time copy of the engine counters
type Stats struct {
	Dispositions [DispositionCount]uint64
	Clones       uint64
	Errors       uint64
}
