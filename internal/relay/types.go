package relay

import (
	"errors"
	"fastrelay/internal/directory"
	"fastrelay/pkg/protocol"
)

// Final state of one dispatch
type State uint8

const (
	Inspect     State = iota // not yet decided
	PassThrough              // frame continues unmodified
	NoTarget                 // broadcast without a configured list, passes unmodified
	Relay                    // frame retargeted to the next entry
	Shot                     // frame must be dropped
)

func (s State) String() string {
	switch s {
	case PassThrough:
		return "pass"
	case NoTarget:
		return "no-target"
	case Relay:
		return "relay"
	case Shot:
		return "shot"
	default:
		return "inspect"
	}
}

// Returned bare on the packet path
var (
	ErrNoRoute   = errors.New("no target list for routing key")
	ErrEmptySlot = errors.New("target slot is empty")
	ErrCounter   = errors.New("progress counter out of range")
	ErrChainDone = errors.New("relay chain exhausted")
)

// Read side of the target directory
type Targets interface {
	Lookup(key protocol.RoutingKey) (list *directory.TargetList, found bool)
}

// Result of dispatching one frame.
// Clone, when set, carries the advanced counter and must re-enter the
// pipeline on the egress path; it is independent of the dispatched frame.
type Outcome struct {
	State   State
	Clone   []byte
	Index   int // target slot delivered to (Relay only)
	Key     protocol.RoutingKey
	Counter uint8
	Err     error
}

type Dispatcher struct {
	targets Targets
}
