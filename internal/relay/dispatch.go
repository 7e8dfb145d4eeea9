// Chain relay of broadcast frames.
// The instance carrying counter c is delivered to target c. While more
// targets remain it first spawns a clone carrying c+1, so a list of k
// targets costs k-1 clones and k deliveries.
package relay

import (
	"fastrelay/internal/directory"
	"fastrelay/internal/packet"
	"fastrelay/pkg/protocol"
)

func New(targets Targets) (new *Dispatcher) {
	new = &Dispatcher{targets: targets}
	return
}

// Decides and applies the relay step for frame. The frame is only modified
// when the outcome is Relay.
func (dispatcher *Dispatcher) Dispatch(frame []byte) (outcome Outcome) {
	outcome.State = Inspect

	view, err := packet.Parse(frame)
	if err != nil {
		outcome.State = PassThrough
		outcome.Err = err
		return
	}

	payload := view.Payload()
	msgType, err := protocol.Classify(payload)
	if err != nil || msgType != protocol.Broadcast {
		outcome.State = PassThrough
		outcome.Err = err
		return
	}

	key, err := protocol.RoutingKeyOf(payload)
	if err != nil {
		outcome.State = PassThrough
		outcome.Err = err
		return
	}
	outcome.Key = key

	list, found := dispatcher.targets.Lookup(key)
	if !found || list == nil {
		outcome.State = NoTarget
		outcome.Err = ErrNoRoute
		return
	}

	counter, err := protocol.CounterOf(payload)
	if err != nil {
		outcome.State = PassThrough
		outcome.Err = err
		return
	}
	outcome.Counter = counter

	maxCount := int(list.MaxCount)
	if maxCount > directory.MaxTargets {
		maxCount = directory.MaxTargets
	}

	current := int(counter)
	if current > maxCount {
		outcome.State = Shot
		outcome.Err = ErrCounter
		return
	}
	if current == maxCount {
		outcome.State = PassThrough
		outcome.Err = ErrChainDone
		return
	}

	if current+1 < maxCount {
		clone := packet.Clone(frame)
		cloneView, err := packet.Parse(clone)
		if err != nil {
			outcome.State = Shot
			outcome.Err = err
			return
		}
		err = protocol.EncodeCounter(cloneView.Payload(), uint8(current+1))
		if err != nil {
			outcome.State = Shot
			outcome.Err = err
			return
		}
		outcome.Clone = clone
	}

	// Views do not survive a clone, prove the original again
	_, err = packet.Parse(frame)
	if err != nil {
		outcome.State = Shot
		outcome.Err = err
		return
	}

	num := current
	if num < 0 || num >= directory.MaxTargets || num >= maxCount {
		outcome.State = Shot
		outcome.Err = ErrCounter
		return
	}

	target := list.Entries[num]
	if target.IsEmpty() {
		outcome.State = PassThrough
		outcome.Err = ErrEmptySlot
		return
	}

	err = packet.Retarget(frame, target)
	if err != nil {
		outcome.State = Shot
		outcome.Err = err
		return
	}

	outcome.State = Relay
	outcome.Index = num
	return
}
