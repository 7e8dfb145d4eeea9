// Per-frame run-to-completion processing.
// Order: admission, header parse, classification, then either the relay
// dispatcher (broadcast) or the freshness reconciler (metadata).
package pipeline

import (
	"context"
	"fastrelay/internal/admission"
	"fastrelay/internal/directory"
	"fastrelay/internal/freshness"
	"fastrelay/internal/packet"
	"fastrelay/internal/relay"
	"fastrelay/pkg/protocol"
	"fmt"
)

// Upper bound on activations spawned by one received frame
const MaxActivations int = directory.MaxTargets + 1

func New(filter *admission.Filter, targets relay.Targets, reconciler *freshness.Reconciler) (new *Engine) {
	if filter == nil {
		filter = admission.New(0)
	}
	if reconciler == nil {
		reconciler = freshness.New()
	}
	new = &Engine{
		admission:  filter,
		dispatcher: relay.New(targets),
		reconciler: reconciler,
	}
	return
}

// Processes one frame to a definite disposition
func (engine *Engine) Process(ctx context.Context, pkt Packet) (result Result) {
	defer engine.record(&result)

	if !pkt.Reentry && engine.admission.ShouldRedirect(pkt.Queue) && engine.admission.Matches(pkt.Frame) {
		err := engine.admission.Redirect(pkt.Queue, pkt.Frame)
		if err != nil {
			// Socket refused the frame, the stack still gets it
			result.Disposition = Pass
			result.Err = err
			return
		}
		result.Disposition = Redirect
		return
	}

	view, err := packet.Parse(pkt.Frame)
	if err != nil {
		result.Disposition = Pass
		result.Err = err
		return
	}

	payload := view.Payload()
	result.Type, err = protocol.Classify(payload)
	if err != nil {
		result.Disposition = Pass
		result.Err = err
		return
	}

	switch result.Type {
	case protocol.Broadcast:
		engine.broadcast(pkt.Frame, &result)
	case protocol.Metadata:
		engine.metadata(pkt.Frame, payload, &result)
	default:
		result.Disposition = Pass
	}
	return
}

func (engine *Engine) broadcast(frame []byte, result *Result) {
	outcome := engine.dispatcher.Dispatch(frame)
	result.Clone = outcome.Clone
	result.Key = outcome.Key
	result.Err = outcome.Err

	switch outcome.State {
	case relay.Relay:
		result.Disposition = Relay
		result.Index = outcome.Index
	case relay.Shot:
		result.Disposition = Drop
	default:
		result.Disposition = Pass
	}
}

func (engine *Engine) metadata(frame []byte, payload []byte, result *Result) {
	key, err := protocol.RoutingKeyOf(payload)
	if err != nil {
		result.Disposition = Pass
		result.Err = err
		return
	}
	result.Key = key

	timestamp, err := protocol.TimestampOf(payload)
	if err != nil {
		result.Disposition = Pass
		result.Err = err
		return
	}
	result.Timestamp = timestamp

	decision, current := engine.reconciler.Reconcile(key, timestamp)
	switch decision {
	case freshness.Drop:
		result.Disposition = Drop
	case freshness.Adopt:
		result.Disposition = Adopt
	case freshness.Bounce:
		subtype, _ := protocol.Subtype(payload)
		if subtype == protocol.SubtypeMetadataResponse {
			// Responses are never answered, two stale peers would ping-pong
			result.Disposition = Drop
			return
		}
		// Answer with our value as a response so the peer adopts or drops it
		err = protocol.EncodeSubtype(payload, protocol.SubtypeMetadataResponse)
		if err != nil {
			result.Disposition = Drop
			result.Err = err
			return
		}
		// A value wider than the stamp field leaves the stale stamp, the peer drops that response
		protocol.EncodeTimestamp(payload, current)

		err = packet.Reflect(frame)
		if err != nil {
			result.Disposition = Drop
			result.Err = err
			return
		}
		result.Disposition = Bounce
	default:
		result.Disposition = SlowPath
	}
}

// Processes a frame and every clone it spawns, calling emit for each
// activation in order. Stops early when ctx is cancelled.
func (engine *Engine) Drain(ctx context.Context, pkt Packet, emit func(pkt Packet, result Result)) (activations int, err error) {
	pending := []Packet{pkt}
	for len(pending) > 0 {
		if ctx.Err() != nil {
			err = ctx.Err()
			return
		}
		if activations >= MaxActivations {
			err = fmt.Errorf("frame spawned more than %d activations", MaxActivations)
			return
		}

		current := pending[0]
		pending = pending[1:]

		result := engine.Process(ctx, current)
		activations++
		if emit != nil {
			emit(current, result)
		}

		if result.Clone != nil {
			pending = append(pending, Packet{Queue: current.Queue, Frame: result.Clone, Reentry: true})
		}
	}
	return
}

// Counter snapshot
func (engine *Engine) Stats() (stats Stats) {
	for i := range engine.counts {
		stats.Dispositions[i] = engine.counts[i].Load()
	}
	stats.Clones = engine.clones.Load()
	stats.Errors = engine.errored.Load()
	return
}

func (engine *Engine) record(result *Result) {
	if int(result.Disposition) < DispositionCount {
		engine.counts[result.Disposition].Add(1)
	}
	if result.Clone != nil {
		engine.clones.Add(1)
	}
	if result.Err != nil {
		engine.errored.Add(1)
	}
}
