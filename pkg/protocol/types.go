package protocol

import "fmt"

type MessageType uint8

const (
	Unknown MessageType = iota
	Broadcast
	Metadata
)

func (t MessageType) String() string {
	switch t {
	case Broadcast:
		return "broadcast"
	case Metadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// Selects the ordered target list applied to a broadcast packet (0-999)
type RoutingKey uint16

func (k RoutingKey) String() string {
	return fmt.Sprintf("%03d", uint16(k))
}

// Decoded view of a payload. Decoded once, the counter is re-encoded once.
type Message struct {
	Type      MessageType
	Subtype   byte       // raw subtype digit ('1', '2', '3')
	Key       RoutingKey // broadcast and metadata
	Counter   uint8      // hops already completed, raw ordinal
	Timestamp int64      // metadata only
}
