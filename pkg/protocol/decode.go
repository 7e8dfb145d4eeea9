// Positional codec for relay payloads.
// Every accessor proves its offsets lie inside the payload before reading.
package protocol

import "math"

// Identifies the message type from the fixed type tag
func Classify(payload []byte) (msgType MessageType, err error) {
	if len(payload) < MinClassifyLen {
		err = ErrTruncated
		return
	}

	if payload[offOpenBrace] != markerOpen ||
		payload[offTypeT] != markerT ||
		payload[offTypeE] != markerE ||
		payload[offTypeColon] != markerColon {
		err = ErrMalformed
		return
	}

	switch payload[offSubtype] {
	case SubtypeBroadcast:
		msgType = Broadcast
	case SubtypeMetadataRequest, SubtypeMetadataResponse:
		msgType = Metadata
	default:
		err = ErrMalformed
	}
	return
}

// Raw subtype digit, valid only after a successful Classify
func Subtype(payload []byte) (subtype byte, err error) {
	if len(payload) < MinClassifyLen {
		err = ErrTruncated
		return
	}
	subtype = payload[offSubtype]
	return
}

// Reads the three digit routing key between its guard bytes
func RoutingKeyOf(payload []byte) (key RoutingKey, err error) {
	if len(payload) < MinBroadcastLen {
		err = ErrTruncated
		return
	}

	if payload[offGuardM] != markerM ||
		payload[offGuardP] != markerP ||
		payload[offGuardY] != markerY {
		err = ErrMalformed
		return
	}

	var value uint16
	for i := 0; i < lenKeyDigits; i++ {
		b := payload[offKeyDigits+i]
		if b < '0' || b > '9' {
			err = ErrMalformed
			return
		}
		value = value*10 + uint16(b-'0')
	}

	key = RoutingKey(value)
	return
}

// Reads the raw progress counter byte
func CounterOf(payload []byte) (counter uint8, err error) {
	if len(payload) <= offCounter {
		err = ErrTruncated
		return
	}
	counter = payload[offCounter]
	return
}

// Reads the decimal metadata timestamp following the ':' marker.
// At most maxStampDigits bytes are inspected; ',' or the payload end terminate.
func TimestampOf(payload []byte) (timestamp int64, err error) {
	if len(payload) <= offStampColon {
		err = ErrTruncated
		return
	}
	if payload[offStampColon] != markerColon {
		err = ErrMalformed
		return
	}

	var value int64
	digits := 0
	pos := offStampDigits
	for ; digits < maxStampDigits; digits++ {
		pos = offStampDigits + digits
		if pos >= len(payload) {
			break
		}

		b := payload[pos]
		if b == stampTerminator {
			break
		}
		if b < '0' || b > '9' {
			err = ErrMalformed
			return
		}

		d := int64(b - '0')
		if value > (math.MaxInt64-d)/10 {
			err = ErrMalformed
			return
		}
		value = value*10 + d
	}

	if digits == 0 {
		if offStampDigits >= len(payload) {
			err = ErrTruncated
		} else {
			err = ErrMalformed
		}
		return
	}

	// All digit slots consumed, the next byte must end the value
	if digits == maxStampDigits {
		next := offStampDigits + maxStampDigits
		if next < len(payload) && payload[next] != stampTerminator {
			err = ErrMalformed
			return
		}
	}

	timestamp = value
	return
}

// Decodes every field the message type requires
func Decode(payload []byte) (msg Message, err error) {
	msg.Type, err = Classify(payload)
	if err != nil {
		return
	}
	msg.Subtype = payload[offSubtype]

	msg.Key, err = RoutingKeyOf(payload)
	if err != nil {
		return
	}

	switch msg.Type {
	case Broadcast:
		msg.Counter, err = CounterOf(payload)
	case Metadata:
		msg.Timestamp, err = TimestampOf(payload)
	}
	return
}
