package protocol

import (
	"fmt"
	"strconv"
)

// Writes the progress counter in place
func EncodeCounter(payload []byte, counter uint8) (err error) {
	if len(payload) <= offCounter {
		err = ErrTruncated
		return
	}
	payload[offCounter] = counter
	return
}

// Rewrites the subtype digit of a classified payload
func EncodeSubtype(payload []byte, subtype byte) (err error) {
	if len(payload) < MinClassifyLen {
		err = ErrTruncated
		return
	}
	switch subtype {
	case SubtypeBroadcast, SubtypeMetadataRequest, SubtypeMetadataResponse:
	default:
		err = ErrMalformed
		return
	}
	payload[offSubtype] = subtype
	return
}

// Overwrites the stamp digits in place. The field width is fixed by the
// payload, shorter values are zero padded; a value needing more digits than
// the field holds is rejected.
func EncodeTimestamp(payload []byte, timestamp int64) (err error) {
	if timestamp < 0 {
		err = ErrMalformed
		return
	}
	_, err = TimestampOf(payload)
	if err != nil {
		return
	}

	width := 0
	for offStampDigits+width < len(payload) && width < maxStampDigits && payload[offStampDigits+width] != stampTerminator {
		width++
	}

	digits := strconv.AppendInt(make([]byte, 0, maxStampDigits), timestamp, 10)
	if len(digits) > width {
		err = ErrTruncated
		return
	}

	field := payload[offStampDigits : offStampDigits+width]
	pad := width - len(digits)
	for i := range pad {
		field[i] = '0'
	}
	copy(field[pad:], digits)
	return
}

// Builds a payload in the positional layout:
//
//	{"Type":S,"Count":C,"Mapkey":DDD,"Stamp":N,"Data":BODY}
//
// C is the raw counter byte. An empty body is written as null.
func Encode(msg Message, body []byte) (payload []byte, err error) {
	switch msg.Subtype {
	case SubtypeBroadcast, SubtypeMetadataRequest, SubtypeMetadataResponse:
	default:
		err = fmt.Errorf("unknown subtype %q", msg.Subtype)
		return
	}
	if msg.Key > MaxRoutingKey {
		err = fmt.Errorf("routing key %d exceeds %d", msg.Key, MaxRoutingKey)
		return
	}
	if msg.Timestamp < 0 {
		err = fmt.Errorf("timestamp %d cannot be encoded as unsigned digits", msg.Timestamp)
		return
	}
	if len(body) == 0 {
		body = []byte("null")
	}

	payload = make([]byte, 0, MinMetadataLen+maxStampDigits+len(body)+10)
	payload = append(payload, `{"Type":`...)
	payload = append(payload, msg.Subtype)
	payload = append(payload, `,"Count":`...)
	payload = append(payload, msg.Counter)
	payload = append(payload, `,"Mapkey":`...)
	payload = append(payload, msg.Key.String()...)
	payload = append(payload, `,"Stamp":`...)
	payload = strconv.AppendInt(payload, msg.Timestamp, 10)
	payload = append(payload, `,"Data":`...)
	payload = append(payload, body...)
	payload = append(payload, '}')
	return
}

// Broadcast payload with a zero counter
func NewBroadcast(key RoutingKey, body []byte) (payload []byte, err error) {
	payload, err = Encode(Message{Subtype: SubtypeBroadcast, Key: key}, body)
	return
}

// Metadata exchange payload (request or response subtype)
func NewMetadata(subtype byte, key RoutingKey, timestamp int64, body []byte) (payload []byte, err error) {
	if subtype != SubtypeMetadataRequest && subtype != SubtypeMetadataResponse {
		err = fmt.Errorf("subtype %q is not a metadata subtype", subtype)
		return
	}
	payload, err = Encode(Message{Subtype: subtype, Key: key, Timestamp: timestamp}, body)
	return
}
