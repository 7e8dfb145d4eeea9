package packet

import "errors"

var (
	ErrTruncated = errors.New("frame truncated")
	ErrMalformed = errors.New("frame header malformed")
	ErrNotIPv4   = errors.New("not an IPv4 frame")
	ErrNotUDP    = errors.New("not a UDP datagram")
	ErrFragment  = errors.New("non-initial IPv4 fragment")
)
