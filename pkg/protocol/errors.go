package protocol

import "errors"

// Returned unwrapped on the packet path so classification never allocates.
var (
	ErrTruncated = errors.New("payload truncated")
	ErrMalformed = errors.New("payload malformed")
)
