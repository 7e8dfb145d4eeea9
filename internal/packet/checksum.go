package packet

import "encoding/binary"

// Internet checksum (RFC 1071): ones' complement of the ones' complement sum
// of 16-bit words. Summing a header that includes a correct checksum yields 0.
func Checksum(data []byte) (csum uint16) {
	var sum uint32
	n := len(data) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(data[i:]))
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}

	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	csum = ^uint16(sum)
	return
}
