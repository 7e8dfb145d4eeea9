package packet

import (
	"encoding/binary"
	"fastrelay/internal/directory"
)

// Independent copy of frame. Views of the source stay bound to the source.
func Clone(frame []byte) (clone []byte) {
	clone = make([]byte, len(frame))
	copy(clone, frame)
	return
}

// Addresses the datagram to target: UDP destination port, IPv4 destination,
// IPv4 checksum and, when the target has one, the Ethernet destination.
// The UDP checksum is cleared (optional over IPv4).
func Retarget(frame []byte, target directory.TargetEntry) (err error) {
	view, err := Parse(frame)
	if err != nil {
		return
	}

	udp := frame[view.l4 : view.l4+udpHdrLen]
	binary.BigEndian.PutUint16(udp[offUDPDstPort:], target.Port)
	udp[offUDPChecksum] = 0
	udp[offUDPChecksum+1] = 0

	copy(frame[view.l3+offIPDst:view.l3+offIPDst+4], target.Addr[:])
	view.updateIPChecksum()

	if target.HasMAC() {
		copy(frame[0:macLen], target.MAC[:])
	}
	return
}

// Turns the frame around toward its sender: swaps Ethernet addresses,
// IPv4 addresses and UDP ports, clears the UDP checksum and refreshes the
// IPv4 checksum.
func Reflect(frame []byte) (err error) {
	view, err := Parse(frame)
	if err != nil {
		return
	}

	for i := 0; i < macLen; i++ {
		frame[i], frame[macLen+i] = frame[macLen+i], frame[i]
	}

	ip := view.IPHeader()
	for i := 0; i < 4; i++ {
		ip[offIPSrc+i], ip[offIPDst+i] = ip[offIPDst+i], ip[offIPSrc+i]
	}

	udp := frame[view.l4 : view.l4+udpHdrLen]
	srcPort := binary.BigEndian.Uint16(udp[offUDPSrcPort:])
	dstPort := binary.BigEndian.Uint16(udp[offUDPDstPort:])
	binary.BigEndian.PutUint16(udp[offUDPSrcPort:], dstPort)
	binary.BigEndian.PutUint16(udp[offUDPDstPort:], srcPort)
	udp[offUDPChecksum] = 0
	udp[offUDPChecksum+1] = 0

	view.updateIPChecksum()
	return
}
