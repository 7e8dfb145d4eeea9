// Bounds-checked access to Ethernet/IPv4/UDP frames.
// A View is only produced after every header it exposes has been proven to
// lie inside the frame; it must be re-derived after the frame is cloned or
// resized.
package packet

import (
	"encoding/binary"
	"fmt"
	"net"
)

type View struct {
	frame      []byte
	l3         int // IPv4 header start
	l4         int // UDP header start
	payloadOff int
	payloadEnd int // declared end of the datagram payload
}

// Validates the Ethernet, IPv4 and UDP headers of frame
func Parse(frame []byte) (view View, err error) {
	if len(frame) < ethHdrLen {
		err = ErrTruncated
		return
	}
	if binary.BigEndian.Uint16(frame[ethTypeOffset:]) != ethTypeIPv4 {
		err = ErrNotIPv4
		return
	}

	l3 := ethHdrLen
	if len(frame) < l3+ipv4MinHdrLen {
		err = ErrTruncated
		return
	}
	if frame[l3]>>4 != ipv4Version {
		err = ErrNotIPv4
		return
	}
	ihl := int(frame[l3]&0x0f) * 4
	if ihl < ipv4MinHdrLen {
		err = ErrMalformed
		return
	}
	if len(frame) < l3+ihl {
		err = ErrTruncated
		return
	}
	if frame[l3+offIPProto] != protoUDP {
		err = ErrNotUDP
		return
	}
	if binary.BigEndian.Uint16(frame[l3+offIPFragment:])&ipv4FragMask != 0 {
		err = ErrFragment
		return
	}

	l4 := l3 + ihl
	if len(frame) < l4+udpHdrLen {
		err = ErrTruncated
		return
	}

	// Datagram must hold its own headers and fit in the captured frame
	totalLen := int(binary.BigEndian.Uint16(frame[l3+offIPTotalLen:]))
	if totalLen < ihl+udpHdrLen {
		err = ErrMalformed
		return
	}
	if totalLen > len(frame)-l3 {
		err = ErrTruncated
		return
	}

	// Ethernet padding must not be mistaken for payload
	payloadEnd := l3 + totalLen
	udpLen := int(binary.BigEndian.Uint16(frame[l4+offUDPLength:]))
	if udpLen >= udpHdrLen && l4+udpLen <= payloadEnd {
		payloadEnd = l4 + udpLen
	}

	view = View{
		frame:      frame,
		l3:         l3,
		l4:         l4,
		payloadOff: l4 + udpHdrLen,
		payloadEnd: payloadEnd,
	}
	return
}

// Underlying frame bytes
func (view View) Frame() []byte {
	return view.frame
}

// UDP payload up to the declared end, capacity capped so appends cannot reach past it
func (view View) Payload() []byte {
	return view.frame[view.payloadOff:view.payloadEnd:view.payloadEnd]
}

// IPv4 header including options
func (view View) IPHeader() []byte {
	return view.frame[view.l3:view.l4]
}

func (view View) SrcIP() (addr [4]byte) {
	copy(addr[:], view.frame[view.l3+offIPSrc:])
	return
}

func (view View) DstIP() (addr [4]byte) {
	copy(addr[:], view.frame[view.l3+offIPDst:])
	return
}

func (view View) SrcPort() uint16 {
	return binary.BigEndian.Uint16(view.frame[view.l4+offUDPSrcPort:])
}

func (view View) DstPort() uint16 {
	return binary.BigEndian.Uint16(view.frame[view.l4+offUDPDstPort:])
}

func (view View) DstMAC() (mac [6]byte) {
	copy(mac[:], view.frame[0:macLen])
	return
}

func (view View) String() string {
	src := view.SrcIP()
	dst := view.DstIP()
	return fmt.Sprintf("%s:%d -> %s:%d (%d byte payload)",
		net.IP(src[:]), view.SrcPort(),
		net.IP(dst[:]), view.DstPort(),
		view.payloadEnd-view.payloadOff)
}

// Recomputes the IPv4 header checksum in place
func (view View) updateIPChecksum() {
	hdr := view.IPHeader()
	hdr[offIPChecksum] = 0
	hdr[offIPChecksum+1] = 0
	binary.BigEndian.PutUint16(hdr[offIPChecksum:], Checksum(hdr))
}
