package packet

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// Inputs for assembling a complete Ethernet/IPv4/UDP frame
type FrameSpec struct {
	SrcMAC  net.HardwareAddr
	DstMAC  net.HardwareAddr
	SrcIP   net.IP
	DstIP   net.IP
	SrcPort uint16
	DstPort uint16
	TTL     int
	Payload []byte
}

// Assembles a frame with a valid IPv4 checksum and a zero UDP checksum
func Build(spec FrameSpec) (frame []byte, err error) {
	if len(spec.SrcMAC) != macLen || len(spec.DstMAC) != macLen {
		err = fmt.Errorf("mac addresses must be %d bytes", macLen)
		return
	}
	if spec.SrcIP.To4() == nil || spec.DstIP.To4() == nil {
		err = fmt.Errorf("source and destination must be IPv4 addresses")
		return
	}
	udpLen := udpHdrLen + len(spec.Payload)
	totalLen := ipv4MinHdrLen + udpLen
	if totalLen > 0xffff {
		err = fmt.Errorf("payload of %d bytes does not fit an IPv4 datagram", len(spec.Payload))
		return
	}

	ttl := spec.TTL
	if ttl == 0 {
		ttl = ipv4TTLDefault
	}

	header := ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: totalLen,
		TTL:      ttl,
		Protocol: int(protoUDP),
		Src:      spec.SrcIP.To4(),
		Dst:      spec.DstIP.To4(),
	}
	ipHdr, err := header.Marshal()
	if err != nil {
		err = fmt.Errorf("marshal ipv4 header: %w", err)
		return
	}
	// Marshal writes these in host order on some BSDs, the wire wants network order
	binary.BigEndian.PutUint16(ipHdr[2:4], uint16(totalLen))
	binary.BigEndian.PutUint16(ipHdr[offIPFragment:offIPFragment+2], 0)
	binary.BigEndian.PutUint16(ipHdr[offIPChecksum:], Checksum(ipHdr))

	frame = make([]byte, 0, ethHdrLen+totalLen)
	frame = append(frame, spec.DstMAC...)
	frame = append(frame, spec.SrcMAC...)
	frame = binary.BigEndian.AppendUint16(frame, ethTypeIPv4)
	frame = append(frame, ipHdr...)
	frame = binary.BigEndian.AppendUint16(frame, spec.SrcPort)
	frame = binary.BigEndian.AppendUint16(frame, spec.DstPort)
	frame = binary.BigEndian.AppendUint16(frame, uint16(udpLen))
	frame = binary.BigEndian.AppendUint16(frame, 0)
	frame = append(frame, spec.Payload...)
	return
}
