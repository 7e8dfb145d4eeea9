package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fastrelay/internal/directory"
	"net"
	"testing"
)

func testFrame(t *testing.T, payload []byte) (frame []byte) {
	t.Helper()
	frame, err := Build(FrameSpec{
		SrcMAC:  net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01},
		DstMAC:  net.HardwareAddr{0x02, 0, 0, 0, 0, 0x02},
		SrcIP:   net.IPv4(192, 168, 1, 10),
		DstIP:   net.IPv4(192, 168, 1, 20),
		SrcPort: 40000,
		DstPort: 8000,
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("failed to build test frame: %v", err)
	}
	return
}

func TestBuildAndParse(t *testing.T) {
	payload := []byte(`{"Type":1,"Count":0,"Mapkey":042}`)
	frame := testFrame(t, payload)

	if len(frame) != ethHdrLen+ipv4MinHdrLen+udpHdrLen+len(payload) {
		t.Fatalf("unexpected frame length %d", len(frame))
	}

	view, err := Parse(frame)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !bytes.Equal(view.Payload(), payload) {
		t.Errorf("payload mismatch: got %q", view.Payload())
	}
	if view.SrcIP() != [4]byte{192, 168, 1, 10} || view.DstIP() != [4]byte{192, 168, 1, 20} {
		t.Errorf("address mismatch: %s", view)
	}
	if view.SrcPort() != 40000 || view.DstPort() != 8000 {
		t.Errorf("port mismatch: %s", view)
	}
	if view.DstMAC() != [6]byte{0x02, 0, 0, 0, 0, 0x02} {
		t.Errorf("unexpected destination mac %x", view.DstMAC())
	}
	if Checksum(view.IPHeader()) != 0 {
		t.Errorf("built ipv4 header does not verify")
	}
}

func TestBuildRejects(t *testing.T) {
	tests := []struct {
		name string
		spec FrameSpec
	}{
		{
			name: "short mac",
			spec: FrameSpec{SrcMAC: net.HardwareAddr{1, 2}, DstMAC: make(net.HardwareAddr, 6), SrcIP: net.IPv4(1, 1, 1, 1), DstIP: net.IPv4(2, 2, 2, 2)},
		},
		{
			name: "ipv6 destination",
			spec: FrameSpec{SrcMAC: make(net.HardwareAddr, 6), DstMAC: make(net.HardwareAddr, 6), SrcIP: net.IPv4(1, 1, 1, 1), DstIP: net.ParseIP("2001:db8::1")},
		},
		{
			name: "oversized payload",
			spec: FrameSpec{SrcMAC: make(net.HardwareAddr, 6), DstMAC: make(net.HardwareAddr, 6), SrcIP: net.IPv4(1, 1, 1, 1), DstIP: net.IPv4(2, 2, 2, 2), Payload: make([]byte, 0x10000)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.spec)
			if err == nil {
				t.Errorf("expected error but got nil")
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	valid := testFrame(t, []byte("hello"))

	mutate := func(f func(b []byte) []byte) []byte {
		return f(Clone(valid))
	}

	tests := []struct {
		name    string
		frame   []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncated},
		{"ethernet only", valid[:ethHdrLen], ErrTruncated},
		{"short ipv4", valid[:ethHdrLen+10], ErrTruncated},
		{"short udp", valid[:ethHdrLen+ipv4MinHdrLen+4], ErrTruncated},
		{"arp ethertype", mutate(func(b []byte) []byte { b[12], b[13] = 0x08, 0x06; return b }), ErrNotIPv4},
		{"ipv6 version nibble", mutate(func(b []byte) []byte { b[ethHdrLen] = 0x65; return b }), ErrNotIPv4},
		{"ihl below minimum", mutate(func(b []byte) []byte { b[ethHdrLen] = 0x44; return b }), ErrMalformed},
		{"ihl beyond frame", mutate(func(b []byte) []byte { b[ethHdrLen] = 0x4f; return b }), ErrTruncated},
		{"tcp", mutate(func(b []byte) []byte { b[ethHdrLen+offIPProto] = 6; return b }), ErrNotUDP},
		{"later fragment", mutate(func(b []byte) []byte { b[ethHdrLen+offIPFragment+1] = 0x10; return b }), ErrFragment},
		{"total length below headers", mutate(func(b []byte) []byte { b[ethHdrLen+offIPTotalLen], b[ethHdrLen+offIPTotalLen+1] = 0, 3; return b }), ErrMalformed},
		{"total length covers only ip header", mutate(func(b []byte) []byte { b[ethHdrLen+offIPTotalLen], b[ethHdrLen+offIPTotalLen+1] = 0, 20; return b }), ErrMalformed},
		{"total length beyond frame", mutate(func(b []byte) []byte { b[ethHdrLen+offIPTotalLen], b[ethHdrLen+offIPTotalLen+1] = 0x05, 0xdc; return b }), ErrTruncated},
		{"truncated datagram", valid[:len(valid)-2], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.frame)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseAllPrefixes(t *testing.T) {
	frame := testFrame(t, []byte(`{"Type":1,"Count":3,"Mapkey":001}`))
	for n := 0; n <= len(frame); n++ {
		view, err := Parse(frame[:n])
		if err != nil {
			continue
		}
		// Any view that parses must expose in-bounds fields
		_ = view.Payload()
		_ = view.String()
	}
}

func TestParseOptionsAndPadding(t *testing.T) {
	payload := []byte("abc")
	base := testFrame(t, payload)

	// Insert 4 bytes of IPv4 options (NOPs) and 10 bytes of trailing padding
	var frame []byte
	frame = append(frame, base[:ethHdrLen+ipv4MinHdrLen]...)
	frame = append(frame, 1, 1, 1, 1)
	frame = append(frame, base[ethHdrLen+ipv4MinHdrLen:]...)
	frame = append(frame, make([]byte, 10)...)
	frame[ethHdrLen] = 0x46
	frame[ethHdrLen+offIPTotalLen+1] += 4

	view, err := Parse(frame)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(view.IPHeader()) != 24 {
		t.Errorf("expected 24 byte ip header, got %d", len(view.IPHeader()))
	}
	if !bytes.Equal(view.Payload(), payload) {
		t.Errorf("padding leaked into payload: %q", view.Payload())
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  uint16
	}{
		{"empty", nil, 0xffff},
		// RFC 1071 section 3 example words
		{"rfc example", []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}, ^uint16(0xddf2)},
		{"odd length", []byte{0x01}, ^uint16(0x0100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Checksum(tt.input)
			if got != tt.want {
				t.Errorf("expected %#04x, got %#04x", tt.want, got)
			}
		})
	}
}

func TestRetarget(t *testing.T) {
	payload := []byte(`{"Type":1,"Count":0,"Mapkey":042}`)

	tests := []struct {
		name    string
		target  directory.TargetEntry
		wantMAC [6]byte
	}{
		{
			name:    "with mac",
			target:  directory.TargetEntry{Addr: [4]byte{10, 0, 0, 1}, Port: 9000, MAC: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}},
			wantMAC: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		},
		{
			name:    "without mac keeps destination",
			target:  directory.TargetEntry{Addr: [4]byte{10, 0, 0, 2}, Port: 9001},
			wantMAC: [6]byte{0x02, 0, 0, 0, 0, 0x02},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := testFrame(t, payload)
			udp := ethHdrLen + ipv4MinHdrLen
			binary.BigEndian.PutUint16(frame[udp+offUDPChecksum:], 0xbeef)

			err := Retarget(frame, tt.target)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			view, err := Parse(frame)
			if err != nil {
				t.Fatalf("retargeted frame does not parse: %v", err)
			}
			if view.DstIP() != tt.target.Addr {
				t.Errorf("expected dst %v, got %v", tt.target.Addr, view.DstIP())
			}
			if view.DstPort() != tt.target.Port {
				t.Errorf("expected port %d, got %d", tt.target.Port, view.DstPort())
			}
			if view.DstMAC() != tt.wantMAC {
				t.Errorf("expected mac %x, got %x", tt.wantMAC, view.DstMAC())
			}
			if view.SrcIP() != [4]byte{192, 168, 1, 10} || view.SrcPort() != 40000 {
				t.Errorf("source fields changed: %s", view)
			}
			if binary.BigEndian.Uint16(frame[udp+offUDPChecksum:]) != 0 {
				t.Errorf("udp checksum not cleared")
			}
			if Checksum(view.IPHeader()) != 0 {
				t.Errorf("ipv4 checksum does not verify after retarget")
			}
			if !bytes.Equal(view.Payload(), payload) {
				t.Errorf("payload modified: %q", view.Payload())
			}
		})
	}
}

func TestRetargetInvalidFrame(t *testing.T) {
	frame := []byte{1, 2, 3}
	err := Retarget(frame, directory.TargetEntry{Addr: [4]byte{1, 1, 1, 1}, Port: 1})
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	if !bytes.Equal(frame, []byte{1, 2, 3}) {
		t.Errorf("invalid frame was modified")
	}
}

func TestReflect(t *testing.T) {
	frame := testFrame(t, []byte(`{"Type":3,"Count":0,"Mapkey":001,"Stamp":1000}`))

	err := Reflect(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := Parse(frame)
	if err != nil {
		t.Fatalf("reflected frame does not parse: %v", err)
	}
	if view.SrcIP() != [4]byte{192, 168, 1, 20} || view.DstIP() != [4]byte{192, 168, 1, 10} {
		t.Errorf("addresses not swapped: %s", view)
	}
	if view.SrcPort() != 8000 || view.DstPort() != 40000 {
		t.Errorf("ports not swapped: %s", view)
	}
	if view.DstMAC() != [6]byte{0x02, 0, 0, 0, 0, 0x01} {
		t.Errorf("mac not swapped: %x", view.DstMAC())
	}
	if !bytes.Equal(frame[macLen:2*macLen], []byte{0x02, 0, 0, 0, 0, 0x02}) {
		t.Errorf("source mac not swapped: %x", frame[macLen:2*macLen])
	}
	if Checksum(view.IPHeader()) != 0 {
		t.Errorf("ipv4 checksum does not verify after reflect")
	}

	// Reflecting twice restores the addressing
	err = Reflect(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, _ = Parse(frame)
	if view.SrcIP() != [4]byte{192, 168, 1, 10} || view.DstPort() != 8000 {
		t.Errorf("double reflect did not restore: %s", view)
	}
}

func TestCloneIndependent(t *testing.T) {
	frame := testFrame(t, []byte("payload"))
	clone := Clone(frame)
	if !bytes.Equal(frame, clone) {
		t.Fatalf("clone differs from source")
	}

	err := Retarget(clone, directory.TargetEntry{Addr: [4]byte{10, 9, 9, 9}, Port: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, _ := Parse(frame)
	if view.DstIP() != [4]byte{192, 168, 1, 20} {
		t.Errorf("modifying the clone changed the source frame")
	}
}
