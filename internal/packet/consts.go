package packet

const (
	ethHdrLen     int    = 14
	ethTypeOffset int    = 12
	ethTypeIPv4   uint16 = 0x0800
	macLen        int    = 6

	ipv4MinHdrLen  int    = 20
	ipv4Version    byte   = 4
	ipv4FragMask   uint16 = 0x1fff
	ipv4TTLDefault int    = 64
	offIPTotalLen  int    = 2
	offIPFragment  int    = 6
	offIPProto     int    = 9
	offIPChecksum  int    = 10
	offIPSrc       int    = 12
	offIPDst       int    = 16
	protoUDP       byte   = 17

	udpHdrLen      int = 8
	offUDPSrcPort  int = 0
	offUDPDstPort  int = 2
	offUDPLength   int = 4
	offUDPChecksum int = 6
)
