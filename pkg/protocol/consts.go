package protocol

const (
	// Fixed payload offsets of the positional wire format
	offOpenBrace    int = 0
	offTypeT        int = 2
	offTypeE        int = 5
	offTypeColon    int = 7
	offSubtype      int = 8
	offCounter      int = 18
	offGuardM       int = 21
	offGuardP       int = 23
	offGuardY       int = 26
	offKeyDigits    int = 29
	offStampColon   int = 40
	offStampDigits  int = 41
	lenKeyDigits    int = 3
	maxStampDigits  int = 20
	stampTerminator byte = ','

	// Literal markers
	markerOpen  byte = '{'
	markerT     byte = 'T'
	markerE     byte = 'e'
	markerColon byte = ':'
	markerM     byte = 'M'
	markerP     byte = 'p'
	markerY     byte = 'y'

	// Subtype digits at offSubtype
	SubtypeBroadcast        byte = '1'
	SubtypeMetadataRequest  byte = '2'
	SubtypeMetadataResponse byte = '3'

	// Shortest payloads that can be classified/decoded
	MinClassifyLen  int = offSubtype + 1
	MinBroadcastLen int = offKeyDigits + lenKeyDigits
	MinMetadataLen  int = offStampDigits + 1

	MaxRoutingKey RoutingKey = 999
)
