package ebpf

const (
	// Objects the compiled relay program must provide
	TargetsMapName   string = "targets_map"
	QueueMapName     string = "qidconf_map"
	SocketMapName    string = "xsks_map"
	MetadataMapName  string = "metadata_map" // optional, seeded freshness slots
	RelayProgName    string = "fastbroadcast"
	XDPProgName      string = "xdp_sock_prog"
	AdmissionPortVar string = "admission_port" // optional, port the ingress program redirects

	// Kernel side layout of struct targets
	kernelNodeSize    uint32 = 12
	kernelTargetsSize uint32 = 772
	targetsKeySize    uint32 = 2
	queueKeySize      uint32 = 4
	queueValueSize    uint32 = 4
	metadataValueSize uint32 = 8

	queueEnabled  int32 = 1
	queueDisabled int32 = 0

	bpffsRoot string = "/sys/fs/bpf"
)
