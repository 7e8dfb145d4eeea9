package ebpf

import (
	"fastrelay/internal/directory"
	"fastrelay/pkg/protocol"
	"sync"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
)

// struct node_info as the relay program reads it
type kernelNode struct {
	IP   uint32  // network order bytes read as a host integer
	Port uint16  // network order
	MAC  [6]byte // zero keeps the frame's destination MAC
}

// struct targets
type kernelTargets struct {
	Entries  [directory.MaxTargets]kernelNode
	MaxCount uint16
	_        [2]byte
}

// Where and how the relay program is attached
type Options struct {
	ObjectPath    string // compiled relay object
	PinPath       string // bpffs directory for shared maps
	Ifindex       int
	AttachXDP     bool // also attach the admission program at ingress
	AdmissionPort uint16
}

// Loaded relay program and the control plane view of its maps
type Host struct {
	opts       Options
	collection *ebpf.Collection
	links      []link.Link

	mutex      sync.Mutex
	pushedKeys map[protocol.RoutingKey]struct{}
	pushedSeed map[protocol.RoutingKey]struct{}
	pinned     []string
}
