package directory

import (
	"fastrelay/pkg/protocol"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// Maximum entries in one target list
const MaxTargets int = 64

// One relay destination
type TargetEntry struct {
	Addr [4]byte // IPv4, network order
	Port uint16
	MAC  [6]byte
}

// Zero address or zero port marks an unpopulated slot
func (entry TargetEntry) IsEmpty() (empty bool) {
	empty = entry.Addr == [4]byte{} || entry.Port == 0
	return
}

// True when the entry carries a link-layer address to write
func (entry TargetEntry) HasMAC() (present bool) {
	present = entry.MAC != [6]byte{}
	return
}

func (entry TargetEntry) String() string {
	return fmt.Sprintf("%s:%d (%s)", net.IP(entry.Addr[:]).String(), entry.Port, net.HardwareAddr(entry.MAC[:]).String())
}

// Ordered targets for one routing key. Entries at or beyond MaxCount are never read.
type TargetList struct {
	Entries  [MaxTargets]TargetEntry
	MaxCount uint16
}

// Routing key to target list table, read lock-free from the packet path
type Directory struct {
	lists   atomic.Pointer[map[protocol.RoutingKey]*TargetList]
	writeMu sync.Mutex // serializes control plane writers
}
