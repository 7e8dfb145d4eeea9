package ebpf

import (
	"fastrelay/internal/directory"
	"fastrelay/internal/network"
	"fmt"
)

// Kernel value for an ordered target list. MaxCount stays a raw ordinal.
func toKernelTargets(entries []directory.TargetEntry) (value kernelTargets, err error) {
	if len(entries) > directory.MaxTargets {
		err = fmt.Errorf("too many targets: %d exceeds %d", len(entries), directory.MaxTargets)
		return
	}

	for i, entry := range entries {
		value.Entries[i] = kernelNode{
			IP:   network.IPv4ToHostInt(entry.Addr),
			Port: network.Htons(entry.Port),
			MAC:  entry.MAC,
		}
	}
	value.MaxCount = uint16(len(entries))
	return
}

// Target list as read back from the kernel. Swapping the port twice restores
// host order.
func fromKernelTargets(value kernelTargets) (entries []directory.TargetEntry) {
	count := int(value.MaxCount)
	if count > directory.MaxTargets {
		count = directory.MaxTargets
	}

	entries = make([]directory.TargetEntry, 0, count)
	for _, node := range value.Entries[:count] {
		entries = append(entries, directory.TargetEntry{
			Addr: network.HostIntToIPv4(node.IP),
			Port: network.Htons(node.Port),
			MAC:  node.MAC,
		})
	}
	return
}
