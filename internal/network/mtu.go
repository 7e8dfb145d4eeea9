package network

import (
	"fmt"
	"net"
)

const (
	ethernetOverhead int = 14 + 4 // header plus one VLAN tag
	defaultMTU       int = 1500
)

// Receive buffer size able to hold any frame of the interface
func FrameBufferSize(ifaceName string) (size int, err error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		err = fmt.Errorf("failed to look up interface %s: %w", ifaceName, err)
		return
	}
	size = frameSizeForMTU(iface.MTU)
	return
}

func frameSizeForMTU(mtu int) (size int) {
	if mtu <= 0 {
		mtu = defaultMTU
	}
	size = mtu + ethernetOverhead
	return
}
