package network

import (
	"fmt"
	"net"
)

// Determines the interface and source address used to reach an IPv4 destination
func InterfaceForDestination(destination net.IP) (iface *net.Interface, source net.IP, err error) {
	if destination.To4() == nil {
		err = fmt.Errorf("invalid IPv4 destination address: %s", destination)
		return
	}

	// Connecting a UDP socket sends nothing but resolves the route
	conn, dialErr := net.Dial("udp4", net.JoinHostPort(destination.String(), "9"))
	if dialErr != nil {
		err = fmt.Errorf("failed to find interface for destination %s: %w", destination, dialErr)
		return
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	source = localAddr.IP.To4()
	iface, err = getInterfaceForAddress(localAddr.IP.String())
	return
}
