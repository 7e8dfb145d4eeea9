package network

import (
	"fmt"
	"net"
	"strings"
)

// Retrieves the network interface corresponding to a specific address
func getInterfaceForAddress(address string) (iface *net.Interface, err error) {
	address = strings.TrimPrefix(address, "[")
	address = strings.TrimSuffix(address, "]")

	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}

	for _, candidate := range ifaces {
		addrs, err := candidate.Addrs()
		if err != nil {
			continue
		}

		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if ok && ipNet.IP.String() == address {
				return &candidate, nil
			}
		}
	}

	err = fmt.Errorf("no matching interface found for address %v", address)
	return
}

// First IPv4 address assigned to the interface
func InterfaceIPv4(iface *net.Interface) (addr net.IP, err error) {
	addrs, err := iface.Addrs()
	if err != nil {
		err = fmt.Errorf("failed to list addresses of %s: %w", iface.Name, err)
		return
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if ok && ipNet.IP.To4() != nil {
			addr = ipNet.IP.To4()
			return
		}
	}
	err = fmt.Errorf("interface %s has no IPv4 address", iface.Name)
	return
}
