package network

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Parses a dotted IPv4 address into network order bytes
func ParseIPv4(ipStr string) (addr [4]byte, err error) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		err = fmt.Errorf("invalid IP: %s", ipStr)
		return
	}
	v4Address := ip.To4()
	if v4Address == nil {
		err = fmt.Errorf("not an IPv4 address: %s", ipStr)
		return
	}
	copy(addr[:], v4Address)
	return
}

// Parses a colon separated 6 byte MAC. Empty input yields the zero MAC.
func ParseMAC(macStr string) (mac [6]byte, err error) {
	if macStr == "" {
		return
	}
	hw, err := net.ParseMAC(macStr)
	if err != nil {
		err = fmt.Errorf("invalid MAC: %w", err)
		return
	}
	if len(hw) != len(mac) {
		err = fmt.Errorf("MAC %s is not 6 bytes", macStr)
		return
	}
	copy(mac[:], hw)
	return
}

// Reinterprets network order address bytes as a host integer, the layout
// the kernel program compares against packet memory
func IPv4ToHostInt(addr [4]byte) (value uint32) {
	value = binary.NativeEndian.Uint32(addr[:])
	return
}

// Inverse of IPv4ToHostInt
func HostIntToIPv4(value uint32) (addr [4]byte) {
	binary.NativeEndian.PutUint32(addr[:], value)
	return
}

// Host to network short
func Htons(value uint16) (swapped uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], value)
	swapped = binary.NativeEndian.Uint16(buf[:])
	return
}
