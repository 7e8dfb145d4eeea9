package dataplane

import (
	"fastrelay/internal/global"
	"fastrelay/internal/packet"
	"fmt"
	"net"
	"strconv"
)

// Dials the admission consumer for queue
func NewForwarder(namespace []string, queue int, address string) (new *Forwarder, err error) {
	conn, err := net.Dial("udp", address)
	if err != nil {
		err = fmt.Errorf("failed to dial admission consumer %s: %w", address, err)
		return
	}

	new = &Forwarder{
		Namespace: append(append([]string(nil), namespace...), global.NSAdmission, strconv.Itoa(queue)),
		address:   address,
		conn:      conn,
	}
	return
}

// Sends the UDP payload of frame to the consumer
func (forwarder *Forwarder) WriteFrame(frame []byte) (err error) {
	view, err := packet.Parse(frame)
	if err != nil {
		forwarder.Metrics.Failed.Add(1)
		err = fmt.Errorf("failed to parse redirected frame: %w", err)
		return
	}

	_, err = forwarder.conn.Write(view.Payload())
	if err != nil {
		forwarder.Metrics.Failed.Add(1)
		err = fmt.Errorf("failed to forward to %s: %w", forwarder.address, err)
		return
	}
	forwarder.Metrics.Forwarded.Add(1)
	return
}

func (forwarder *Forwarder) Address() (address string) {
	address = forwarder.address
	return
}

func (forwarder *Forwarder) Close() (err error) {
	err = forwarder.conn.Close()
	return
}
