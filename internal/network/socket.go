package network

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Raised by ReadFrame when the receive timeout elapses without a frame
var ErrReadTimeout = errors.New("read timeout")

// AF_PACKET socket bound to one interface
type RawSocket struct {
	fd      int
	ifindex int
}

// Opens a raw socket on ifindex that joins the hash fanout group so each
// socket of the group receives a distinct flow share (one per queue).
// Frames this host transmits are not looped back to the socket.
func OpenRawSocket(ifindex int, fanoutGroup int, readTimeout time.Duration) (sock *RawSocket, err error) {
	protocol := Htons(unix.ETH_P_ALL)

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(protocol))
	if err != nil {
		err = fmt.Errorf("failed to open packet socket: %w", err)
		return
	}
	defer func() {
		if err != nil {
			unix.Close(fd)
		}
	}()

	err = unix.Bind(fd, &unix.SockaddrLinklayer{Protocol: protocol, Ifindex: ifindex})
	if err != nil {
		err = fmt.Errorf("failed to bind packet socket to interface %d: %w", ifindex, err)
		return
	}

	err = unix.SetsockoptInt(fd, unix.SOL_PACKET, unix.PACKET_IGNORE_OUTGOING, 1)
	if err != nil {
		err = fmt.Errorf("failed to ignore outgoing frames: %w", err)
		return
	}

	if fanoutGroup > 0 {
		fanoutArg := (fanoutGroup & 0xffff) | (unix.PACKET_FANOUT_HASH << 16)
		err = unix.SetsockoptInt(fd, unix.SOL_PACKET, unix.PACKET_FANOUT, fanoutArg)
		if err != nil {
			err = fmt.Errorf("failed to join fanout group %d: %w", fanoutGroup, err)
			return
		}
	}

	if readTimeout > 0 {
		tv := unix.NsecToTimeval(readTimeout.Nanoseconds())
		err = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
		if err != nil {
			err = fmt.Errorf("failed to set read timeout: %w", err)
			return
		}
	}

	sock = &RawSocket{fd: fd, ifindex: ifindex}
	return
}

// Reads one frame into buf
func (sock *RawSocket) ReadFrame(buf []byte) (n int, err error) {
	n, _, err = unix.Recvfrom(sock.fd, buf, 0)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			err = ErrReadTimeout
		}
		n = 0
	}
	return
}

// Transmits a complete Ethernet frame on the bound interface
func (sock *RawSocket) WriteFrame(frame []byte) (err error) {
	_, err = unix.Write(sock.fd, frame)
	return
}

func (sock *RawSocket) Close() (err error) {
	err = unix.Close(sock.fd)
	return
}
