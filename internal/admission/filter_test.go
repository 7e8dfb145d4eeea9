package admission

import (
	"bytes"
	"errors"
	"fastrelay/internal/packet"
	"net"
	"sort"
	"sync"
	"testing"
)

type recordingSocket struct {
	mutex  sync.Mutex
	frames [][]byte
	err    error
}

func (sock *recordingSocket) WriteFrame(frame []byte) (err error) {
	sock.mutex.Lock()
	defer sock.mutex.Unlock()
	if sock.err != nil {
		err = sock.err
		return
	}
	sock.frames = append(sock.frames, packet.Clone(frame))
	return
}

func udpFrame(t *testing.T, port uint16) (frame []byte) {
	t.Helper()
	frame, err := packet.Build(packet.FrameSpec{
		SrcMAC:  make(net.HardwareAddr, 6),
		DstMAC:  make(net.HardwareAddr, 6),
		SrcIP:   net.IPv4(10, 0, 0, 1),
		DstIP:   net.IPv4(10, 0, 0, 2),
		SrcPort: 1234,
		DstPort: port,
		Payload: []byte("data"),
	})
	if err != nil {
		t.Fatalf("failed to build frame: %v", err)
	}
	return
}

func TestBindRedirect(t *testing.T) {
	filter := New(0)
	sock := &recordingSocket{}

	if filter.ShouldRedirect(0) {
		t.Errorf("unbound queue must not redirect")
	}
	err := filter.Redirect(0, []byte{1})
	if !errors.Is(err, ErrUnbound) {
		t.Errorf("expected ErrUnbound, got %v", err)
	}

	err = filter.BindQueue(0, sock)
	if err != nil {
		t.Fatalf("unexpected bind error: %v", err)
	}
	if !filter.ShouldRedirect(0) || filter.ShouldRedirect(1) {
		t.Errorf("redirect must apply only to queue 0")
	}

	frame := udpFrame(t, 8000)
	err = filter.Redirect(0, frame)
	if err != nil {
		t.Fatalf("unexpected redirect error: %v", err)
	}
	if len(sock.frames) != 1 || !bytes.Equal(sock.frames[0], frame) {
		t.Errorf("socket did not receive the frame")
	}

	unbound, existed := filter.UnbindQueue(0)
	if !existed || unbound != Socket(sock) {
		t.Errorf("unbind must return the bound socket")
	}
	if filter.ShouldRedirect(0) {
		t.Errorf("queue still redirects after unbind")
	}
	_, existed = filter.UnbindQueue(0)
	if existed {
		t.Errorf("second unbind reported a binding")
	}
}

func TestBindRejects(t *testing.T) {
	filter := New(0)
	tests := []struct {
		name   string
		queue  int
		socket Socket
	}{
		{"negative queue", -1, &recordingSocket{}},
		{"nil socket", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := filter.BindQueue(tt.queue, tt.socket)
			if err == nil {
				t.Errorf("expected error but got nil")
			}
		})
	}
}

func TestRedirectSocketError(t *testing.T) {
	filter := New(0)
	failure := errors.New("ring full")
	err := filter.BindQueue(2, &recordingSocket{err: failure})
	if err != nil {
		t.Fatalf("unexpected bind error: %v", err)
	}
	err = filter.Redirect(2, []byte{0})
	if !errors.Is(err, failure) {
		t.Errorf("expected socket error to be wrapped, got %v", err)
	}
}

func TestPortGate(t *testing.T) {
	tests := []struct {
		name  string
		port  uint16
		frame []byte
		want  bool
	}{
		{"no gate admits anything", 0, []byte{1, 2, 3}, true},
		{"matching port", 8000, udpFrame(t, 8000), true},
		{"other port", 8000, udpFrame(t, 8001), false},
		{"unparseable frame", 8000, []byte{1, 2, 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := New(tt.port)
			if got := filter.Matches(tt.frame); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestQueues(t *testing.T) {
	filter := New(9)
	for _, queue := range []int{3, 1, 2} {
		err := filter.BindQueue(queue, &recordingSocket{})
		if err != nil {
			t.Fatalf("unexpected bind error: %v", err)
		}
	}
	queues := filter.Queues()
	sort.Ints(queues)
	if len(queues) != 3 || queues[0] != 1 || queues[2] != 3 {
		t.Errorf("unexpected queues %v", queues)
	}
	if filter.Port() != 9 {
		t.Errorf("unexpected port %d", filter.Port())
	}
}
