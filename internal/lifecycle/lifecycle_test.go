package lifecycle

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

type fakeDaemon struct {
	mutex     sync.Mutex
	reloads   int
	shutdowns int
	reloadErr error
}

func (daemon *fakeDaemon) Reload(ctx context.Context) (err error) {
	daemon.mutex.Lock()
	defer daemon.mutex.Unlock()
	daemon.reloads++
	err = daemon.reloadErr
	return
}

func (daemon *fakeDaemon) Shutdown() {
	daemon.mutex.Lock()
	defer daemon.mutex.Unlock()
	daemon.shutdowns++
}

func listenNotify(t *testing.T) (conn *net.UnixConn) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sockPath, Net: "unixgram"})
	if err != nil {
		t.Fatalf("failed to listen on notify socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	t.Setenv(EnvNotifySocket, sockPath)
	return
}

func readNotify(t *testing.T, conn *net.UnixConn) (msg string) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("failed to read notification: %v", err)
	}
	msg = string(buf[:n])
	return
}

func TestNotifyMessages(t *testing.T) {
	conn := listenNotify(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		send   func() error
		prefix string
	}{
		{"ready", func() error { return NotifyReady(ctx) }, "READY=1"},
		{"stopping", func() error { return NotifyStopping(ctx) }, "STOPPING=1"},
		{"status", func() error { return NotifyStatus(ctx, "relaying") }, "STATUS=relaying"},
		{"reload", func() error { return NotifyReload(ctx) }, "RELOADING=1\nMONOTONIC_USEC="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.send()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			msg := readNotify(t, conn)
			if !strings.HasPrefix(msg, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, msg)
			}
		})
	}
}

func TestNotifyWithoutSystemd(t *testing.T) {
	t.Setenv(EnvNotifySocket, "")
	err := NotifyReady(context.Background())
	if err != nil {
		t.Errorf("expected no-op without socket, got %v", err)
	}
}

func TestHandleSignals(t *testing.T) {
	tests := []struct {
		name          string
		signals       []os.Signal
		reloadErr     error
		wantReloads   int
		wantShutdowns int
	}{
		{"terminate", []os.Signal{syscall.SIGTERM}, nil, 0, 1},
		{"reload then interrupt", []os.Signal{syscall.SIGHUP, syscall.SIGHUP, syscall.SIGINT}, nil, 2, 1},
		{"failed reload keeps running", []os.Signal{syscall.SIGHUP, syscall.SIGQUIT}, errors.New("bad config"), 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvNotifySocket, "")
			daemon := &fakeDaemon{reloadErr: tt.reloadErr}

			sigChan := make(chan os.Signal, len(tt.signals))
			for _, sig := range tt.signals {
				sigChan <- sig
			}

			done := make(chan struct{})
			go func() {
				handleSignals(context.Background(), sigChan, daemon)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("signal handler did not return")
			}

			if daemon.reloads != tt.wantReloads {
				t.Errorf("expected %d reloads, got %d", tt.wantReloads, daemon.reloads)
			}
			if daemon.shutdowns != tt.wantShutdowns {
				t.Errorf("expected %d shutdowns, got %d", tt.wantShutdowns, daemon.shutdowns)
			}
		})
	}
}

func TestHandleSignalsContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	daemon := &fakeDaemon{}
	handleSignals(ctx, make(chan os.Signal), daemon)
	if daemon.shutdowns != 0 {
		t.Errorf("cancelled handler must not shut down the daemon")
	}
}
