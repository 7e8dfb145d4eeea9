package dataplane

import (
	"context"
	"encoding/json"
	"fastrelay/internal/admission"
	"fastrelay/internal/config"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, path string, cfg config.JSONConfig) {
	t.Helper()
	content, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("failed to encode config: %v", err)
	}
	err = os.WriteFile(path, content, 0600)
	if err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestDaemonReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fastrelay.json")
	err := config.WriteSample(path)
	if err != nil {
		t.Fatalf("failed to write sample: %v", err)
	}
	initial, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample does not load: %v", err)
	}

	consumer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer consumer.Close()

	daemon := NewDaemon(initial, path)
	daemon.Admission = admission.New(initial.AdmissionPort)
	ctx := context.Background()

	// Sample table
	err = daemon.Reload(ctx)
	if err != nil {
		t.Fatalf("reload of sample failed: %v", err)
	}
	list, found := daemon.Directory.Lookup(42)
	if !found || list.MaxCount != 2 {
		t.Fatalf("key 42 not loaded from sample: found=%v", found)
	}
	if _, seeded := daemon.Reconciler.Load(0); !seeded {
		t.Errorf("freshness seed for key 0 missing")
	}

	// New table with an admission binding
	next := config.Sample()
	next.Targets = []config.JSONTargetList{
		{Key: 7, Entries: []config.JSONTarget{{Address: "10.1.0.1", Port: 7000}}},
	}
	next.Freshness = []config.JSONSeed{{Key: 5, Value: 100}}
	next.Admission = []config.JSONAdmission{{Queue: 0, ForwardTo: consumer.LocalAddr().String()}}
	writeConfig(t, path, next)

	err = daemon.Reload(ctx)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, found := daemon.Directory.Lookup(42); found {
		t.Errorf("key 42 survived reload")
	}
	if _, found := daemon.Directory.Lookup(7); !found {
		t.Errorf("key 7 missing after reload")
	}
	if value, _ := daemon.Reconciler.Load(5); value != 100 {
		t.Errorf("seed for key 5 = %d, expected 100", value)
	}
	if _, seeded := daemon.Reconciler.Load(0); seeded {
		t.Errorf("seed for key 0 survived reload")
	}
	if queues := daemon.Admission.Queues(); !reflect.DeepEqual(queues, []int{0}) {
		t.Errorf("admission queues %v, expected [0]", queues)
	}

	// Broken file keeps the previous state
	err = os.WriteFile(path, []byte("{"), 0600)
	if err != nil {
		t.Fatalf("failed to corrupt config: %v", err)
	}
	err = daemon.Reload(ctx)
	if err == nil {
		t.Fatal("expected reload error for invalid config")
	}
	if _, found := daemon.Directory.Lookup(7); !found {
		t.Errorf("failed reload discarded the active table")
	}

	// Dropping the binding unbinds the queue
	next.Admission = nil
	writeConfig(t, path, next)
	err = daemon.Reload(ctx)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if queues := daemon.Admission.Queues(); len(queues) != 0 {
		t.Errorf("admission queues %v, expected none", queues)
	}
	if len(daemon.forwarders) != 0 {
		t.Errorf("forwarders left open: %d", len(daemon.forwarders))
	}
}

func TestSortedQueues(t *testing.T) {
	queues := sortedQueues(map[int]string{3: "a", 0: "b", 1: "c"})
	if !reflect.DeepEqual(queues, []int{0, 1, 3}) {
		t.Errorf("got %v", queues)
	}
	if queues := sortedQueues(nil); len(queues) != 0 {
		t.Errorf("expected empty, got %v", queues)
	}
}
