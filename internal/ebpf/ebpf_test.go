package ebpf

import (
	"bytes"
	"encoding/binary"
	"fastrelay/internal/directory"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/cilium/ebpf"
)

func validSpec() *ebpf.CollectionSpec {
	return &ebpf.CollectionSpec{
		Maps: map[string]*ebpf.MapSpec{
			TargetsMapName: {Name: TargetsMapName, Type: ebpf.Hash, KeySize: 2, ValueSize: 772, MaxEntries: 1024},
			QueueMapName:   {Name: QueueMapName, Type: ebpf.Array, KeySize: 4, ValueSize: 4, MaxEntries: 64},
			SocketMapName:  {Name: SocketMapName, Type: ebpf.XSKMap, KeySize: 4, ValueSize: 4, MaxEntries: 64},
		},
		Programs: map[string]*ebpf.ProgramSpec{
			RelayProgName: {Name: RelayProgName, Type: ebpf.SchedCLS},
			XDPProgName:   {Name: XDPProgName, Type: ebpf.XDP},
		},
	}
}

func TestKernelLayoutSizes(t *testing.T) {
	if size := binary.Size(kernelNode{}); size != int(kernelNodeSize) {
		t.Errorf("node_info size %d, expected %d", size, kernelNodeSize)
	}
	if size := binary.Size(kernelTargets{}); size != int(kernelTargetsSize) {
		t.Errorf("targets size %d, expected %d", size, kernelTargetsSize)
	}
}

func TestToKernelTargets(t *testing.T) {
	entries := []directory.TargetEntry{
		{Addr: [4]byte{10, 0, 0, 1}, Port: 9000, MAC: [6]byte{0x02, 0, 0, 0, 0, 1}},
		{Addr: [4]byte{10, 0, 0, 2}, Port: 9001},
	}

	value, err := toKernelTargets(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value.MaxCount != 2 {
		t.Errorf("expected max count 2, got %d", value.MaxCount)
	}

	var buf bytes.Buffer
	err = binary.Write(&buf, binary.NativeEndian, value)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	raw := buf.Bytes()

	// Address and port bytes must land in network order
	if !bytes.Equal(raw[0:4], []byte{10, 0, 0, 1}) {
		t.Errorf("first address bytes %v", raw[0:4])
	}
	if !bytes.Equal(raw[4:6], []byte{0x23, 0x28}) {
		t.Errorf("first port bytes %x, expected 2328", raw[4:6])
	}
	if !bytes.Equal(raw[6:12], []byte{0x02, 0, 0, 0, 0, 1}) {
		t.Errorf("first mac bytes %x", raw[6:12])
	}
	if !bytes.Equal(raw[12:16], []byte{10, 0, 0, 2}) {
		t.Errorf("second address bytes %v", raw[12:16])
	}
	if !bytes.Equal(raw[16:18], []byte{0x23, 0x29}) {
		t.Errorf("second port bytes %x, expected 2329", raw[16:18])
	}
	if !bytes.Equal(raw[24:768], make([]byte, 744)) {
		t.Errorf("unused slots are not zero")
	}
	if got := binary.NativeEndian.Uint16(raw[768:770]); got != 2 {
		t.Errorf("encoded max count %d", got)
	}
}

func TestToKernelTargetsRejectsOverflow(t *testing.T) {
	entries := make([]directory.TargetEntry, directory.MaxTargets+1)
	_, err := toKernelTargets(entries)
	if err == nil {
		t.Fatal("expected error for oversized list")
	}

	value, err := toKernelTargets(nil)
	if err != nil {
		t.Fatalf("unexpected error for empty list: %v", err)
	}
	if value.MaxCount != 0 {
		t.Errorf("expected zero max count, got %d", value.MaxCount)
	}
}

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(spec *ebpf.CollectionSpec)
		requireXDP bool
		wantErr    string
	}{
		{name: "valid", mutate: func(*ebpf.CollectionSpec) {}, requireXDP: true},
		{
			name: "valid with metadata map",
			mutate: func(spec *ebpf.CollectionSpec) {
				spec.Maps[MetadataMapName] = &ebpf.MapSpec{Type: ebpf.Hash, KeySize: 2, ValueSize: 8}
			},
		},
		{
			name:    "missing targets map",
			mutate:  func(spec *ebpf.CollectionSpec) { delete(spec.Maps, TargetsMapName) },
			wantErr: "map targets_map not found",
		},
		{
			name:    "targets value size",
			mutate:  func(spec *ebpf.CollectionSpec) { spec.Maps[TargetsMapName].ValueSize = 770 },
			wantErr: "value size 770",
		},
		{
			name:    "targets key size",
			mutate:  func(spec *ebpf.CollectionSpec) { spec.Maps[TargetsMapName].KeySize = 4 },
			wantErr: "key size 4",
		},
		{
			name:    "queue map type",
			mutate:  func(spec *ebpf.CollectionSpec) { spec.Maps[QueueMapName].Type = ebpf.Hash },
			wantErr: "map qidconf_map has type",
		},
		{
			name: "bad metadata map",
			mutate: func(spec *ebpf.CollectionSpec) {
				spec.Maps[MetadataMapName] = &ebpf.MapSpec{Type: ebpf.Hash, KeySize: 2, ValueSize: 16}
			},
			wantErr: "map metadata_map value size 16",
		},
		{
			name: "metadata map holding a text buffer",
			mutate: func(spec *ebpf.CollectionSpec) {
				spec.Maps[MetadataMapName] = &ebpf.MapSpec{Type: ebpf.Hash, KeySize: 2, ValueSize: 264}
			},
			wantErr: "map metadata_map value size 264",
		},
		{
			name:    "missing relay program",
			mutate:  func(spec *ebpf.CollectionSpec) { delete(spec.Programs, RelayProgName) },
			wantErr: "program fastbroadcast not found",
		},
		{
			name:    "relay program type",
			mutate:  func(spec *ebpf.CollectionSpec) { spec.Programs[RelayProgName].Type = ebpf.XDP },
			wantErr: "program fastbroadcast has type",
		},
		{
			name:       "missing xdp program when required",
			mutate:     func(spec *ebpf.CollectionSpec) { delete(spec.Programs, XDPProgName) },
			requireXDP: true,
			wantErr:    "program xdp_sock_prog not found",
		},
		{
			name:   "missing xdp program not required",
			mutate: func(spec *ebpf.CollectionSpec) { delete(spec.Programs, XDPProgName) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)

			err := ValidateSpec(spec, tt.requireXDP)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}

	if ValidateSpec(nil, false) == nil {
		t.Error("expected error for nil spec")
	}
}

func TestFromKernelTargets(t *testing.T) {
	entries := []directory.TargetEntry{
		{Addr: [4]byte{10, 0, 0, 1}, Port: 9000, MAC: [6]byte{0x02, 0, 0, 0, 0, 1}},
		{Addr: [4]byte{10, 0, 0, 2}, Port: 443},
		{},
	}

	value, err := toKernelTargets(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := fromKernelTargets(value)
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, entries[i], got[i])
		}
	}

	value.MaxCount = 500
	if got := fromKernelTargets(value); len(got) != directory.MaxTargets {
		t.Errorf("oversized max count must clamp to %d, got %d", directory.MaxTargets, len(got))
	}
}

func TestRelaySourceLayout(t *testing.T) {
	raw, err := os.ReadFile("bpf/relay.c")
	if err != nil {
		t.Fatalf("failed to read relay program source: %v", err)
	}
	source := string(raw)

	want := []string{
		fmt.Sprintf("#define MAX_TARGETS %d", directory.MaxTargets),
		"} " + TargetsMapName + " SEC(\".maps\")",
		"} " + QueueMapName + " SEC(\".maps\")",
		"} " + SocketMapName + " SEC(\".maps\")",
		"} " + MetadataMapName + " SEC(\".maps\")",
		"__type(value, __s64);\n  __uint(max_entries, MAX_ROUTING_KEYS);\n} " + MetadataMapName,
		"SEC(\"tc\")\nint " + RelayProgName + "(",
		"SEC(\"xdp\")\nint " + XDPProgName + "(",
		"volatile const __u16 " + AdmissionPortVar,
		"__u16 max_count;\n  __u16 pad;",
	}
	for _, fragment := range want {
		if !strings.Contains(source, fragment) {
			t.Errorf("relay program source is missing %q", fragment)
		}
	}

	// Counters are raw ordinals, never digit characters
	if strings.Contains(source, "max_count - '0'") {
		t.Errorf("relay program treats max_count as a digit character")
	}
}
