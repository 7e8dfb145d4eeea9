package ebpf

import (
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
)

type mapRequirement struct {
	name      string
	mapType   ebpf.MapType
	keySize   uint32
	valueSize uint32 // 0 skips the check
	optional  bool
}

var requiredMaps = []mapRequirement{
	{name: TargetsMapName, mapType: ebpf.Hash, keySize: targetsKeySize, valueSize: kernelTargetsSize},
	{name: QueueMapName, mapType: ebpf.Array, keySize: queueKeySize, valueSize: queueValueSize},
	{name: SocketMapName, mapType: ebpf.XSKMap, keySize: queueKeySize},
	{name: MetadataMapName, mapType: ebpf.Hash, keySize: targetsKeySize, valueSize: metadataValueSize, optional: true},
}

// Checks that the object exposes the maps and programs with the layouts the
// control plane writes
func ValidateSpec(spec *ebpf.CollectionSpec, requireXDP bool) (err error) {
	if spec == nil {
		err = fmt.Errorf("no collection spec")
		return
	}

	var problems []error
	for _, req := range requiredMaps {
		mapSpec, ok := spec.Maps[req.name]
		if !ok {
			if !req.optional {
				problems = append(problems, fmt.Errorf("map %s not found in object", req.name))
			}
			continue
		}
		if mapSpec.Type != req.mapType {
			problems = append(problems, fmt.Errorf("map %s has type %s, expected %s", req.name, mapSpec.Type, req.mapType))
		}
		if mapSpec.KeySize != req.keySize {
			problems = append(problems, fmt.Errorf("map %s key size %d, expected %d", req.name, mapSpec.KeySize, req.keySize))
		}
		if req.valueSize != 0 && mapSpec.ValueSize != req.valueSize {
			problems = append(problems, fmt.Errorf("map %s value size %d, expected %d", req.name, mapSpec.ValueSize, req.valueSize))
		}
	}

	prog, ok := spec.Programs[RelayProgName]
	if !ok {
		problems = append(problems, fmt.Errorf("program %s not found in object", RelayProgName))
	} else if prog.Type != ebpf.SchedCLS {
		problems = append(problems, fmt.Errorf("program %s has type %s, expected %s", RelayProgName, prog.Type, ebpf.SchedCLS))
	}

	if requireXDP {
		prog, ok = spec.Programs[XDPProgName]
		if !ok {
			problems = append(problems, fmt.Errorf("program %s not found in object", XDPProgName))
		} else if prog.Type != ebpf.XDP {
			problems = append(problems, fmt.Errorf("program %s has type %s, expected %s", XDPProgName, prog.Type, ebpf.XDP))
		}
	}

	err = errors.Join(problems...)
	return
}
