// Kernel mode host: loads the compiled relay program and drives its maps
package ebpf

import (
	"context"
	"errors"
	"fastrelay/internal/global"
	"fastrelay/internal/logctx"
	"fastrelay/pkg/protocol"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"golang.org/x/sys/unix"
)

// Loads the relay object into the kernel, pins the shared maps and attaches
// the programs to the interface
func Load(ctx context.Context, opts Options) (host *Host, err error) {
	if runtime.GOOS != "linux" {
		err = fmt.Errorf("kernel mode is only supported on linux")
		return
	}
	if os.Geteuid() != 0 {
		err = fmt.Errorf("kernel mode must run as root")
		return
	}

	err = unix.Setrlimit(unix.RLIMIT_MEMLOCK, &unix.Rlimit{
		Cur: unix.RLIM_INFINITY,
		Max: unix.RLIM_INFINITY,
	})
	if err != nil {
		err = fmt.Errorf("set resource limit: %w", err)
		return
	}

	spec, err := ebpf.LoadCollectionSpec(opts.ObjectPath)
	if err != nil {
		err = fmt.Errorf("load eBPF spec from %s: %w", opts.ObjectPath, err)
		return
	}
	err = ValidateSpec(spec, opts.AttachXDP)
	if err != nil {
		err = fmt.Errorf("invalid relay object: %w", err)
		return
	}

	if variable, ok := spec.Variables[AdmissionPortVar]; ok && opts.AdmissionPort != 0 {
		err = variable.Set(opts.AdmissionPort)
		if err != nil {
			err = fmt.Errorf("set %s: %w", AdmissionPortVar, err)
			return
		}
	}

	collection, err := ebpf.NewCollection(spec)
	if err != nil {
		err = fmt.Errorf("load eBPF collection: %w", err)
		return
	}
	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"Loaded relay object %s (%d programs, %d maps)\n", opts.ObjectPath, len(collection.Programs), len(collection.Maps))

	host = &Host{
		opts:       opts,
		collection: collection,
		pushedKeys: make(map[protocol.RoutingKey]struct{}),
		pushedSeed: make(map[protocol.RoutingKey]struct{}),
	}
	defer func() {
		if err != nil {
			host.Close()
			host = nil
		}
	}()

	err = ensureBPFFS()
	if err != nil {
		return
	}
	err = host.pinShared(ctx)
	if err != nil {
		return
	}
	err = host.attach(ctx)
	return
}

// Mounts bpffs when the pin root is not one
func ensureBPFFS() (err error) {
	var stat unix.Statfs_t
	err = unix.Statfs(bpffsRoot, &stat)
	if err == nil && int64(stat.Type) == int64(unix.BPF_FS_MAGIC) {
		return
	}

	err = unix.Mount("bpffs", bpffsRoot, "bpf", 0, "")
	if err != nil {
		err = fmt.Errorf("bpffs was not mounted and mount attempt failed: %w", err)
		return
	}
	return
}

// Pins maps external consumers bind to (AF_XDP sockets, inspection)
func (host *Host) pinShared(ctx context.Context) (err error) {
	err = os.MkdirAll(host.opts.PinPath, 0700)
	if err != nil {
		err = fmt.Errorf("failed to create pin directory: %w", err)
		return
	}

	for _, name := range []string{SocketMapName, TargetsMapName, QueueMapName} {
		bpfMap, ok := host.collection.Maps[name]
		if !ok {
			err = fmt.Errorf("map %s not found in collection", name)
			return
		}

		pinPath := filepath.Join(host.opts.PinPath, name)
		// Replace pins left by a previous run
		err = os.Remove(pinPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("failed to remove stale pin %s: %w", pinPath, err)
			return
		}

		err = bpfMap.Pin(pinPath)
		if err != nil {
			err = fmt.Errorf("pin map %s: %w", name, err)
			return
		}
		host.pinned = append(host.pinned, pinPath)
		logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog, "Pinned map %s at %s\n", name, pinPath)
	}
	return
}

func (host *Host) attach(ctx context.Context) (err error) {
	tcLink, err := link.AttachTCX(link.TCXOptions{
		Interface: host.opts.Ifindex,
		Program:   host.collection.Programs[RelayProgName],
		Attach:    ebpf.AttachTCXEgress,
	})
	if err != nil {
		err = fmt.Errorf("attaching %s at tc egress: %w", RelayProgName, err)
		return
	}
	host.links = append(host.links, tcLink)
	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"Attached %s to interface %d egress\n", RelayProgName, host.opts.Ifindex)

	if !host.opts.AttachXDP {
		return
	}

	xdpLink, err := link.AttachXDP(link.XDPOptions{
		Program:   host.collection.Programs[XDPProgName],
		Interface: host.opts.Ifindex,
	})
	if err != nil {
		err = fmt.Errorf("attaching %s at xdp: %w", XDPProgName, err)
		return
	}
	host.links = append(host.links, xdpLink)
	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"Attached %s to interface %d ingress\n", XDPProgName, host.opts.Ifindex)
	return
}

// Detaches programs, removes pins and releases the collection
func (host *Host) Close() (err error) {
	var problems []error
	for i := len(host.links) - 1; i >= 0; i-- {
		lerr := host.links[i].Close()
		if lerr != nil {
			problems = append(problems, fmt.Errorf("closing link: %w", lerr))
		}
	}
	host.links = nil

	for _, pinPath := range host.pinned {
		rerr := os.Remove(pinPath)
		if rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			problems = append(problems, fmt.Errorf("removing pin %s: %w", pinPath, rerr))
		}
	}
	host.pinned = nil

	if host.collection != nil {
		host.collection.Close()
		host.collection = nil
	}
	err = errors.Join(problems...)
	return
}
