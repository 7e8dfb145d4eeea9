package ebpf

import (
	"context"
	"errors"
	"fastrelay/internal/directory"
	"fastrelay/internal/global"
	"fastrelay/internal/logctx"
	"fastrelay/pkg/protocol"
	"fmt"

	"github.com/cilium/ebpf"
)

// Mirrors the routing table into targets_map. Keys pushed earlier but absent
// from table are removed.
func (host *Host) SyncTargets(ctx context.Context, table map[protocol.RoutingKey][]directory.TargetEntry) (err error) {
	host.mutex.Lock()
	defer host.mutex.Unlock()

	targetsMap, ok := host.collection.Maps[TargetsMapName]
	if !ok {
		err = fmt.Errorf("map %s not loaded", TargetsMapName)
		return
	}

	for key, entries := range table {
		if int(key) > int(protocol.MaxRoutingKey) {
			err = fmt.Errorf("routing key %d out of range", key)
			return
		}

		var value kernelTargets
		value, err = toKernelTargets(entries)
		if err != nil {
			err = fmt.Errorf("routing key %d: %w", key, err)
			return
		}

		err = targetsMap.Put(uint16(key), value)
		if err != nil {
			err = fmt.Errorf("failed to update targets for key %d: %w", key, err)
			return
		}
		host.pushedKeys[key] = struct{}{}
	}

	var removed int
	for key := range host.pushedKeys {
		_, keep := table[key]
		if keep {
			continue
		}

		err = targetsMap.Delete(uint16(key))
		if err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
			err = fmt.Errorf("failed to delete targets for key %d: %w", key, err)
			return
		}
		err = nil
		delete(host.pushedKeys, key)
		removed++
	}

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Kernel routing table synced: %d keys, %d removed\n", len(table), removed)
	return
}

// Marks queues whose traffic the ingress program hands to admission sockets
func (host *Host) SyncQueues(ctx context.Context, queues []int) (err error) {
	host.mutex.Lock()
	defer host.mutex.Unlock()

	queueMap, ok := host.collection.Maps[QueueMapName]
	if !ok {
		err = fmt.Errorf("map %s not loaded", QueueMapName)
		return
	}

	enabled := make(map[int]struct{}, len(queues))
	for _, queue := range queues {
		if queue < 0 || uint32(queue) >= queueMap.MaxEntries() {
			err = fmt.Errorf("queue %d outside of %s (max %d entries)", queue, QueueMapName, queueMap.MaxEntries())
			return
		}
		enabled[queue] = struct{}{}
	}

	// Arrays cannot delete, every slot is written
	for queue := uint32(0); queue < queueMap.MaxEntries(); queue++ {
		state := queueDisabled
		if _, ok := enabled[int(queue)]; ok {
			state = queueEnabled
		}

		err = queueMap.Put(int32(queue), state)
		if err != nil {
			err = fmt.Errorf("failed to update queue %d: %w", queue, err)
			return
		}
	}

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"Kernel admission queues set: %v\n", queues)
	return
}

// Seeds freshness slots in metadata_map when the object provides one
func (host *Host) SyncSeeds(ctx context.Context, seeds map[protocol.RoutingKey]int64) (err error) {
	host.mutex.Lock()
	defer host.mutex.Unlock()

	metadataMap, ok := host.collection.Maps[MetadataMapName]
	if !ok {
		if len(seeds) > 0 {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"Relay object has no %s, ignoring %d freshness seeds\n", MetadataMapName, len(seeds))
		}
		return
	}

	for key, value := range seeds {
		err = metadataMap.Put(uint16(key), value)
		if err != nil {
			err = fmt.Errorf("failed to seed freshness for key %d: %w", key, err)
			return
		}
		host.pushedSeed[key] = struct{}{}
	}

	for key := range host.pushedSeed {
		if _, keep := seeds[key]; keep {
			continue
		}
		err = metadataMap.Delete(uint16(key))
		if err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
			err = fmt.Errorf("failed to forget freshness for key %d: %w", key, err)
			return
		}
		err = nil
		delete(host.pushedSeed, key)
	}
	return
}

// Reads every target list currently held by targets_map
func (host *Host) KernelTargets() (table map[protocol.RoutingKey][]directory.TargetEntry, err error) {
	host.mutex.Lock()
	defer host.mutex.Unlock()

	targetsMap, ok := host.collection.Maps[TargetsMapName]
	if !ok {
		err = fmt.Errorf("map %s not loaded", TargetsMapName)
		return
	}

	table = make(map[protocol.RoutingKey][]directory.TargetEntry)
	var key uint16
	var value kernelTargets
	entries := targetsMap.Iterate()
	for entries.Next(&key, &value) {
		table[protocol.RoutingKey(key)] = fromKernelTargets(value)
	}
	err = entries.Err()
	if err != nil {
		err = fmt.Errorf("failed to read %s: %w", TargetsMapName, err)
		return
	}
	return
}

// Number of routing keys currently mirrored into the kernel
func (host *Host) KeyCount() (count int) {
	host.mutex.Lock()
	defer host.mutex.Unlock()
	count = len(host.pushedKeys)
	return
}
