// Routing key to target list lookup.
// Writers publish a whole new table; readers only ever see complete lists.
package directory

import (
	"fastrelay/pkg/protocol"
	"fmt"
	"sort"
)

// Creates an empty directory
func New() (new *Directory) {
	new = &Directory{}
	empty := make(map[protocol.RoutingKey]*TargetList)
	new.lists.Store(&empty)
	return
}

// Builds a validated list from ordered entries
func NewTargetList(entries []TargetEntry) (list *TargetList, err error) {
	if len(entries) > MaxTargets {
		err = fmt.Errorf("too many targets: %d exceeds %d", len(entries), MaxTargets)
		return
	}

	list = &TargetList{MaxCount: uint16(len(entries))}
	copy(list.Entries[:], entries)
	return
}

// Target list for key, absent means no relay is configured
func (dir *Directory) Lookup(key protocol.RoutingKey) (list *TargetList, found bool) {
	list, found = (*dir.lists.Load())[key]
	return
}

// Publishes the ordered entries for key, replacing any previous list
func (dir *Directory) Set(key protocol.RoutingKey, entries []TargetEntry) (err error) {
	if key > protocol.MaxRoutingKey {
		err = fmt.Errorf("routing key %d out of range", key)
		return
	}

	list, err := NewTargetList(entries)
	if err != nil {
		err = fmt.Errorf("key %s: %w", key, err)
		return
	}

	dir.writeMu.Lock()
	defer dir.writeMu.Unlock()

	next := dir.cloneTable()
	next[key] = list
	dir.lists.Store(&next)
	return
}

// Removes the list for key
func (dir *Directory) Clear(key protocol.RoutingKey) {
	dir.writeMu.Lock()
	defer dir.writeMu.Unlock()

	if _, exists := (*dir.lists.Load())[key]; !exists {
		return
	}

	next := dir.cloneTable()
	delete(next, key)
	dir.lists.Store(&next)
}

// Swaps in an entirely new table (configuration reload)
func (dir *Directory) Replace(table map[protocol.RoutingKey][]TargetEntry) (err error) {
	next := make(map[protocol.RoutingKey]*TargetList, len(table))
	for key, entries := range table {
		if key > protocol.MaxRoutingKey {
			err = fmt.Errorf("routing key %d out of range", key)
			return
		}

		var list *TargetList
		list, err = NewTargetList(entries)
		if err != nil {
			err = fmt.Errorf("key %s: %w", key, err)
			return
		}
		next[key] = list
	}

	dir.writeMu.Lock()
	defer dir.writeMu.Unlock()
	dir.lists.Store(&next)
	return
}

// Sorted list of configured keys
func (dir *Directory) Keys() (keys []protocol.RoutingKey) {
	table := *dir.lists.Load()
	keys = make([]protocol.RoutingKey, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return
}

// Shallow copy; lists themselves are immutable once published
func (dir *Directory) cloneTable() (next map[protocol.RoutingKey]*TargetList) {
	current := *dir.lists.Load()
	next = make(map[protocol.RoutingKey]*TargetList, len(current)+1)
	for key, list := range current {
		next[key] = list
	}
	return
}
