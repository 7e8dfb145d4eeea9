package freshness

import (
	"fastrelay/internal/atomics"
	"fastrelay/pkg/protocol"
	"sync/atomic"
)

func New() (new *Reconciler) {
	new = &Reconciler{}
	empty := make(map[protocol.RoutingKey]*atomic.Int64)
	new.slots.Store(&empty)
	return
}

// Compares value against the slot for key, storing it when newer.
// current is the slot value the decision was made against.
func (reconciler *Reconciler) Reconcile(key protocol.RoutingKey, value int64) (decision Decision, current int64) {
	slot, exists := (*reconciler.slots.Load())[key]
	if !exists {
		decision = SlowPath
		return
	}

	current, stored := atomics.StoreIfGreater(slot, value)
	switch {
	case stored:
		decision = Adopt
	case value == current:
		decision = Drop
	default:
		decision = Bounce
	}
	return
}

// Creates the slot for key or overwrites its value
func (reconciler *Reconciler) Seed(key protocol.RoutingKey, value int64) {
	reconciler.writeMu.Lock()
	defer reconciler.writeMu.Unlock()

	if slot, exists := (*reconciler.slots.Load())[key]; exists {
		slot.Store(value)
		return
	}

	next := reconciler.cloneSlots()
	slot := &atomic.Int64{}
	slot.Store(value)
	next[key] = slot
	reconciler.slots.Store(&next)
}

// Removes the slot for key, later values for it take the slow path
func (reconciler *Reconciler) Forget(key protocol.RoutingKey) {
	reconciler.writeMu.Lock()
	defer reconciler.writeMu.Unlock()

	if _, exists := (*reconciler.slots.Load())[key]; !exists {
		return
	}
	next := reconciler.cloneSlots()
	delete(next, key)
	reconciler.slots.Store(&next)
}

// Current value for key
func (reconciler *Reconciler) Load(key protocol.RoutingKey) (value int64, exists bool) {
	slot, exists := (*reconciler.slots.Load())[key]
	if !exists {
		return
	}
	value = slot.Load()
	return
}

// Replaces the slot set with seeds; existing slots present in seeds keep
// their value when it is already newer
func (reconciler *Reconciler) Reseed(seeds map[protocol.RoutingKey]int64) {
	reconciler.writeMu.Lock()
	defer reconciler.writeMu.Unlock()

	old := *reconciler.slots.Load()
	next := make(map[protocol.RoutingKey]*atomic.Int64, len(seeds))
	for key, value := range seeds {
		if slot, exists := old[key]; exists {
			atomics.StoreIfGreater(slot, value)
			next[key] = slot
			continue
		}
		slot := &atomic.Int64{}
		slot.Store(value)
		next[key] = slot
	}
	reconciler.slots.Store(&next)
}

// Seeded keys
func (reconciler *Reconciler) Len() (count int) {
	count = len(*reconciler.slots.Load())
	return
}

// Shares slot pointers so in-flight CAS loops keep landing on live slots
func (reconciler *Reconciler) cloneSlots() (next map[protocol.RoutingKey]*atomic.Int64) {
	old := *reconciler.slots.Load()
	next = make(map[protocol.RoutingKey]*atomic.Int64, len(old)+1)
	for key, slot := range old {
		next[key] = slot
	}
	return
}
