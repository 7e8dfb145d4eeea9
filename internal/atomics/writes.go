// Helper functions that deal with atomic variables and their values
package atomics

import (
	"sync/atomic"
	"time"
)

// Tries to subtract value from the atomic source. Success if already 0.
// It retries up to maxRetries times if the CAS fails due to contention.
func Subtract(source *atomic.Uint64, value uint64, maxRetries int) (success bool) {
	retryInterval := time.Microsecond * 10

	for i := 0; i < maxRetries; i++ {
		current := source.Load()
		if current == 0 {
			success = true
			return
		}

		var newValue uint64
		if value < current {
			newValue = current - value
		}

		// CAS will only succeed if the value has not changed since we last read it.
		if source.CompareAndSwap(current, newValue) {
			success = true
			return
		}

		time.Sleep(retryInterval)
		retryInterval = retryInterval * 2
	}
	return
}

// Stores candidate only if it is strictly greater than the current value.
// previous is the value the decision was made against; it is never torn
// by a concurrent writer.
func StoreIfGreater(target *atomic.Int64, candidate int64) (previous int64, stored bool) {
	for {
		previous = target.Load()
		if candidate <= previous {
			return
		}
		if target.CompareAndSwap(previous, candidate) {
			stored = true
			return
		}
		// Lost the race to another writer, re-evaluate against its value
	}
}
