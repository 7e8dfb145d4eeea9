package mpmc

import "github.com/pbnjay/memory"

// Share of currently free memory a single queue may claim at most
const memoryShareDivisor uint64 = 8

// Power of two capacity for itemSize byte items, bounded by [minimum, maximum]
// and by the free memory of the host
func CapacityFor(requested int, itemSize int, minimum int, maximum int) (capacity uint64) {
	target := requested
	if target < minimum {
		target = minimum
	}
	if maximum > 0 && target > maximum {
		target = maximum
	}

	if itemSize > 0 {
		availMem := memory.FreeMemory()
		if availMem > 0 {
			budget := availMem / memoryShareDivisor / uint64(itemSize)
			if budget < uint64(target) {
				target = int(budget)
			}
		}
	}
	if target < minimum {
		target = minimum
	}

	rounded := nextPowerOfTwo(target)
	if rounded > target {
		rounded = prevPowerOfTwo(target)
	}
	capacity = uint64(rounded)
	if capacity < 2 {
		capacity = 2
	}
	return
}

func nextPowerOfTwo(start int) (next int) {
	if start <= 1 {
		next = 1
		return
	}
	start--
	start |= start >> 1
	start |= start >> 2
	start |= start >> 4
	start |= start >> 8
	start |= start >> 16
	start |= start >> 32
	next = start + 1
	return
}

func prevPowerOfTwo(start int) (prev int) {
	if start == 0 {
		return
	}
	prev = nextPowerOfTwo(start) >> 1
	return
}
