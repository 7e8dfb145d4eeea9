// Multi-producer Multi-Consumer lock-free ring buffer queue with power-of-two capacity
package mpmc

import (
	"context"
	"fastrelay/internal/atomics"
	"fastrelay/internal/global"
	"fastrelay/internal/logctx"
	"fmt"
	"runtime"
	"time"
)

// Creates a new queue
func New[T any](namespace []string, capacity uint64) (new *Queue[T], err error) {
	if capacity < 2 {
		err = fmt.Errorf("capacity must be greater than or equal to 2")
		return
	}
	if (capacity & (capacity - 1)) != 0 {
		err = fmt.Errorf("capacity must be a power of two")
		return
	}

	buf := make([]cell[T], capacity)
	for i := uint64(0); i < capacity; i++ {
		buf[i].seq.Store(i)
	}

	ns := make([]string, 0, len(namespace)+1)
	ns = append(ns, namespace...)
	ns = append(ns, global.NSQueue)

	new = &Queue[T]{
		Namespace: ns,
		Size:      int(capacity),
		mask:      capacity - 1,
		buf:       buf,
		notEmpty:  make(chan struct{}, 1),
		Metrics:   &MetricStorage{},
	}
	return
}

// Poll based wrapper around Push to block until it succeeds or ctx ends
func (queue *Queue[T]) PushBlocking(ctx context.Context, value T, size int) (success bool) {
	for {
		if queue.Push(value, size) {
			success = true
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Millisecond):
		}
	}
}

// Attempts to write an element (non success = queue full)
func (queue *Queue[T]) Push(value T, size int) (success bool) {
	queue.Metrics.PushAttempts.Add(1)

	var pos, seq uint64
	var slot *cell[T]

	for {
		pos = queue.tail.Load()
		slot = &queue.buf[pos&queue.mask]
		seq = slot.seq.Load()

		if seq == pos {
			if queue.tail.CompareAndSwap(pos, pos+1) {
				queue.Metrics.PushSuccess.Add(1)
				break
			}
			queue.Metrics.PushCASRetries.Add(1)
		} else if seq < pos {
			queue.Metrics.PushFull.Add(1)
			return
		} else {
			runtime.Gosched() // another producer is ahead, retry
		}
	}

	slot.data = value
	slot.seq.Store(pos + 1)
	queue.Metrics.Depth.Add(1)
	queue.Metrics.Bytes.Add(uint64(size))

	// notify blocked consumers, non-blocking
	select {
	case queue.notEmpty <- struct{}{}:
	default:
	}

	success = true
	return
}

// Reads an element, waiting while empty. False once ctx is done.
func (queue *Queue[T]) Pop(ctx context.Context, sizeOf func(T) int) (out T, success bool) {
	for {
		out, success = queue.TryPop(ctx, sizeOf)
		if success {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-queue.notEmpty:
		}
	}
}

// Reads an element without waiting. False when empty.
func (queue *Queue[T]) TryPop(ctx context.Context, sizeOf func(T) int) (out T, success bool) {
	var pos, seq uint64
	var slot *cell[T]

	for {
		queue.Metrics.PopAttempts.Add(1)

		pos = queue.head.Load()
		slot = &queue.buf[pos&queue.mask]
		seq = slot.seq.Load()
		readySeq := pos + 1

		if seq == readySeq {
			if !queue.head.CompareAndSwap(pos, pos+1) {
				queue.Metrics.PopCASRetries.Add(1)
				continue
			}

			out = slot.data
			var zero T
			slot.data = zero
			slot.seq.Store(pos + queue.mask + 1)

			queue.Metrics.PopSuccess.Add(1)
			ok := atomics.Subtract(&queue.Metrics.Depth, 1, 4)
			if !ok {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
					"failed to decrement queue depth metric after successful pop\n")
			}
			if sizeOf != nil {
				atomics.Subtract(&queue.Metrics.Bytes, uint64(sizeOf(out)), 4)
			}

			// Wake another consumer if items remain
			if queue.head.Load() != queue.tail.Load() {
				select {
				case queue.notEmpty <- struct{}{}:
				default:
				}
			}

			success = true
			return
		}

		if seq < readySeq {
			return // empty
		}
		// seq > readySeq, another consumer ahead, retry
	}
}

// Approximate number of queued items
func (queue *Queue[T]) Len() (depth int) {
	depth = int(queue.Metrics.Depth.Load())
	return
}
