package dataplane

import (
	"context"
	"errors"
	"fastrelay/internal/global"
	"fastrelay/internal/logctx"
	"fastrelay/internal/network"
	"fastrelay/internal/pipeline"
	"runtime/debug"
	"strconv"
	"time"
)

func NewListener(namespace []string, queue int, source FrameSource, handler *Handler, bufSize int) (new *Listener) {
	if bufSize <= 0 {
		bufSize = global.DefaultFrameBufferSize
	}
	ns := append(append([]string(nil), namespace...), global.NSListen, strconv.Itoa(queue))
	new = &Listener{
		Namespace: ns,
		queue:     queue,
		source:    source,
		handler:   handler,
		bufSize:   bufSize,
	}
	return
}

// Reads frames until ctx is done. The source must time out reads so
// cancellation is observed.
func (listener *Listener) Run(ctx context.Context) {
	buffer := make([]byte, listener.bufSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			defer func() {
				// Record panics and continue listening
				if fatalError := recover(); fatalError != nil {
					stack := debug.Stack()
					logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
						"panic in listener worker thread: %v\n%s", fatalError, stack)
				}
			}()

			n, err := listener.source.ReadFrame(buffer)
			if err != nil {
				if errors.Is(err, network.ErrReadTimeout) || ctx.Err() != nil {
					return
				}
				listener.Metrics.ReadErrors.Add(1)
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
					"Failed reading frame from queue %d: %v\n", listener.queue, err)
				return
			}
			start := time.Now()

			listener.Metrics.Frames.Add(1)
			listener.Metrics.Bytes.Add(uint64(n))

			// Processing finishes before the next read, the buffer is reused
			pkt := pipeline.Packet{Queue: listener.queue, Frame: buffer[:n]}
			listener.handler.Handle(ctx, pkt, listener.source)

			listener.Metrics.BusyNs.Add(uint64(time.Since(start)))
		}()
	}
}
