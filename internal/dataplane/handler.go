package dataplane

import (
	"context"
	"fastrelay/internal/global"
	"fastrelay/internal/logctx"
	"fastrelay/internal/pipeline"
	"fastrelay/internal/queue/mpmc"
	"runtime/debug"
)

func NewHandler(namespace []string, engine *pipeline.Engine, reentry *mpmc.Queue[reentryFrame]) (new *Handler) {
	new = &Handler{
		Namespace: append(append([]string(nil), namespace...), global.NSWorker),
		engine:    engine,
		reentry:   reentry,
	}
	return
}

func reentrySize(item reentryFrame) int {
	return len(item.frame)
}

// Processes one activation. Relayed and bounced frames are written to tx,
// a clone is queued for re-entry on the same transmitter.
func (handler *Handler) Handle(ctx context.Context, pkt pipeline.Packet, tx Transmitter) (result pipeline.Result) {
	result = handler.engine.Process(ctx, pkt)
	if result.Err != nil {
		handler.Metrics.Errored.Add(1)
		logctx.LogEvent(ctx, global.VerbosityFullData, global.InfoLog,
			"Queue %d: %s frame (key %s): %v\n", pkt.Queue, result.Disposition, result.Key, result.Err)
	}

	if result.Disposition.Transmits() {
		err := tx.WriteFrame(pkt.Frame)
		if err != nil {
			handler.Metrics.TransmitErrors.Add(1)
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"Queue %d: failed to transmit %s frame: %v\n", pkt.Queue, result.Disposition, err)
		} else {
			handler.Metrics.Transmitted.Add(1)
		}
	}

	if result.Clone != nil {
		handler.inFlight.Add(1)
		ok := handler.reentry.Push(reentryFrame{queue: pkt.Queue, frame: result.Clone, tx: tx}, len(result.Clone))
		if !ok {
			handler.inFlight.Add(-1)
			handler.Metrics.ReentryDropped.Add(1)
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"Queue %d: re-entry queue full, chain for key %s cut at slot %d\n", pkt.Queue, result.Key, result.Index)
		}
	}
	return
}

// Serves the re-entry queue until ctx is done
func (handler *Handler) RunReentry(ctx context.Context) {
	for {
		item, ok := handler.reentry.Pop(ctx, reentrySize)
		if !ok {
			return
		}
		handler.handleReentry(ctx, item)
	}
}

func (handler *Handler) handleReentry(ctx context.Context, item reentryFrame) {
	defer handler.inFlight.Add(-1)
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in re-entry worker: %v\n%s", fatalError, stack)
		}
	}()

	handler.Handle(ctx, pipeline.Packet{Queue: item.queue, Frame: item.frame, Reentry: true}, item.tx)
}

// Clones queued or still being processed
func (handler *Handler) InFlight() (count int64) {
	count = handler.inFlight.Load()
	return
}
