// Gathers dataplane metrics and saves to central registry
package dataplane

import (
	"context"
	"fastrelay/internal/global"
	"fastrelay/internal/logctx"
	"fastrelay/internal/metrics"
	"fastrelay/internal/pipeline"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"
)

func NewGatherer(interval time.Duration, retention time.Duration, outputPath string) (new *Gatherer) {
	new = &Gatherer{
		Registry:   metrics.New(),
		Interval:   interval,
		Retention:  retention,
		OutputPath: outputPath,
	}
	return
}

// Registers a collector read once per interval
func (gatherer *Gatherer) AddSource(source func(interval time.Duration) []metrics.Metric) {
	gatherer.mutex.Lock()
	defer gatherer.mutex.Unlock()
	gatherer.sources = append(gatherer.sources, source)
}

func (gatherer *Gatherer) Run(ctx context.Context) {
	ctx = logctx.AppendCtxTag(ctx, global.NSMetric)

	lastRun := time.Now()

	ticker := time.NewTicker(gatherer.Interval / 2) // Use polling interval half of desired record interval
	defer ticker.Stop()

	var tickCount int

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Sub(lastRun) >= gatherer.Interval {
				lastRun = now
				gatherer.CollectOnce(ctx, now)
			}

			tickCount++
			if tickCount >= 30 {
				removed := gatherer.Registry.Prune(now, gatherer.Retention)
				if removed > 0 {
					logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog, "Pruned %d metric time slices\n", removed)
				}
				tickCount = 0
			}
		}
	}
}

// Reads every source into a new time slice and exports it when an output
// path is set
func (gatherer *Gatherer) CollectOnce(ctx context.Context, now time.Time) (collection []metrics.Metric) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in metric collector thread: %v\n%s", fatalError, stack)
		}
	}()

	gatherer.mutex.Lock()
	sources := append([]func(time.Duration) []metrics.Metric(nil), gatherer.sources...)
	gatherer.mutex.Unlock()

	for _, source := range sources {
		collection = append(collection, source(gatherer.Interval)...)
	}

	timeSlice := gatherer.Registry.NewTimeSlice(now, gatherer.Interval)
	gatherer.Registry.Add(timeSlice, collection)

	if gatherer.OutputPath == "" {
		return
	}
	err := gatherer.export(collection)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Metric export failed: %v\n", err)
	}
	return
}

// Replaces the output file with the latest collection
func (gatherer *Gatherer) export(collection []metrics.Metric) (err error) {
	dir := filepath.Dir(gatherer.OutputPath)
	tmpFile, err := os.CreateTemp(dir, ".metrics-*.json")
	if err != nil {
		err = fmt.Errorf("failed to create temporary metric file: %w", err)
		return
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	err = metrics.WriteJSON(tmpFile, collection)
	if err != nil {
		tmpFile.Close()
		return
	}
	err = tmpFile.Close()
	if err != nil {
		err = fmt.Errorf("failed to close temporary metric file: %w", err)
		return
	}

	err = os.Rename(tmpPath, gatherer.OutputPath)
	if err != nil {
		err = fmt.Errorf("failed to replace metric file: %w", err)
		return
	}
	return
}

func newEngineCollector(namespace []string, engine *pipeline.Engine) (new *engineCollector) {
	new = &engineCollector{
		namespace: append(append([]string(nil), namespace...), global.NSRelay),
		engine:    engine,
	}
	return
}

// Per interval deltas of the engine's cumulative counters
func (collector *engineCollector) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	current := collector.engine.Stats()
	recordTime := time.Now()

	add := func(name string, raw uint64, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   collector.namespace,
			Type:        metrics.Counter,
			Timestamp:   recordTime,
			Value: metrics.MetricValue{
				Raw:      raw,
				Unit:     "frames",
				Interval: interval,
			},
		})
	}

	for i := 0; i < pipeline.DispositionCount; i++ {
		disposition := pipeline.Disposition(i)
		add("disposition_"+strings.ReplaceAll(disposition.String(), "-", "_"),
			current.Dispositions[i]-collector.last.Dispositions[i],
			fmt.Sprintf("Activations that ended in %s in the interval", disposition))
	}
	add("clones", current.Clones-collector.last.Clones, "Clones produced by the relay dispatcher in the interval")
	add("errors", current.Errors-collector.last.Errors, "Activations that carried an error in the interval")

	collector.last = current
	return
}

func (listener *Listener) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	frames := listener.Metrics.Frames.Swap(0)
	bytes := listener.Metrics.Bytes.Swap(0)
	readErrors := listener.Metrics.ReadErrors.Swap(0)
	busyNs := listener.Metrics.BusyNs.Swap(0)

	recordTime := time.Now()

	var busyPct uint64
	if interval > 0 {
		busyPct = busyNs * 100 / uint64(interval.Nanoseconds())
	}

	collection = []metrics.Metric{
		{
			Name:        "frames_total",
			Description: "Frames read from the receive queue in the interval",
			Namespace:   listener.Namespace,
			Value:       metrics.MetricValue{Raw: frames, Unit: "frames", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "bytes_total",
			Description: "Bytes read from the receive queue in the interval",
			Namespace:   listener.Namespace,
			Value:       metrics.MetricValue{Raw: bytes, Unit: "bytes", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "read_errors_total",
			Description: "Failed reads in the interval",
			Namespace:   listener.Namespace,
			Value:       metrics.MetricValue{Raw: readErrors, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "busy_time_percent",
			Description: "Share of the interval spent processing frames",
			Namespace:   listener.Namespace,
			Value:       metrics.MetricValue{Raw: busyPct, Unit: "%", Interval: interval},
			Type:        metrics.Gauge,
			Timestamp:   recordTime,
		},
	}
	return
}

func (handler *Handler) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	add := func(name string, raw uint64, unit string, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   handler.Namespace,
			Type:        t,
			Timestamp:   recordTime,
			Value:       metrics.MetricValue{Raw: raw, Unit: unit, Interval: interval},
		})
	}

	inFlight := handler.inFlight.Load()
	if inFlight < 0 {
		inFlight = 0
	}
	add("transmitted", handler.Metrics.Transmitted.Swap(0), "frames", metrics.Counter, "Relayed or bounced frames written in the interval")
	add("transmit_errors", handler.Metrics.TransmitErrors.Swap(0), "count", metrics.Counter, "Frame writes that failed in the interval")
	add("reentry_dropped", handler.Metrics.ReentryDropped.Swap(0), "frames", metrics.Counter, "Clones lost to a full re-entry queue in the interval")
	add("errored", handler.Metrics.Errored.Swap(0), "count", metrics.Counter, "Activations that carried an error in the interval")
	add("reentry_in_flight", uint64(inFlight), "frames", metrics.Gauge, "Clones queued or being processed")
	return
}

func (forwarder *Forwarder) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()
	collection = []metrics.Metric{
		{
			Name:        "forwarded",
			Description: "Redirected payloads handed to the admission consumer in the interval",
			Namespace:   forwarder.Namespace,
			Value:       metrics.MetricValue{Raw: forwarder.Metrics.Forwarded.Swap(0), Unit: "frames", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "failed",
			Description: "Redirected frames that could not be forwarded in the interval",
			Namespace:   forwarder.Namespace,
			Value:       metrics.MetricValue{Raw: forwarder.Metrics.Failed.Swap(0), Unit: "frames", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
	}
	return
}
