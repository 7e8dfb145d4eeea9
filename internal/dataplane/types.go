package dataplane

import (
	"context"
	"fastrelay/internal/admission"
	"fastrelay/internal/config"
	"fastrelay/internal/directory"
	"fastrelay/internal/ebpf"
	"fastrelay/internal/freshness"
	"fastrelay/internal/metrics"
	"fastrelay/internal/pipeline"
	"fastrelay/internal/queue/mpmc"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Puts a rewritten frame back on the wire
type Transmitter interface {
	WriteFrame(frame []byte) (err error)
}

// Receive queue backed by a raw socket
type FrameSource interface {
	Transmitter
	ReadFrame(buf []byte) (n int, err error)
	Close() (err error)
}

// Clone waiting to re-enter the pipeline, transmitted on the socket its
// parent arrived on
type reentryFrame struct {
	queue int
	frame []byte
	tx    Transmitter
}

// Runs frames through the engine and acts on the disposition
type Handler struct {
	Namespace []string
	engine    *pipeline.Engine
	reentry   *mpmc.Queue[reentryFrame]
	inFlight  atomic.Int64 // clones queued or being processed
	Metrics   HandlerMetrics
}

type HandlerMetrics struct {
	Transmitted    atomic.Uint64 // relayed or bounced frames written
	TransmitErrors atomic.Uint64 // writes that failed
	ReentryDropped atomic.Uint64 // clones lost to a full re-entry queue
	Errored        atomic.Uint64 // activations that carried an error
}

// Reads one receive queue
type Listener struct {
	Namespace []string
	queue     int
	source    FrameSource
	handler   *Handler
	bufSize   int
	Metrics   ListenerMetrics
}

type ListenerMetrics struct {
	Frames     atomic.Uint64 // frames read
	Bytes      atomic.Uint64 // bytes read
	ReadErrors atomic.Uint64 // failed reads (timeouts excluded)
	BusyNs     atomic.Uint64 // time spent processing frames
}

// Admission socket that hands redirected UDP payloads to a local consumer
type Forwarder struct {
	Namespace []string
	address   string
	conn      net.Conn
	Metrics   ForwarderMetrics
}

type ForwarderMetrics struct {
	Forwarded atomic.Uint64
	Failed    atomic.Uint64
}

// Interval collector feeding the metric registry
type Gatherer struct {
	Registry   *metrics.Registry
	Interval   time.Duration
	Retention  time.Duration
	OutputPath string

	mutex   sync.Mutex
	sources []func(interval time.Duration) []metrics.Metric
}

// Disposition counters read from the engine between intervals
type engineCollector struct {
	namespace []string
	engine    *pipeline.Engine
	last      pipeline.Stats
}

type Daemon struct {
	cfg        config.Config
	configPath string
	ctx        context.Context
	cancel     context.CancelFunc

	wg           sync.WaitGroup // workers stopped last
	listenWg     sync.WaitGroup // listeners stopped first
	listenCancel context.CancelFunc
	reloadMu     sync.Mutex

	Directory  *directory.Directory
	Reconciler *freshness.Reconciler
	Admission  *admission.Filter
	Engine     *pipeline.Engine

	handler     *Handler
	listeners   []*Listener
	sources     []FrameSource
	forwarders  map[int]*Forwarder
	kernel      *ebpf.Host
	gatherer    *Gatherer
	queryServer *http.Server
}
