// Daemon hosting the relay pipeline, either in this process on raw sockets or
// in the kernel through the compiled relay program
package dataplane

import (
	"context"
	"errors"
	"fastrelay/internal/admission"
	"fastrelay/internal/atomics"
	"fastrelay/internal/config"
	"fastrelay/internal/directory"
	"fastrelay/internal/ebpf"
	"fastrelay/internal/freshness"
	"fastrelay/internal/global"
	"fastrelay/internal/logctx"
	"fastrelay/internal/metrics"
	"fastrelay/internal/network"
	"fastrelay/internal/pipeline"
	"fastrelay/internal/queue/mpmc"
	"fastrelay/internal/server"
	"fmt"
	"net"
	"sort"
	"time"
)

// Create new daemon instance. configPath is re-read on reload.
func NewDaemon(cfg config.Config, configPath string) (new *Daemon) {
	ctx, cancel := context.WithCancel(context.Background())
	new = &Daemon{
		cfg:        cfg,
		configPath: configPath,
		ctx:        ctx,
		cancel:     cancel,
		Directory:  directory.New(),
		Reconciler: freshness.New(),
		forwarders: make(map[int]*Forwarder),
	}
	return
}

// Starts the packet path in the background - gracefully shuts down if startup error is encountered
func (daemon *Daemon) Start(globalCtx context.Context) (err error) {
	daemon.ctx, daemon.cancel = context.WithCancel(context.Background())
	daemon.ctx = logctx.WithLogger(daemon.ctx, logctx.GetLogger(globalCtx))
	daemon.ctx = logctx.AppendCtxTag(daemon.ctx, global.NSDataplane)

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Starting in %s mode...\n", daemon.cfg.Mode)

	err = daemon.Directory.Replace(daemon.cfg.Targets)
	if err != nil {
		err = fmt.Errorf("failed loading routing table: %w", err)
		return
	}
	daemon.Reconciler.Reseed(daemon.cfg.Seeds)
	logctx.LogEvent(daemon.ctx, global.VerbosityProgress, global.InfoLog,
		"Loaded %d routing keys and %d freshness seeds\n", len(daemon.cfg.Targets), len(daemon.cfg.Seeds))

	daemon.gatherer = NewGatherer(daemon.cfg.MetricCollectionInterval, daemon.cfg.MetricMaxAge, daemon.cfg.MetricOutputPath)

	switch daemon.cfg.Mode {
	case config.ModeKernel:
		err = daemon.startKernel()
	default:
		err = daemon.startUserspace()
	}
	if err != nil {
		daemon.Shutdown()
		return
	}

	workerCtx := daemon.ctx
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		daemon.gatherer.Run(workerCtx)
	}()

	if daemon.cfg.MetricQueryServerEnabled {
		serverCtx := logctx.AppendCtxTag(daemon.ctx, global.NSServer)
		registry := daemon.gatherer.Registry
		daemon.queryServer, err = server.SetupListener(serverCtx, daemon.cfg.MetricQueryServerPort,
			registry.Search, registry.Discover, registry.Aggregate)
		if err != nil {
			err = fmt.Errorf("failed setting up metric query server: %w", err)
			daemon.Shutdown()
			return
		}
		go server.Start(serverCtx, daemon.queryServer)
	}

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Startup complete.\n")
	return
}

func (daemon *Daemon) startUserspace() (err error) {
	iface, err := net.InterfaceByName(daemon.cfg.Interface)
	if err != nil {
		err = fmt.Errorf("failed to find interface %s: %w", daemon.cfg.Interface, err)
		return
	}

	ifaceAddr, err := network.InterfaceIPv4(iface)
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityProgress, global.WarnLog, "%v\n", err)
		err = nil
	} else {
		logctx.LogEvent(daemon.ctx, global.VerbosityProgress, global.InfoLog,
			"Relaying on %s (%s, %s)\n", iface.Name, ifaceAddr, iface.HardwareAddr)
	}

	bufSize := daemon.cfg.FrameBufferSize
	mtuSize, err := network.FrameBufferSize(iface.Name)
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"Could not size frame buffers from interface MTU, using %d bytes: %v\n", bufSize, err)
		err = nil
	} else if mtuSize > bufSize {
		bufSize = mtuSize
	}

	daemon.Admission = admission.New(daemon.cfg.AdmissionPort)
	err = daemon.bindForwarders(daemon.cfg.Admission)
	if err != nil {
		return
	}

	daemon.Engine = pipeline.New(daemon.Admission, daemon.Directory, daemon.Reconciler)

	capacity := mpmc.CapacityFor(daemon.cfg.ReentryQueueSize, bufSize,
		global.DefaultMinReentryQueue, global.DefaultMaxReentryQueue)
	reentry, err := mpmc.New[reentryFrame]([]string{global.NSDataplane, global.NSReentry}, capacity)
	if err != nil {
		err = fmt.Errorf("failed creating re-entry queue: %w", err)
		return
	}
	daemon.handler = NewHandler([]string{global.NSDataplane}, daemon.Engine, reentry)

	// Re-entry workers outlive the listeners so queued clones finish
	for i := 0; i < daemon.cfg.Queues; i++ {
		workerCtx := logctx.AppendCtxTag(daemon.ctx, global.NSReentry)
		daemon.wg.Add(1)
		go func() {
			defer daemon.wg.Done()
			daemon.handler.RunReentry(workerCtx)
		}()
	}

	var listenCtx context.Context
	listenCtx, daemon.listenCancel = context.WithCancel(daemon.ctx)
	for queue := 0; queue < daemon.cfg.Queues; queue++ {
		var sock *network.RawSocket
		sock, err = network.OpenRawSocket(iface.Index, daemon.cfg.FanoutGroup, daemon.cfg.ReadTimeout)
		if err != nil {
			err = fmt.Errorf("failed opening queue %d on %s: %w", queue, iface.Name, err)
			return
		}
		daemon.sources = append(daemon.sources, sock)

		listener := NewListener([]string{global.NSDataplane}, queue, sock, daemon.handler, bufSize)
		daemon.listeners = append(daemon.listeners, listener)

		instanceCtx := logctx.OverwriteCtxTag(listenCtx, listener.Namespace)
		daemon.listenWg.Add(1)
		go func() {
			defer daemon.listenWg.Done()
			listener.Run(instanceCtx)
		}()
	}
	logctx.LogEvent(daemon.ctx, global.VerbosityProgress, global.InfoLog,
		"Listening on %s with %d queues (frame buffer %d bytes, re-entry capacity %d)\n",
		iface.Name, daemon.cfg.Queues, bufSize, capacity)

	engineMetrics := newEngineCollector([]string{global.NSDataplane}, daemon.Engine)
	daemon.gatherer.AddSource(engineMetrics.CollectMetrics)
	daemon.gatherer.AddSource(daemon.handler.CollectMetrics)
	daemon.gatherer.AddSource(reentry.CollectMetrics)
	for _, listener := range daemon.listeners {
		daemon.gatherer.AddSource(listener.CollectMetrics)
	}
	daemon.gatherer.AddSource(daemon.collectForwarderMetrics)
	return
}

func (daemon *Daemon) startKernel() (err error) {
	iface, err := net.InterfaceByName(daemon.cfg.Interface)
	if err != nil {
		err = fmt.Errorf("failed to find interface %s: %w", daemon.cfg.Interface, err)
		return
	}

	kernelCtx := logctx.AppendCtxTag(daemon.ctx, global.NSKernel)
	daemon.kernel, err = ebpf.Load(kernelCtx, ebpf.Options{
		ObjectPath:    daemon.cfg.ObjectPath,
		PinPath:       daemon.cfg.PinPath,
		Ifindex:       iface.Index,
		AttachXDP:     daemon.cfg.AttachXDP,
		AdmissionPort: daemon.cfg.AdmissionPort,
	})
	if err != nil {
		err = fmt.Errorf("failed loading kernel relay: %w", err)
		return
	}

	err = daemon.syncKernel(kernelCtx, daemon.cfg)
	if err != nil {
		return
	}
	if len(daemon.cfg.Admission) > 0 {
		logctx.LogEvent(kernelCtx, global.VerbosityStandard, global.InfoLog,
			"Admission queues are served by AF_XDP consumers bound through %s, forward addresses are ignored\n", daemon.cfg.PinPath)
	}

	daemon.gatherer.AddSource(daemon.collectKernelMetrics)
	return
}

func (daemon *Daemon) syncKernel(ctx context.Context, cfg config.Config) (err error) {
	err = daemon.kernel.SyncTargets(ctx, cfg.Targets)
	if err != nil {
		return
	}
	err = daemon.kernel.SyncQueues(ctx, sortedQueues(cfg.Admission))
	if err != nil {
		return
	}
	err = daemon.kernel.SyncSeeds(ctx, cfg.Seeds)
	return
}

// Dials forwarders for queues in table that are not bound to the same
// address yet and unbinds queues no longer present
func (daemon *Daemon) bindForwarders(table map[int]string) (err error) {
	for queue, address := range table {
		existing, bound := daemon.forwarders[queue]
		if bound && existing.Address() == address {
			continue
		}

		var forwarder *Forwarder
		forwarder, err = NewForwarder([]string{global.NSDataplane}, queue, address)
		if err != nil {
			return
		}
		err = daemon.Admission.BindQueue(queue, forwarder)
		if err != nil {
			forwarder.Close()
			err = fmt.Errorf("failed binding admission queue %d: %w", queue, err)
			return
		}
		daemon.forwarders[queue] = forwarder
		if bound {
			existing.Close()
		}
		logctx.LogEvent(daemon.ctx, global.VerbosityProgress, global.InfoLog,
			"Admission queue %d forwards to %s\n", queue, address)
	}

	for queue, forwarder := range daemon.forwarders {
		if _, keep := table[queue]; keep {
			continue
		}
		daemon.Admission.UnbindQueue(queue)
		forwarder.Close()
		delete(daemon.forwarders, queue)
		logctx.LogEvent(daemon.ctx, global.VerbosityProgress, global.InfoLog, "Admission queue %d unbound\n", queue)
	}
	return
}

func (daemon *Daemon) collectForwarderMetrics(interval time.Duration) (collection []metrics.Metric) {
	daemon.reloadMu.Lock()
	defer daemon.reloadMu.Unlock()
	for _, forwarder := range daemon.forwarders {
		collection = append(collection, forwarder.CollectMetrics(interval)...)
	}
	return
}

func (daemon *Daemon) collectKernelMetrics(interval time.Duration) (collection []metrics.Metric) {
	collection = []metrics.Metric{
		{
			Name:        "routing_keys",
			Description: "Routing keys mirrored into the kernel",
			Namespace:   []string{global.NSDataplane, global.NSKernel},
			Value:       metrics.MetricValue{Raw: uint64(daemon.kernel.KeyCount()), Unit: "count", Interval: interval},
			Type:        metrics.Gauge,
			Timestamp:   time.Now(),
		},
	}

	table, err := daemon.kernel.KernelTargets()
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog, "Failed reading kernel targets: %v\n", err)
		return
	}
	var targets, unreachable uint64
	for _, entries := range table {
		for _, entry := range entries {
			targets++
			if entry.IsEmpty() {
				unreachable++
			}
		}
	}
	collection = append(collection,
		metrics.Metric{
			Name:        "targets",
			Description: "Target slots held by the kernel routing table",
			Namespace:   []string{global.NSDataplane, global.NSKernel},
			Value:       metrics.MetricValue{Raw: targets, Unit: "count", Interval: interval},
			Type:        metrics.Gauge,
			Timestamp:   time.Now(),
		},
		metrics.Metric{
			Name:        "empty_targets",
			Description: "Kernel target slots without an address or port",
			Namespace:   []string{global.NSDataplane, global.NSKernel},
			Value:       metrics.MetricValue{Raw: unreachable, Unit: "count", Interval: interval},
			Type:        metrics.Gauge,
			Timestamp:   time.Now(),
		},
	)
	return
}

// Re-reads the config file and swaps in its routing table, freshness seeds
// and admission bindings. Interface and mode changes need a restart.
func (daemon *Daemon) Reload(ctx context.Context) (err error) {
	daemon.reloadMu.Lock()
	defer daemon.reloadMu.Unlock()

	ctx = logctx.AppendCtxTag(ctx, global.NSConfig)

	next, err := config.Load(daemon.configPath)
	if err != nil {
		return
	}

	if next.Mode != daemon.cfg.Mode || next.Interface != daemon.cfg.Interface || next.Queues != daemon.cfg.Queues {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"Mode, interface and queue count changes take effect after restart\n")
	}

	err = daemon.Directory.Replace(next.Targets)
	if err != nil {
		err = fmt.Errorf("failed loading routing table: %w", err)
		return
	}
	daemon.Reconciler.Reseed(next.Seeds)

	if daemon.kernel != nil {
		err = daemon.syncKernel(ctx, next)
		if err != nil {
			return
		}
	}
	if daemon.Admission != nil {
		err = daemon.bindForwarders(next.Admission)
		if err != nil {
			return
		}
	}

	daemon.cfg.Targets = next.Targets
	daemon.cfg.Seeds = next.Seeds
	daemon.cfg.Admission = next.Admission
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Reloaded %d routing keys and %d freshness seeds\n", len(next.Targets), len(next.Seeds))
	return
}

// Gracefully shutdown the packet path (errors are printed to program log buffer)
func (daemon *Daemon) Shutdown() {
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Daemon shutdown started...\n")

	if daemon.queryServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), global.ShutdownTimeout)
		err := daemon.queryServer.Shutdown(stopCtx)
		stopCancel()
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog, "Metric query server did not stop cleanly: %v\n", err)
		}
		daemon.queryServer = nil
	}

	// Stop reading new frames
	if daemon.listenCancel != nil {
		daemon.listenCancel()
	}
	daemon.listenWg.Wait()

	// Let queued clones finish their chains
	if daemon.handler != nil {
		success, last := atomics.WaitUntilZero(&daemon.handler.inFlight, global.ShutdownTimeout)
		if !success {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"re-entry queue did not empty in time: dropped %d clones\n", last)
		}
	}

	daemon.cancel()

	done := make(chan struct{})
	go func() {
		daemon.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(global.ShutdownTimeout):
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"Timeout: workers did not stop within %v seconds\n", global.ShutdownTimeout.Seconds())
	}

	var problems []error
	for _, source := range daemon.sources {
		problems = append(problems, source.Close())
	}
	daemon.sources = nil

	daemon.reloadMu.Lock()
	for queue, forwarder := range daemon.forwarders {
		problems = append(problems, forwarder.Close())
		delete(daemon.forwarders, queue)
	}
	daemon.reloadMu.Unlock()

	if daemon.kernel != nil {
		problems = append(problems, daemon.kernel.Close())
		daemon.kernel = nil
	}

	err := errors.Join(problems...)
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog, "Errors releasing resources: %v\n", err)
	}
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Daemon shutdown completed\n")
}

func sortedQueues(table map[int]string) (queues []int) {
	for queue := range table {
		queues = append(queues, queue)
	}
	sort.Ints(queues)
	return
}
