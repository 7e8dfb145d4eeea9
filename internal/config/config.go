// JSON configuration for the relay daemon
package config

import (
	"encoding/json"
	"fastrelay/internal/directory"
	"fastrelay/internal/global"
	"fastrelay/internal/network"
	"fastrelay/pkg/protocol"
	"fmt"
	"net"
	"os"
	"time"
)

// Loads JSON config from file
func LoadConfig(path string) (cfg JSONConfig, err error) {
	configFile, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read config file: %w", err)
		return
	}

	err = json.Unmarshal(configFile, &cfg)
	if err != nil {
		err = fmt.Errorf("invalid config syntax in '%s': %w", path, err)
		return
	}
	return
}

// Reads, validates and defaults the config at path
func Load(path string) (config Config, err error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return
	}
	config, err = cfg.NewDaemonConf()
	return
}

// Parses JSON config into daemon config
func (cfg JSONConfig) NewDaemonConf() (config Config, err error) {
	switch Mode(cfg.Mode) {
	case "", ModeUserspace:
		config.Mode = ModeUserspace
	case ModeKernel:
		config.Mode = ModeKernel
	default:
		err = fmt.Errorf("unknown mode '%s'", cfg.Mode)
		return
	}

	// Network settings
	config.Interface = cfg.Network.Interface
	if config.Interface == "" {
		err = fmt.Errorf("network interface is required")
		return
	}
	if cfg.Network.Queues < 0 {
		err = fmt.Errorf("queue count %d must not be negative", cfg.Network.Queues)
		return
	}
	config.Queues = cfg.Network.Queues
	config.FanoutGroup = cfg.Network.FanoutGroup
	if cfg.Network.AdmissionPort < 0 || cfg.Network.AdmissionPort > 65535 {
		err = fmt.Errorf("admission port %d out of range", cfg.Network.AdmissionPort)
		return
	}
	config.AdmissionPort = uint16(cfg.Network.AdmissionPort)
	config.ReadTimeout, err = parseOptionalDuration(cfg.Network.ReadTimeout)
	if err != nil {
		err = fmt.Errorf("failed to parse read timeout: %w", err)
		return
	}

	// Kernel settings
	config.ObjectPath = cfg.Kernel.ObjectPath
	config.PinPath = cfg.Kernel.PinPath
	config.AttachXDP = cfg.Kernel.AttachXDP
	if config.Mode == ModeKernel && config.ObjectPath == "" {
		err = fmt.Errorf("kernel mode requires kernel.objectPath")
		return
	}

	config.Targets, err = parseTargets(cfg.Targets)
	if err != nil {
		return
	}

	config.Admission = make(map[int]string, len(cfg.Admission))
	for _, binding := range cfg.Admission {
		if binding.Queue < 0 {
			err = fmt.Errorf("admission queue %d must not be negative", binding.Queue)
			return
		}
		if _, exists := config.Admission[binding.Queue]; exists {
			err = fmt.Errorf("admission queue %d bound twice", binding.Queue)
			return
		}
		if config.Mode == ModeUserspace {
			_, _, err = net.SplitHostPort(binding.ForwardTo)
			if err != nil {
				err = fmt.Errorf("admission queue %d: invalid forward address '%s': %w", binding.Queue, binding.ForwardTo, err)
				return
			}
		}
		config.Admission[binding.Queue] = binding.ForwardTo
	}

	config.Seeds = make(map[protocol.RoutingKey]int64, len(cfg.Freshness))
	for _, seed := range cfg.Freshness {
		if seed.Key < 0 || seed.Key > int(protocol.MaxRoutingKey) {
			err = fmt.Errorf("freshness key %d out of range", seed.Key)
			return
		}
		config.Seeds[protocol.RoutingKey(seed.Key)] = seed.Value
	}

	config.ReentryQueueSize = cfg.ReentryQueueSize

	// Metric settings
	config.MetricOutputPath = cfg.Metrics.OutputPath
	config.MetricQueryServerEnabled = cfg.Metrics.EnableHTTP
	config.MetricQueryServerPort = cfg.Metrics.HTTPPort
	if config.MetricQueryServerPort < 0 || config.MetricQueryServerPort > 65535 {
		err = fmt.Errorf("invalid metric query server port %d", config.MetricQueryServerPort)
		return
	}
	config.MetricMaxAge, err = parseOptionalDuration(cfg.Metrics.MaxAge)
	if err != nil {
		err = fmt.Errorf("failed to parse metric max age time: %w", err)
		return
	}
	config.MetricCollectionInterval, err = parseOptionalDuration(cfg.Metrics.Interval)
	if err != nil {
		err = fmt.Errorf("failed to parse metric collection interval time: %w", err)
		return
	}

	config.setDefaults()
	return
}

func parseTargets(lists []JSONTargetList) (targets map[protocol.RoutingKey][]directory.TargetEntry, err error) {
	targets = make(map[protocol.RoutingKey][]directory.TargetEntry, len(lists))
	for _, list := range lists {
		if list.Key < 0 || list.Key > int(protocol.MaxRoutingKey) {
			err = fmt.Errorf("routing key %d out of range", list.Key)
			return
		}
		key := protocol.RoutingKey(list.Key)
		if _, exists := targets[key]; exists {
			err = fmt.Errorf("routing key %s listed twice", key)
			return
		}
		if len(list.Entries) > directory.MaxTargets {
			err = fmt.Errorf("routing key %s: %d targets exceed the maximum of %d", key, len(list.Entries), directory.MaxTargets)
			return
		}

		entries := make([]directory.TargetEntry, 0, len(list.Entries))
		for i, target := range list.Entries {
			var entry directory.TargetEntry
			entry, err = parseTarget(target)
			if err != nil {
				err = fmt.Errorf("routing key %s entry %d: %w", key, i, err)
				return
			}
			entries = append(entries, entry)
		}
		targets[key] = entries
	}
	return
}

func parseTarget(target JSONTarget) (entry directory.TargetEntry, err error) {
	if target.Port <= 0 || target.Port > 65535 {
		err = fmt.Errorf("port %d out of range", target.Port)
		return
	}
	entry.Port = uint16(target.Port)

	entry.Addr, err = network.ParseIPv4(target.Address)
	if err != nil {
		return
	}
	entry.MAC, err = network.ParseMAC(target.MAC)
	return
}

func parseOptionalDuration(value string) (duration time.Duration, err error) {
	if value == "" {
		return
	}
	duration, err = time.ParseDuration(value)
	if err == nil && duration < 0 {
		err = fmt.Errorf("duration %s must not be negative", value)
	}
	return
}

// Sets defaults for any missing values
func (cfg *Config) setDefaults() {
	if cfg.Queues == 0 {
		cfg.Queues = global.DefaultQueueCount
	}
	if cfg.FanoutGroup == 0 {
		cfg.FanoutGroup = global.DefaultFanoutGroupID
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = global.DefaultReadTimeout
	}
	if cfg.PinPath == "" {
		cfg.PinPath = global.DefaultBPFPinDir
	}

	if cfg.ReentryQueueSize == 0 {
		cfg.ReentryQueueSize = global.DefaultMinReentryQueue * cfg.Queues
	}
	if cfg.ReentryQueueSize < global.DefaultMinReentryQueue {
		cfg.ReentryQueueSize = global.DefaultMinReentryQueue
	}
	if cfg.ReentryQueueSize > global.DefaultMaxReentryQueue {
		cfg.ReentryQueueSize = global.DefaultMaxReentryQueue
	}
	if cfg.FrameBufferSize == 0 {
		cfg.FrameBufferSize = global.DefaultFrameBufferSize
	}

	if cfg.MetricMaxAge == 0 {
		cfg.MetricMaxAge = global.DefaultMetricRetention
	}
	if cfg.MetricCollectionInterval == 0 {
		cfg.MetricCollectionInterval = global.DefaultMetricInterval
	}
	if cfg.MetricQueryServerPort == 0 {
		cfg.MetricQueryServerPort = global.DefaultMetricQueryPort
	}
}
