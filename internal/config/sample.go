package config

import (
	"encoding/json"
	"fastrelay/internal/global"
	"fmt"
	"os"
)

// Example configuration covering every section
func Sample() (cfg JSONConfig) {
	cfg.Mode = string(ModeUserspace)
	cfg.Network.Interface = "eth0"
	cfg.Network.Queues = global.DefaultQueueCount
	cfg.Network.AdmissionPort = 8000
	cfg.Kernel.ObjectPath = "/usr/lib/fastrelay/relay.o"
	cfg.Kernel.PinPath = global.DefaultBPFPinDir
	cfg.Targets = []JSONTargetList{
		{
			Key: 42,
			Entries: []JSONTarget{
				{Address: "10.0.0.1", Port: 9000},
				{Address: "10.0.0.2", Port: 9000, MAC: "02:00:00:00:00:02"},
			},
		},
	}
	cfg.Freshness = []JSONSeed{{Key: 0, Value: 0}}
	cfg.Metrics.Interval = global.DefaultMetricInterval.String()
	cfg.Metrics.MaxAge = global.DefaultMetricRetention.String()
	cfg.Metrics.HTTPPort = global.DefaultMetricQueryPort
	return
}

// Writes the sample configuration to path
func WriteSample(path string) (err error) {
	content, err := json.MarshalIndent(Sample(), "", "  ")
	if err != nil {
		err = fmt.Errorf("failed to encode sample config: %w", err)
		return
	}
	content = append(content, '\n')

	err = os.WriteFile(path, content, 0640)
	if err != nil {
		err = fmt.Errorf("failed to write config file: %w", err)
		return
	}
	return
}
