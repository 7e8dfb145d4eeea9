package metrics

import (
	"sync"
	"time"
)

// Time sliced metric storage.
// key0=time slice, key1=joined namespace, key2=metric name
type Registry struct {
	mu      sync.RWMutex
	metrics map[time.Time]map[string]map[string]Metric
}

type MetricType string

const (
	Counter MetricType = "counter" // per interval delta
	Gauge   MetricType = "gauge"   // point in time value
)

type Metric struct {
	Name        string // e.g. relayed, reentry_depth
	Description string
	Namespace   []string // e.g. "Dataplane/Listener/0"
	Value       MetricValue
	Type        MetricType
	Timestamp   time.Time // when the value was collected
}

type MetricValue struct {
	Raw      uint64
	Unit     string        // "count", "frames", "bytes"
	Interval time.Duration // collection window the value covers
}

// JSON export form
type JMetric struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Namespace   string       `json:"namespace"`
	Value       JMetricValue `json:"value"`
	Type        string       `json:"type"`
	Timestamp   string       `json:"timestamp"`
}

type JMetricValue struct {
	Raw      uint64 `json:"raw"`
	Unit     string `json:"unit"`
	Interval string `json:"interval"`
}
