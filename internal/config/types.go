package config

import (
	"fastrelay/internal/directory"
	"fastrelay/pkg/protocol"
	"time"
)

// Which host runs the packet path
type Mode string

const (
	ModeUserspace Mode = "userspace" // AF_PACKET sockets, pipeline runs in this process
	ModeKernel    Mode = "kernel"    // compiled relay program, this process only drives its maps
)

type JSONConfig struct {
	Mode    string `json:"mode"`
	Network struct {
		Interface     string `json:"interface"`
		Queues        int    `json:"queues,omitempty"`
		FanoutGroup   int    `json:"fanoutGroup,omitempty"`
		AdmissionPort int    `json:"admissionPort,omitempty"`
		ReadTimeout   string `json:"readTimeout,omitempty"`
	} `json:"network"`
	Kernel struct {
		ObjectPath string `json:"objectPath,omitempty"`
		PinPath    string `json:"pinPath,omitempty"`
		AttachXDP  bool   `json:"attachXDP,omitempty"`
	} `json:"kernel"`
	Targets   []JSONTargetList `json:"targets"`
	Admission []JSONAdmission  `json:"admission,omitempty"`
	Freshness []JSONSeed       `json:"freshness,omitempty"`
	Metrics   struct {
		Interval   string `json:"collectionInterval,omitempty"`
		MaxAge     string `json:"maximumRetention,omitempty"`
		OutputPath string `json:"outputPath,omitempty"`
		EnableHTTP bool   `json:"enableHTTPQueryServer,omitempty"`
		HTTPPort   int    `json:"queryServerPort,omitempty"`
	} `json:"metrics"`
	ReentryQueueSize int `json:"reentryQueueSize,omitempty"`
}

// Ordered relay targets for one routing key
type JSONTargetList struct {
	Key     int          `json:"key"`
	Entries []JSONTarget `json:"entries"`
}

type JSONTarget struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	MAC     string `json:"mac,omitempty"`
}

// Receive queue whose frames are handed to a socket instead of the relay path
type JSONAdmission struct {
	Queue     int    `json:"queue"`
	ForwardTo string `json:"forwardTo"`
}

// Initial freshness slot value for a metadata key
type JSONSeed struct {
	Key   int   `json:"key"`
	Value int64 `json:"value"`
}

type Config struct {
	Mode Mode

	// Network settings
	Interface     string
	Queues        int
	FanoutGroup   int
	AdmissionPort uint16
	ReadTimeout   time.Duration

	// Kernel mode settings
	ObjectPath string
	PinPath    string
	AttachXDP  bool

	// Tables
	Targets   map[protocol.RoutingKey][]directory.TargetEntry
	Admission map[int]string // queue id -> forward address
	Seeds     map[protocol.RoutingKey]int64

	// Buffers
	ReentryQueueSize int
	FrameBufferSize  int

	// Metrics
	MetricCollectionInterval time.Duration
	MetricMaxAge             time.Duration
	MetricOutputPath         string
	MetricQueryServerEnabled bool
	MetricQueryServerPort    int
}
