package global

import "time"

const (
	// Descriptive Names for available verbosity levels
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug

	// Descriptive names for available severity levels
	ErrorLog string = "Error"
	WarnLog  string = "Warn"
	InfoLog  string = "Info"
)

const (
	ProgVersion string = "v0.3.0"

	// Context keys
	LoggerKey  CtxKey = "logger"  // Event queue (mostly for variable log verbosity handling)
	LogTagsKey CtxKey = "logtags" // List of tags in order of broad->specific appended/popped at various parts of the program

	DefaultConfigPath string = "/etc/fastrelay.json"

	// Dataplane defaults
	DefaultQueueCount       int           = 1
	DefaultMinReentryQueue  int           = 256
	DefaultMaxReentryQueue  int           = 65536
	DefaultFrameBufferSize  int           = 2048
	DefaultReadTimeout      time.Duration = 500 * time.Millisecond
	DefaultFanoutGroupID    int           = 0x4652 // "FR"
	DefaultMetricInterval   time.Duration = 15 * time.Second
	DefaultMetricRetention  time.Duration = 1 * time.Hour
	DefaultBPFPinDir        string        = "/sys/fs/bpf/fastrelay"
	DefaultFreshnessSlotKey uint16        = 0
	DefaultMetricQueryPort  int           = 9470

	// Metric query server
	HTTPListenAddr   string        = "localhost"
	HTTPReadTimeout  time.Duration = 30 * time.Second
	HTTPWriteTimeout time.Duration = 10 * time.Second
	HTTPIdleTimeout  time.Duration = 180 * time.Second
	DataPath         string        = "/data/"
	DiscoveryPath    string        = "/discover/"
	AggregationPath  string        = "/aggregation/"

	// Timeout values
	ShutdownTimeout time.Duration = 5 * time.Second

	// Namespacing Name Components
	NSMetric    string = "Metrics"
	NSTest      string = "Test"
	NSCLI       string = "CLI"
	NSRelay     string = "Relay"
	NSDataplane string = "Dataplane"
	NSKernel    string = "Kernel"
	NSQueue     string = "Queue"
	NSListen    string = "Listener"
	NSReentry   string = "Reentry"
	NSWorker    string = "Worker"
	NSConfig    string = "Config"
	NSAdmission string = "Admission"
	NSServer    string = "QueryServer"
)
