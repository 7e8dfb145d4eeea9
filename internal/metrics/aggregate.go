package metrics

import (
	"fastrelay/internal/calc"
	"fmt"
	"strings"
	"time"
)

const (
	AggSum         string = "sum"
	AggMean        string = "mean"
	AggTrimmedMean string = "trimmed-mean"
	AggMin         string = "min"
	AggMax         string = "max"

	trimPercent float64 = 0.1
)

// Single value reduction of every matching sample in the window.
// Result carries the query namespace and the newest sample's timestamp.
func (registry *Registry) Aggregate(aggregation, name string, namespacePrefix []string, start, end time.Time) (result Metric, err error) {
	if name == "" {
		err = fmt.Errorf("aggregation requires a metric name")
		return
	}

	samples := registry.Search(name, namespacePrefix, start, end)
	if len(samples) == 0 {
		err = fmt.Errorf("no samples for metric %q", name)
		return
	}

	values := make([]uint64, len(samples))
	for i, sample := range samples {
		values[i] = sample.Value.Raw
	}

	var value uint64
	switch strings.ToLower(aggregation) {
	case AggSum, "":
		for _, v := range values {
			value += v
		}
	case AggMean:
		value = calc.TrimmedMeanUint64(values, 0)
	case AggTrimmedMean:
		value = calc.TrimmedMeanUint64(values, trimPercent)
	case AggMin:
		value = values[0]
		for _, v := range values[1:] {
			value = min(value, v)
		}
	case AggMax:
		for _, v := range values {
			value = max(value, v)
		}
	default:
		err = fmt.Errorf("unknown aggregation %q", aggregation)
		return
	}

	newest := samples[len(samples)-1]
	result = Metric{
		Name:        name,
		Description: fmt.Sprintf("%s of %d samples", strings.ToLower(aggregation), len(samples)),
		Namespace:   namespacePrefix,
		Type:        newest.Type,
		Timestamp:   newest.Timestamp,
		Value: MetricValue{
			Raw:      value,
			Unit:     newest.Value.Unit,
			Interval: newest.Value.Interval,
		},
	}
	return
}
