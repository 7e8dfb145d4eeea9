package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Export form of the metric
func (inMetric Metric) Convert() (outMetric JMetric) {
	outMetric.Name = inMetric.Name
	outMetric.Description = inMetric.Description
	outMetric.Namespace = strings.Join(inMetric.Namespace, "/")
	outMetric.Type = string(inMetric.Type)
	outMetric.Timestamp = inMetric.Timestamp.Format(time.RFC3339Nano)
	outMetric.Value.Raw = inMetric.Value.Raw
	outMetric.Value.Unit = inMetric.Value.Unit
	outMetric.Value.Interval = inMetric.Value.Interval.String()
	return
}

// Writes one JSON object per metric
func WriteJSON(output io.Writer, collection []Metric) (err error) {
	encoder := json.NewEncoder(output)
	for _, metric := range collection {
		err = encoder.Encode(metric.Convert())
		if err != nil {
			err = fmt.Errorf("failed to encode metric %s: %w", metric.Name, err)
			return
		}
	}
	return
}
