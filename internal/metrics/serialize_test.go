package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		input    Metric
		expected JMetric
	}{
		{
			name: "all fields",
			input: Metric{
				Name:        "relay",
				Description: "frames relayed",
				Namespace:   []string{"Dataplane", "Listener", "0"},
				Value:       MetricValue{Raw: 45, Unit: "frames", Interval: 15 * time.Second},
				Type:        Counter,
				Timestamp:   time.Date(2001, time.January, 1, 1, 1, 1, 1, time.UTC),
			},
			expected: JMetric{
				Name:        "relay",
				Description: "frames relayed",
				Namespace:   "Dataplane/Listener/0",
				Value:       JMetricValue{Raw: 45, Unit: "frames", Interval: "15s"},
				Type:        "counter",
				Timestamp:   "2001-01-01T01:01:01.000000001Z",
			},
		},
		{
			name:  "empty namespace",
			input: Metric{Name: "depth", Type: Gauge, Value: MetricValue{Interval: time.Second}},
			expected: JMetric{
				Name:      "depth",
				Type:      "gauge",
				Value:     JMetricValue{Interval: "1s"},
				Timestamp: "0001-01-01T00:00:00Z",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.input.Convert()
			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	collection := []Metric{
		{Name: "relay", Namespace: []string{"Dataplane"}, Type: Counter, Value: MetricValue{Raw: 3}},
		{Name: "drop", Namespace: []string{"Dataplane"}, Type: Counter, Value: MetricValue{Raw: 1}},
	}

	var buf bytes.Buffer
	err := WriteJSON(&buf, collection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded JMetric
	err = json.Unmarshal([]byte(lines[0]), &decoded)
	if err != nil {
		t.Fatalf("line is not valid json: %v", err)
	}
	if decoded.Name != "relay" || decoded.Value.Raw != 3 {
		t.Errorf("unexpected decoded metric %+v", decoded)
	}
}
