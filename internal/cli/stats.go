package cli

import (
	"context"
	"encoding/json"
	"fastrelay/internal/global"
	"fastrelay/internal/metrics"
	"fastrelay/internal/server"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"resty.dev/v3"
)

type statsQuery struct {
	path        string
	namespace   string
	name        string
	metricType  string
	aggregation string
	start       string
	end         string
}

// Queries a running relay's metric query server
func StatsMode(ctx context.Context, commandname string, args []string) {
	var port int
	var discover bool
	var query statsQuery

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetGlobalArguments(commandFlags)
	commandFlags.IntVar(&port, "p", global.DefaultMetricQueryPort, "Metric query server port")
	commandFlags.IntVar(&port, "port", global.DefaultMetricQueryPort, "Metric query server port")
	commandFlags.StringVar(&query.name, "n", "", "Metric name")
	commandFlags.StringVar(&query.name, "name", "", "Metric name")
	commandFlags.StringVar(&query.aggregation, "a", "", "Reduce samples <sum|mean|trimmed-mean|min|max>")
	commandFlags.StringVar(&query.aggregation, "aggregation", "", "Reduce samples <sum|mean|trimmed-mean|min|max>")
	commandFlags.StringVar(&query.start, "since", "-1m", "Start of the window (RFC3339 or negative duration)")
	commandFlags.StringVar(&query.end, "until", "now", "End of the window (RFC3339 or now)")
	commandFlags.StringVar(&query.metricType, "type", "", "Discovery filter <counter|gauge>")
	commandFlags.BoolVar(&discover, "discover", false, "List available metrics instead of values")

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
	}
	commandFlags.Parse(args)

	query.namespace = commandFlags.Arg(0)
	switch {
	case discover:
		query.path = global.DiscoveryPath
	case query.aggregation != "":
		query.path = global.AggregationPath
	default:
		query.path = global.DataPath
	}

	baseURL := "http://" + global.HTTPListenAddr + ":" + strconv.Itoa(port)
	err := runStatsQuery(os.Stdout, baseURL, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Sends the query and prints one line per returned metric
func runStatsQuery(out io.Writer, baseURL string, query statsQuery) (err error) {
	body, err := fetchMetrics(baseURL, query)
	if err != nil {
		return
	}

	var jerr server.Jerror
	if json.Unmarshal(body, &jerr) == nil && jerr.Msg != "" {
		err = fmt.Errorf("query server: %s", jerr.Msg)
		return
	}

	var results []metrics.JMetric
	if query.path == global.AggregationPath {
		var single metrics.JMetric
		err = json.Unmarshal(body, &single)
		results = append(results, single)
	} else {
		err = json.Unmarshal(body, &results)
	}
	if err != nil {
		err = fmt.Errorf("invalid response from query server: %w", err)
		return
	}

	for _, result := range results {
		if query.path == global.DiscoveryPath {
			fmt.Fprintf(out, "%s/%s (%s, %s): %s\n", result.Namespace, result.Name, result.Type, result.Value.Unit, result.Description)
			continue
		}
		fmt.Fprintf(out, "%s %s/%s %d %s\n", result.Timestamp, result.Namespace, result.Name, result.Value.Raw, result.Value.Unit)
	}
	return
}

func fetchMetrics(baseURL string, query statsQuery) (body []byte, err error) {
	client := resty.New()
	defer client.Close()

	params := map[string]string{"name": query.name}
	switch query.path {
	case global.DiscoveryPath:
		params["type"] = query.metricType
	case global.AggregationPath:
		params["aggregation"] = query.aggregation
		fallthrough
	default:
		params["starttime"] = query.start
		params["endtime"] = query.end
	}

	url := strings.TrimSuffix(baseURL, "/") + query.path + strings.Trim(query.namespace, "/")
	res, err := client.R().
		SetQueryParams(params).
		SetExpectResponseContentType("application/json").
		Get(url)
	if err != nil {
		err = fmt.Errorf("failed to reach metric query server: %w", err)
		return
	}
	if res.StatusCode() != 200 {
		err = fmt.Errorf("metric query server returned %s", res.Status())
		return
	}
	body = []byte(res.String())
	return
}
