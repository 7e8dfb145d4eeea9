// HTTP server exposing metric discovery and querying to other programs on the local system
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fastrelay/internal/global"
	"fastrelay/internal/logctx"
	"fastrelay/internal/metrics"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
)

const helpTemplate string = `fastrelay metric query server

GET http://%[1]s%[2]s<namespace>?name=<metric>&starttime=<time>&endtime=<time>
    Raw samples. Namespace is a slash separated prefix (e.g. Dataplane/Listener/0).
    starttime: RFC3339 timestamp or negative duration (default -1m)
    endtime:   RFC3339 timestamp or "now" (default)

GET http://%[1]s%[3]s<namespace>?name=<metric>&type=<counter|gauge>
    Metric definitions without values. Name matches by substring.

GET http://%[1]s%[4]s<namespace>?name=<metric>&aggregation=<%[5]s>&starttime=&endtime=
    Single value reduction over every matching sample.
`

// Sets up HTTP listener configuration for metric querying
func SetupListener(ctx context.Context, port int, search DataSearcher, discover Discoverer, aggregation AggSearcher) (server *http.Server, err error) {
	if port <= 0 || port > 65535 {
		err = fmt.Errorf("invalid listen port %d", port)
		return
	}

	listenAddr := global.HTTPListenAddr + ":" + strconv.Itoa(port)
	aggregations := strings.Join([]string{metrics.AggSum, metrics.AggMean, metrics.AggTrimmedMean, metrics.AggMin, metrics.AggMax}, "|")
	helpPage := fmt.Sprintf(helpTemplate, listenAddr, global.DataPath, global.DiscoveryPath, global.AggregationPath, aggregations)

	requestMultiplexer := http.NewServeMux()

	// Root help page
	requestMultiplexer.HandleFunc("/", func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if clientRequest.URL.Path != "/" {
			serverResponder.WriteHeader(http.StatusNotFound)
			return
		}

		serverResponder.Header().Set("Content-Type", "text/plain; charset=utf-8")
		serverResponder.WriteHeader(http.StatusOK)
		serverResponder.Write([]byte(helpPage))
	})

	requestMultiplexer.HandleFunc(global.DiscoveryPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleDiscovery(ctx, discover, serverResponder, clientRequest)
	})

	requestMultiplexer.HandleFunc(global.DataPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleData(ctx, search, serverResponder, clientRequest)
	})

	requestMultiplexer.HandleFunc(global.AggregationPath, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleAggregation(ctx, aggregation, serverResponder, clientRequest)
	})

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      requestMultiplexer,
		ReadTimeout:  global.HTTPReadTimeout,
		WriteTimeout: global.HTTPWriteTimeout,
		IdleTimeout:  global.HTTPIdleTimeout,
		ErrorLog:     log.New(httpLogWriter{ctx: ctx}, "", 0),
	}
	return
}

// Starts the metric HTTP server and waits for requests
func Start(ctx context.Context, server *http.Server) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Metric query server starting on http://%s/\n", server.Addr)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Metric query server failed: %v\n", err)
	}
}

// Encodes JSON and sends as response body
func jResp(ctx context.Context, serverResponder http.ResponseWriter, content any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(content); err != nil {
		serverResponder.WriteHeader(http.StatusInternalServerError)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Failed marshaling metric results: %v\n", err)
		return
	}
	serverResponder.Header().Set("Content-Type", "application/json")
	serverResponder.WriteHeader(http.StatusOK)
	serverResponder.Write(buf.Bytes())
}

// Routes HTTP server errors into the context logger
func (logWriter httpLogWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	if n == 0 {
		return
	}
	logctx.LogEvent(logWriter.ctx, global.VerbosityStandard, global.ErrorLog, "%s\n", strings.TrimSpace(string(p)))
	return
}
