package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Splits the request path remainder into a namespace prefix, empty for all
func namespaceFrom(clientRequest *http.Request, pathPrefix string) (namespace []string) {
	raw := strings.Trim(strings.TrimPrefix(clientRequest.URL.Path, pathPrefix), "/")
	if raw == "" {
		return
	}
	namespace = strings.Split(raw, "/")
	return
}

// Query window from starttime/endtime form values.
// Start accepts RFC3339 or a negative duration relative to now (default -1m).
// End accepts RFC3339 or "now" (default).
func parseWindow(clientRequest *http.Request, now time.Time) (start, end time.Time, err error) {
	rawStart := clientRequest.FormValue("starttime")
	switch {
	case rawStart == "":
		start = now.Add(-1 * time.Minute)
	case rawStart[0] == '-' || rawStart[0] == '+':
		var offset time.Duration
		offset, err = time.ParseDuration(rawStart)
		if err != nil {
			err = fmt.Errorf("invalid relative start time %q: %w", rawStart, err)
			return
		}
		if offset > 0 {
			err = fmt.Errorf("relative start time %q is in the future", rawStart)
			return
		}
		start = now.Add(offset)
	default:
		start, err = time.Parse(time.RFC3339Nano, rawStart)
		if err != nil {
			err = fmt.Errorf("invalid start time %q: %w", rawStart, err)
			return
		}
	}

	rawEnd := clientRequest.FormValue("endtime")
	if rawEnd == "" || rawEnd == "now" {
		end = now
	} else {
		end, err = time.Parse(time.RFC3339Nano, rawEnd)
		if err != nil {
			err = fmt.Errorf("invalid end time %q: %w", rawEnd, err)
			return
		}
	}

	if end.Before(start) {
		err = fmt.Errorf("end time is before start time")
	}
	return
}
