// Package retryafter parses the HTTP Retry-After header, which the FHIR bulk
// export status endpoint uses to pace polling. The header is specified as
// either delta-seconds or an HTTP-date; this package normalizes both forms
// into a duration measured from now.
package retryafter

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Parse converts a Retry-After header value into a non-negative duration
// from now. It accepts non-negative delta-seconds or an HTTP-date. A past
// HTTP-date yields zero. Returns ok=false if the value is neither.
func Parse(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0, true
		}
		return d, true
	}

	return 0, false
}

// OrDefault returns Parse's duration when the header is present and valid,
// otherwise def.
func OrDefault(value string, def time.Duration) time.Duration {
	if d, ok := Parse(value); ok {
		return d
	}
	return def
}
