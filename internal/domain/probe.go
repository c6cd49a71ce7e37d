package domain

import "time"

const (
	// ProbeTypeHTTP checks health with an HTTP GET against the probe URL.
	ProbeTypeHTTP ProbeType = "http"

	// ProbeTypeStdio checks health by invoking the server command with a health flag
	// and judging the exit code.
	ProbeTypeStdio ProbeType = "stdio"
)

// ProbeType selects the health check mechanism for a server.
type ProbeType string

// Valid reports whether the probe type is one of the supported mechanisms.
func (p ProbeType) Valid() bool {
	return p == ProbeTypeHTTP || p == ProbeTypeStdio
}

// ProbeResult is the outcome of a single probe invocation.
// Elapsed always reflects wall time, regardless of outcome.
// Err is a short cause ("timeout", "exit code N", "status 503", or a spawn error)
// and is empty when OK is true.
type ProbeResult struct {
	OK      bool
	Elapsed time.Duration
	Err     string
}

// Status maps a probe outcome onto a server health status.
func (r ProbeResult) Status() HealthStatus {
	switch {
	case r.OK:
		return HealthStatusOK
	case r.Err == "timeout":
		return HealthStatusTimeout
	default:
		return HealthStatusUnreachable
	}
}
