// Package requesttarget splits HTTP request targets into the host, port
// and path needed to reach the origin server.
package requesttarget

import (
	"strconv"
	"strings"
)

// DefaultPort is the port used when the request target does not name one.
const DefaultPort = 80

// Parse splits a request target into host, port and path.
//
// A leading "scheme://" is stripped if present. The host is the maximal
// prefix free of '/' and ':'. A ':' after the host introduces a run of
// decimal digits parsed as the port; otherwise the port is DefaultPort.
// The path is whatever remains, which may be the empty string - callers
// decide whether an empty path means "/".
//
// Parse never fails. A target with no path or port separator at all is
// treated as a bare host.
func Parse(target string) (host string, port int, path string) {
	rest := target
	if i := strings.Index(rest, "://"); i != -1 {
		rest = rest[i+3:]
	}

	i := strings.IndexAny(rest, "/:")
	if i == -1 {
		return rest, DefaultPort, ""
	}
	host = rest[:i]
	port = DefaultPort

	if rest[i] == ':' {
		j := i + 1
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		// an empty digit run parses to port 0
		port, _ = strconv.Atoi(rest[i+1 : j])
		i = j
	}

	return host, port, rest[i:]
}
