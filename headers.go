package webproxy

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Outbound header values the proxy always sends, discarding whatever
// the client supplied for these names. Fixed to coax sensible responses
// from origins that vary on them.
const (
	userAgentHeader       = "User-Agent: Mozilla/5.0 (X11; Linux x86_64; rv:10.0.3) Gecko/20120305 Firefox/10.0.3\r\n"
	acceptHeader          = "Accept: text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8\r\n"
	acceptEncodingHeader  = "Accept-Encoding: gzip, deflate\r\n"
	connectionHeader      = "Connection: close\r\n"
	proxyConnectionHeader = "Proxy-Connection: close\r\n"
)

// overriddenHeaders are the names whose client-supplied lines are
// dropped in favor of the fixed values above.
var overriddenHeaders = []string{
	"User-Agent",
	"Accept",
	"Accept-Encoding",
	"Connection",
	"Proxy-Connection",
}

// readHeaderLines reads raw header lines up to and including the blank
// terminator. The lines keep their original line endings. End of
// stream before the terminator is an error.
func readHeaderLines(br *bufio.Reader) ([]string, error) {
	var lines []string
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
		if line == "\r\n" || line == "\n" {
			return lines, nil
		}
	}
}

// hostHeaderValue returns the value of the client's Host header line,
// if one is present.
func hostHeaderValue(lines []string) (string, bool) {
	for _, line := range lines {
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(name, "Host") {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

// writeHeaders writes the rewritten header block upstream. Ordinary
// headers go out verbatim in original order. A client Host header is
// forwarded verbatim; if none was seen, one is synthesized from the
// parsed host at the terminator, just before the fixed override lines
// and the terminator itself.
func writeHeaders(upstream io.Writer, lines []string, host string) error {
	hostSeen := false
	for _, line := range lines {
		if line == "\r\n" || line == "\n" {
			if !hostSeen {
				if _, err := fmt.Fprintf(upstream, "Host: %s\r\n", host); err != nil {
					return err
				}
			}
			for _, hdr := range []string{
				userAgentHeader,
				acceptHeader,
				acceptEncodingHeader,
				connectionHeader,
				proxyConnectionHeader,
			} {
				if _, err := io.WriteString(upstream, hdr); err != nil {
					return err
				}
			}
			_, err := io.WriteString(upstream, line)
			return err
		}

		name, _, _ := strings.Cut(line, ":")
		if strings.EqualFold(name, "Host") {
			hostSeen = true
		} else if isOverridden(name) {
			continue
		}
		if _, err := io.WriteString(upstream, line); err != nil {
			return err
		}
	}
	return nil
}

func isOverridden(name string) bool {
	for _, overridden := range overriddenHeaders {
		if strings.EqualFold(name, overridden) {
			return true
		}
	}
	return false
}
