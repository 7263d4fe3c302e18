package webproxy

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/rs/zerolog"

	requesttarget "github.com/kkudrolli/Web-Proxy/pkg/request-target"
)

// responseChunkSize is the unit in which origin responses are read and
// relayed to the client.
const responseChunkSize = 8192

// handle runs one client connection end to end: read the request line,
// serve from cache on a hit, otherwise forward the request to the
// origin and relay the response. Every failure terminates this session
// only; nothing is retried and no error status is sent to the client.
func (p *Proxy) handle(conn net.Conn) {
	defer conn.Close()
	logger := p.log.With().Str("client", conn.RemoteAddr().String()).Logger()

	br := bufio.NewReader(conn)
	line, err := br.ReadString('\n')
	if err != nil {
		logger.Debug().Err(err).Msg("Could not read request line")
		return
	}

	method, target := splitRequestLine(line)
	if !strings.EqualFold(method, "GET") {
		// silent close, no error response
		logger.Debug().Str("method", method).Msg("Method not implemented")
		return
	}

	// the raw request target is the cache key, unnormalized
	if content, ok := p.cache.Lookup(target); ok {
		logger.Trace().Str("key", target).Msg("Cache hit and serving")
		if _, err := conn.Write(content); err != nil {
			logger.Debug().Err(err).Msg("Could not write cached response")
		}
		return
	}

	host, port, path := requesttarget.Parse(target)
	lines, err := readHeaderLines(br)
	if err != nil {
		logger.Debug().Err(err).Msg("Could not read request headers")
		return
	}
	if host == "" {
		// origin-form target: the Host header names the origin
		if value, ok := hostHeaderValue(lines); ok {
			host, port, _ = requesttarget.Parse(value)
		}
	}

	upstream, err := p.dialer.Connect(host, port)
	if err != nil {
		logger.Debug().Err(err).Str("host", host).Int("port", port).Msg("Could not connect to origin")
		return
	}
	defer upstream.Close()

	// downgrade to HTTP/1.0 so the origin closes the connection after
	// one response and never sends chunked encoding
	if _, err := fmt.Fprintf(upstream, "GET %s HTTP/1.0\r\n", path); err != nil {
		logger.Debug().Err(err).Msg("Could not write request line to origin")
		return
	}
	if err := writeHeaders(upstream, lines, host); err != nil {
		logger.Debug().Err(err).Msg("Could not forward request headers")
		return
	}

	p.relayResponse(upstream, conn, target, logger)
}

// splitRequestLine splits a request line into its method and target.
// Missing fields come back as empty strings; later stages degrade
// rather than reject.
func splitRequestLine(line string) (method, target string) {
	fields := strings.Fields(line)
	if len(fields) > 0 {
		method = fields[0]
	}
	if len(fields) > 1 {
		target = fields[1]
	}
	return method, target
}

// relayResponse streams the origin response to the client in fixed-size
// chunks until end of stream, accumulating a cache candidate on the
// side. Accumulation stops for good once the candidate outgrows the
// object size cap; streaming continues regardless. The candidate is
// stored only if the whole response fit and end of stream was reached.
func (p *Proxy) relayResponse(upstream io.Reader, client io.Writer, key string, logger zerolog.Logger) {
	buf := make([]byte, responseChunkSize)
	var candidate []byte
	cacheable := true

	for {
		n, err := upstream.Read(buf)
		if n > 0 {
			if _, werr := client.Write(buf[:n]); werr != nil {
				logger.Debug().Err(werr).Msg("Could not write response to client")
				return
			}
			if cacheable {
				if len(candidate)+n <= p.maxObjectSize {
					candidate = append(candidate, buf[:n]...)
				} else {
					cacheable = false
					candidate = nil
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			// aborted response, do not cache a partial body
			logger.Debug().Err(err).Msg("Could not read origin response")
			return
		}
	}

	if cacheable {
		if err := p.cache.Put(key, candidate); err != nil {
			logger.Error().Err(err).Str("key", key).Msg("Could not write to cache")
			return
		}
		logger.Trace().Str("key", key).Int("size", len(candidate)).Msg("Cache write")
	}
}
