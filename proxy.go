// Package webproxy implements a forwarding HTTP proxy for GET requests.
//
// The proxy accepts client connections, forwards each GET request to the
// origin server named in the request target, streams the origin response
// back byte for byte, and caches small response bodies so that repeated
// requests for the same target are served without contacting the origin.
package webproxy

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/kkudrolli/Web-Proxy/cache"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	// Port to listen on for client connections.
	Port int
	// Storage for cached response bodies.
	// The in-memory store is used if nil.
	Cache cache.Store
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Dialer used to reach origin servers. Plain TCP if nil.
	Dialer Dialer
	// Dispatcher runs one session per accepted connection.
	// Unbounded goroutine-per-connection if nil.
	Dispatcher Dispatcher
	// Optional address for the debug/stats HTTP listener.
	// No debug listener is started if empty.
	DebugAddr string
	// Largest response body considered for caching.
	// cache.DefaultMaxObjectSize if zero.
	MaxObjectSize int
}

type Proxy struct {
	cache         cache.Store
	log           zerolog.Logger
	dialer        Dialer
	dispatcher    Dispatcher
	port          int
	debugAddr     string
	maxObjectSize int
}

// New creates a proxy instance from the given config,
// filling in defaults where needed.
func New(config Config) *Proxy {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	p := &Proxy{
		cache:         config.Cache,
		log:           logger,
		dialer:        config.Dialer,
		dispatcher:    config.Dispatcher,
		port:          config.Port,
		debugAddr:     config.DebugAddr,
		maxObjectSize: config.MaxObjectSize,
	}
	if p.cache == nil {
		p.cache = cache.NewMemoryStore(cache.DefaultMaxCacheSize, cache.DefaultMaxObjectSize)
	}
	if p.dialer == nil {
		p.dialer = NetDialer{}
	}
	if p.dispatcher == nil {
		p.dispatcher = GoDispatcher{}
	}
	if p.maxObjectSize == 0 {
		p.maxObjectSize = cache.DefaultMaxObjectSize
	}
	return p
}

// Run listens on the configured port and serves client connections
// until the listener fails. The debug listener, if configured, runs
// alongside it.
func (p *Proxy) Run() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", p.port))
	if err != nil {
		return fmt.Errorf("cannot listen on port %d: %w", p.port, err)
	}
	p.log.Info().Int("port", p.port).Msg("Proxy listening")

	var g errgroup.Group
	g.Go(func() error { return p.Serve(ln) })
	if p.debugAddr != "" {
		g.Go(func() error { return p.serveDebug() })
	}
	return g.Wait()
}

// Serve accepts connections from the listener and dispatches one
// session per connection. Each session owns its connection and closes
// it when done; a slow origin or client stalls only its own session.
func (p *Proxy) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		p.dispatcher.Dispatch(func() { p.handle(conn) })
	}
}
