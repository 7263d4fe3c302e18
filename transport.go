package webproxy

import (
	"net"
	"strconv"
)

// Dialer opens a byte stream to an origin server.
type Dialer interface {
	Connect(host string, port int) (net.Conn, error)
}

// NetDialer dials origins over plain TCP. Connection attempts have no
// deadline; a stalled origin holds only the session that dialed it.
type NetDialer struct{}

func (NetDialer) Connect(host string, port int) (net.Conn, error) {
	return net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// Dispatcher schedules accepted connections onto sessions.
// It exists so the unbounded model can be swapped for a pooled one
// without touching the pipeline.
type Dispatcher interface {
	Dispatch(session func())
}

// GoDispatcher runs every session on its own goroutine, unbounded.
// Sessions detach completely; nothing joins them.
type GoDispatcher struct{}

func (GoDispatcher) Dispatch(session func()) {
	go session()
}
