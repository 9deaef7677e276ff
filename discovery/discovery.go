// Package discovery lets a freshly started mint peer announce its own
// address on the local network and learn the addresses of federation
// members already online, during the bootstrap phase of a key ceremony.
// It sits outside the consensus-critical core: once a federation's peer
// set is known, all further coordination goes through network.Peer and
// txengine.
package discovery

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Announcer broadcasts this peer's own address on a port range and
// collects the addresses other federation members announce in turn.
type Announcer struct {
	Found     chan PeerAddress
	port      uint16
	startPort uint16
	endPort   uint16
	server    *http.Server
	attempts  uint
}

// PeerAddress is one federation member's self-announced network address,
// as discovered by scanning the local port range.
type PeerAddress struct {
	Address string
}

type option func(Announcer) Announcer

// WithPortRange scans ports in [startPort, endPort] for other announcers.
func WithPortRange(startPort, endPort uint16) option {
	return func(a Announcer) Announcer {
		a.startPort = startPort
		a.endPort = endPort
		return a
	}
}

// WithPort restricts the scan to a single port.
func WithPort(port uint16) option {
	return WithPortRange(port, port)
}

// WithAttempts sets how many scan passes to run before giving up on
// discovering new peers.
func WithAttempts(attempts uint) option {
	return func(a Announcer) Announcer {
		a.attempts = attempts
		return a
	}
}

// New starts announcing selfAddr on the first free port in the configured
// range and begins scanning for other federation members.
func New(selfAddr string, opts ...option) (*Announcer, error) {
	a := Announcer{
		Found:     make(chan PeerAddress),
		startPort: 9000,
		endPort:   9000,
		attempts:  1,
	}
	for _, opt := range opts {
		a = opt(a)
	}

	var l net.Listener
	var err error
	for port := a.startPort; port <= a.endPort; port++ {
		l, err = net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			a.port = port
			break
		}
	}
	if err != nil {
		return nil, err
	}
	a.server = &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", a.port),
		Handler: handler{selfAddr: selfAddr},
	}
	go func() {
		if err := a.server.Serve(l); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
	go func() {
		for range a.attempts {
			a.scan()
			time.Sleep(time.Second)
		}
	}()
	return &a, nil
}

// Close shuts down this announcer's listener.
func (a *Announcer) Close() error {
	return a.server.Shutdown(context.Background())
}

func (a *Announcer) scan() {
	for port := a.startPort; port <= a.endPort; port++ {
		if port == a.port {
			continue
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d", port))
		if err != nil {
			continue
		}
		buf, err := io.ReadAll(resp.Body)
		if err != nil {
			panic(err)
		}
		a.Found <- PeerAddress{Address: string(buf)}
	}
}

type handler struct {
	selfAddr string
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte(h.selfAddr)); err != nil {
		panic(err)
	}
}
