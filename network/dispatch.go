package network

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fedimint-go/mintcore/federation"
)

// Dispatch fires the same request concurrently at every peer (including
// itself, via a direct HTTP round trip through the peer's own address) and
// collects one [federation.PeerResult] per peer. Unlike Broadcast/AllToAll,
// Dispatch does not synchronize with a barrier: each peer's request is
// independent, so a slow or unreachable peer costs at most the peer's
// timeout and does not stop the others' results from being collected
// (spec.md §4.4).
//
// A non-2xx response is tagged federation.ServerErr; a connection failure
// or body read error is tagged federation.TransportErr. The caller decodes
// the raw response bytes itself — Dispatch knows nothing about the wire
// format of any particular route.
func (p *Peer) Dispatch(route string, request []byte) map[federation.PeerId]federation.PeerResult[[]byte] {
	type indexed struct {
		id     federation.PeerId
		result federation.PeerResult[[]byte]
	}

	out := make(chan indexed, len(p.Addresses))
	var wg sync.WaitGroup
	client := http.Client{Timeout: p.timeout}

	for rank, addr := range p.Addresses {
		wg.Add(1)
		go func(rank int, addr string) {
			defer wg.Done()
			result := dispatchOne(&client, addr, route, request)
			out <- indexed{id: federation.PeerId(rank), result: result}
		}(rank, addr)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make(map[federation.PeerId]federation.PeerResult[[]byte], len(p.Addresses))
	for entry := range out {
		results[entry.id] = entry.result
	}
	return results
}

func dispatchOne(client *http.Client, addr, route string, request []byte) federation.PeerResult[[]byte] {
	url := "http://" + addr + "/" + route
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(request))
	if err != nil {
		return federation.Err[[]byte](federation.TransportErr(err.Error()))
	}

	resp, err := client.Do(req)
	if err != nil {
		return federation.Err[[]byte](federation.TransportErr(err.Error()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return federation.Err[[]byte](federation.TransportErr(err.Error()))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return federation.Err[[]byte](federation.ServerErr(fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))))
	}

	return federation.Ok(body)
}

// DispatchTimeout builds a short-lived Peer wrapper with the given timeout
// applied only to this dispatch, leaving the receiver's own timeout
// untouched. Used by callers that want a tighter deadline for a single
// federation round than the peer's default.
func (p *Peer) DispatchTimeout(route string, request []byte, timeout time.Duration) map[federation.PeerId]federation.PeerResult[[]byte] {
	scoped := *p
	scoped.timeout = timeout
	return scoped.Dispatch(route, request)
}
