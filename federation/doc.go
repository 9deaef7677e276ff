// Package federation implements the client-side federation query engine: a
// driver that fans a request out to every peer in an N-member federation and
// a pluggable set of query strategies that reduce the returning responses
// into a single result, tolerating up to f = ⌊(N-1)/3⌋ faulty or unavailable
// peers.
//
// A [QueryStrategy] is a stateful reducer fed one [PeerResult] at a time by
// the [Driver]; it never does its own networking or retries, it only decides
// when enough correct responses have arrived. See [ErrorStrategy] for the
// shared error-budget bookkeeping every strategy in this package builds on.
package federation
