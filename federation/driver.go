package federation

import (
	"context"
	"sync"
	"time"
)

// Requester issues one request to one peer and returns its raw response.
// Implementations live outside this package (for example a wrapper over the
// network package's HTTP peer transport); the driver only needs this much
// of the contract. Context cancellation must
// abort an in-flight call promptly.
type Requester[IR any] func(ctx context.Context, peer PeerId) (IR, error)

// Driver fans a request out to every peer in a federation as concurrent
// tasks, feeds each returning response to a [QueryStrategy] serially (so
// strategies need no internal synchronization), and acts on the resulting
// [QueryStep]: it keeps waiting on StepContinue, re-dispatches on
// StepRetry, and returns on StepSuccess/StepFailure. Outstanding peer
// requests are cancelled as soon as the strategy reaches a terminal state.
type Driver[IR, OR any] struct {
	peers     []PeerId
	requester Requester[IR]
}

// NewDriver builds a driver over the given peer set.
func NewDriver[IR, OR any](peers []PeerId, requester Requester[IR]) *Driver[IR, OR] {
	return &Driver[IR, OR]{peers: peers, requester: requester}
}

type response[IR any] struct {
	peer   PeerId
	result PeerResult[IR]
}

// Run dispatches the initial fan-out to every configured peer and drives
// strategy until it reaches Success or Failure, returning the result or an
// error describing the failure.
func (d *Driver[IR, OR]) Run(ctx context.Context, strategy QueryStrategy[IR, OR]) (OR, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Requests are bounded by the strategy's timeout, but their results are
	// delivered until Run returns, so a timed-out call reaches the strategy
	// as an error instead of being dropped.
	reqCtx := ctx
	if timeout, ok := strategy.RequestTimeout(); ok {
		var timeoutCancel context.CancelFunc
		reqCtx, timeoutCancel = contextWithOptionalTimeout(ctx, timeout)
		defer timeoutCancel()
	}

	responses := make(chan response[IR])
	pending := d.dispatch(reqCtx, ctx.Done(), responses, toSet(d.peers))

	for pending > 0 {
		r := <-responses
		pending--

		step := strategy.Process(r.peer, r.result)
		switch step.Kind {
		case StepSuccess:
			return step.Result, nil
		case StepFailure:
			var zero OR
			return zero, queryFailure(step)
		case StepRetry:
			pending += d.dispatch(reqCtx, ctx.Done(), responses, step.Retry)
		case StepContinue:
			// keep waiting
		}
	}

	var zero OR
	return zero, &NoResultError{}
}

// dispatch fires one concurrent request per peer in the set and returns how
// many responses the caller should now expect on ch. A result is discarded
// only once done is closed.
func (d *Driver[IR, OR]) dispatch(ctx context.Context, done <-chan struct{}, ch chan<- response[IR], peers map[PeerId]struct{}) int {
	var wg sync.WaitGroup
	for peer := range peers {
		wg.Add(1)
		go func(peer PeerId) {
			defer wg.Done()
			v, err := d.requester(ctx, peer)
			var result PeerResult[IR]
			if err != nil {
				result = Err[IR](toPeerError(err))
			} else {
				result = Ok(v)
			}
			select {
			case ch <- response[IR]{peer: peer, result: result}:
			case <-done:
			}
		}(peer)
	}
	return len(peers)
}

func contextWithOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func toSet(peers []PeerId) map[PeerId]struct{} {
	out := make(map[PeerId]struct{}, len(peers))
	for _, p := range peers {
		out[p] = struct{}{}
	}
	return out
}

// NoResultError is returned if every dispatched peer has answered but the
// strategy never reached a terminal step; this indicates a strategy bug
// (it must reach Success/Failure once all peers have responded, or emit
// Retry to keep the query alive) rather than a normal runtime condition.
type NoResultError struct{}

func (e *NoResultError) Error() string {
	return "federation: query strategy never reached a terminal step"
}

// QueryFailureError surfaces a StepFailure to the driver's caller.
type QueryFailureError struct {
	General error
	Peers   map[PeerId]PeerError
}

func (e *QueryFailureError) Error() string {
	if e.General != nil {
		return e.General.Error()
	}
	return "federation: query failed"
}

func (e *QueryFailureError) Unwrap() error { return e.General }

func queryFailure[R any](step QueryStep[R]) error {
	return &QueryFailureError{General: step.General, Peers: step.Peers}
}
