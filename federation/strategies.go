package federation

import "time"

// FilterMap returns the first response for which filterMap yields a value
// without error. A filter error is folded into the error budget like any
// other peer error. No retries: a peer's response is assumed final.
//
// Use this when responses are self-verifying, e.g. they carry a signature
// that proves correctness on their own, so a single good answer suffices.
type FilterMap[R, T any] struct {
	filterMap func(R) (T, error)
	errors    *ErrorStrategy
}

// NewFilterMap builds a FilterMap strategy over totalPeers peers.
func NewFilterMap[R, T any](filterMap func(R) (T, error), totalPeers int) *FilterMap[R, T] {
	f, _ := NumPeers(totalPeers)
	return &FilterMap[R, T]{filterMap: filterMap, errors: NewErrorStrategy(f + 1)}
}

func (s *FilterMap[R, T]) RequestTimeout() (time.Duration, bool) { return 0, false }

func (s *FilterMap[R, T]) Process(peer PeerId, result PeerResult[R]) QueryStep[T] {
	if !result.IsOk() {
		return ErrorStep[T](s.errors, peer, toPeerError(result.Err))
	}
	v, err := s.filterMap(result.Value)
	if err != nil {
		return ErrorStep[T](s.errors, peer, InvalidResponseErr(err.Error()))
	}
	return Success(v)
}

// FilterMapThreshold collects filtered values keyed by peer and succeeds
// once `threshold = n - f` distinct peers have contributed an accepted
// value. Use this when every honest peer contributes a legitimately
// distinct piece of data (signature shares, per-peer state) rather than a
// single shared fact.
type FilterMapThreshold[R, T any] struct {
	filterMap func(PeerId, R) (T, error)
	errors    *ErrorStrategy
	collected map[PeerId]T
	threshold int
}

// NewFilterMapThreshold builds a FilterMapThreshold strategy over totalPeers peers.
func NewFilterMapThreshold[R, T any](filterMap func(PeerId, R) (T, error), totalPeers int) *FilterMapThreshold[R, T] {
	f, threshold := NumPeers(totalPeers)
	return &FilterMapThreshold[R, T]{
		filterMap: filterMap,
		errors:    NewErrorStrategy(f + 1),
		collected: make(map[PeerId]T),
		threshold: threshold,
	}
}

func (s *FilterMapThreshold[R, T]) RequestTimeout() (time.Duration, bool) { return 0, false }

func (s *FilterMapThreshold[R, T]) Process(peer PeerId, result PeerResult[R]) QueryStep[map[PeerId]T] {
	if !result.IsOk() {
		return ErrorStep[map[PeerId]T](s.errors, peer, toPeerError(result.Err))
	}
	v, err := s.filterMap(peer, result.Value)
	if err != nil {
		return ErrorStep[map[PeerId]T](s.errors, peer, InvalidResponseErr(err.Error()))
	}
	s.collected[peer] = v
	if len(s.collected) == s.threshold {
		out := s.collected
		s.collected = make(map[PeerId]T)
		return Success(out)
	}
	return Continue[map[PeerId]T]()
}

// ThresholdConsensus succeeds once `threshold` peers return bit-identical
// responses. If exactly `threshold` peers have answered without consensus
// emerging, it emits Retry for the peers that answered and clears its
// retry set. Tie-breaking among equally common values is deterministic per
// call sequence but otherwise arbitrary; callers must not depend on which
// equivalent value is returned.
type ThresholdConsensus[R comparable] struct {
	errors    *ErrorStrategy
	responses map[PeerId]R
	retry     map[PeerId]struct{}
	threshold int
}

// NewThresholdConsensus builds a ThresholdConsensus strategy over totalPeers peers.
func NewThresholdConsensus[R comparable](totalPeers int) *ThresholdConsensus[R] {
	f, threshold := NumPeers(totalPeers)
	return &ThresholdConsensus[R]{
		errors:    NewErrorStrategy(f + 1),
		responses: make(map[PeerId]R),
		retry:     make(map[PeerId]struct{}),
		threshold: threshold,
	}
}

// mostCommonResponse scans the collected responses for the value with the
// highest occurrence count, as the original does (quadratic in the number
// of responses, fine at federation scale).
func (s *ThresholdConsensus[R]) mostCommonResponse() (R, int, bool) {
	var best R
	bestCount := 0
	found := false
	for _, candidate := range s.responses {
		count := 0
		for _, r := range s.responses {
			if r == candidate {
				count++
			}
		}
		if !found || count > bestCount {
			best = candidate
			bestCount = count
			found = true
		}
	}
	return best, bestCount, found
}

func (s *ThresholdConsensus[R]) RequestTimeout() (time.Duration, bool) { return 0, false }

func (s *ThresholdConsensus[R]) Process(peer PeerId, result PeerResult[R]) QueryStep[R] {
	if !result.IsOk() {
		return ErrorStep[R](s.errors, peer, toPeerError(result.Err))
	}

	s.responses[peer] = result.Value
	if _, dup := s.retry[peer]; dup {
		panic("federation: duplicate response insertion for peer in ThresholdConsensus")
	}
	s.retry[peer] = struct{}{}

	if best, count, ok := s.mostCommonResponse(); ok && count >= s.threshold {
		return Success(best)
	}

	if len(s.retry) == s.threshold {
		out := s.retry
		s.retry = make(map[PeerId]struct{})
		return Retry[R](out)
	}
	return Continue[R]()
}

// UnionResponses collects a threshold of vector-valued responses into a
// single insertion-ordered, deduplicated union. Peer errors count against
// the error budget, not progress, so a threshold of *successful*
// contributions is required regardless of how many peers erred first.
type UnionResponses[R comparable] struct {
	errors    *ErrorStrategy
	responded map[PeerId]struct{}
	seen      map[R]struct{}
	union     []R
	threshold int
}

// NewUnionResponses builds a UnionResponses strategy over totalPeers peers.
func NewUnionResponses[R comparable](totalPeers int) *UnionResponses[R] {
	f, threshold := NumPeers(totalPeers)
	return &UnionResponses[R]{
		errors:    NewErrorStrategy(f + 1),
		responded: make(map[PeerId]struct{}),
		seen:      make(map[R]struct{}),
		threshold: threshold,
	}
}

func (s *UnionResponses[R]) RequestTimeout() (time.Duration, bool) { return 0, false }

func (s *UnionResponses[R]) Process(peer PeerId, result PeerResult[[]R]) QueryStep[[]R] {
	if !result.IsOk() {
		return ErrorStep[[]R](s.errors, peer, toPeerError(result.Err))
	}
	for _, v := range result.Value {
		if _, dup := s.seen[v]; !dup {
			s.seen[v] = struct{}{}
			s.union = append(s.union, v)
		}
	}
	if _, dup := s.responded[peer]; dup {
		panic("federation: duplicate response insertion for peer in UnionResponses")
	}
	s.responded[peer] = struct{}{}

	if len(s.responded) == s.threshold {
		out := s.union
		s.union = nil
		return Success(out)
	}
	return Continue[[]R]()
}

// UnionResponsesSingle is UnionResponses for single-valued (rather than
// vector-valued) peer responses.
type UnionResponsesSingle[R comparable] struct {
	errors    *ErrorStrategy
	responded map[PeerId]struct{}
	seen      map[R]struct{}
	union     []R
	threshold int
}

// NewUnionResponsesSingle builds a UnionResponsesSingle strategy over totalPeers peers.
func NewUnionResponsesSingle[R comparable](totalPeers int) *UnionResponsesSingle[R] {
	f, threshold := NumPeers(totalPeers)
	return &UnionResponsesSingle[R]{
		errors:    NewErrorStrategy(f + 1),
		responded: make(map[PeerId]struct{}),
		seen:      make(map[R]struct{}),
		threshold: threshold,
	}
}

func (s *UnionResponsesSingle[R]) RequestTimeout() (time.Duration, bool) { return 0, false }

func (s *UnionResponsesSingle[R]) Process(peer PeerId, result PeerResult[R]) QueryStep[[]R] {
	if !result.IsOk() {
		return ErrorStep[[]R](s.errors, peer, toPeerError(result.Err))
	}
	if _, dup := s.seen[result.Value]; !dup {
		s.seen[result.Value] = struct{}{}
		s.union = append(s.union, result.Value)
	}
	if _, dup := s.responded[peer]; dup {
		panic("federation: duplicate response insertion for peer in UnionResponsesSingle")
	}
	s.responded[peer] = struct{}{}

	if len(s.responded) == s.threshold {
		out := s.union
		s.union = nil
		return Success(out)
	}
	return Continue[[]R]()
}

// AllOrDeadline succeeds once either every peer has responded or the
// deadline has passed. It is the best-effort broadcast strategy behind
// version discovery: a slow or byzantine peer cannot block the query past
// the deadline, but a full house is still preferred while there is time
// left.
type AllOrDeadline[R any] struct {
	deadline time.Time
	numPeers int
	now      func() time.Time
	received map[PeerId]R
}

// NewAllOrDeadline builds an AllOrDeadline strategy for numPeers peers with
// an absolute deadline.
func NewAllOrDeadline[R any](numPeers int, deadline time.Time) *AllOrDeadline[R] {
	return &AllOrDeadline[R]{deadline: deadline, numPeers: numPeers, now: time.Now, received: make(map[PeerId]R)}
}

func (s *AllOrDeadline[R]) RequestTimeout() (time.Duration, bool) {
	remaining := s.deadline.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

func (s *AllOrDeadline[R]) Process(peer PeerId, result PeerResult[R]) QueryStep[map[PeerId]R] {
	if result.IsOk() {
		if _, dup := s.received[peer]; dup {
			panic("federation: duplicate response insertion for peer in AllOrDeadline")
		}
		s.received[peer] = result.Value

		if len(s.received) == s.numPeers || !s.deadline.After(s.now()) {
			return s.drain()
		}
		return Continue[map[PeerId]R]()
	}

	// We rely on retries/timeouts for deadline detection on the error path.
	if !s.deadline.After(s.now()) {
		return s.drain()
	}
	return Retry[map[PeerId]R](map[PeerId]struct{}{peer: {}})
}

func (s *AllOrDeadline[R]) drain() QueryStep[map[PeerId]R] {
	out := s.received
	s.received = make(map[PeerId]R)
	return Success(out)
}

func toPeerError(err error) PeerError {
	if pe, ok := err.(PeerError); ok {
		return pe
	}
	return TransportErr(err.Error())
}
