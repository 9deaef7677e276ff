package federation

import (
	"errors"
	"testing"
)

// These scenarios mirror the N=4, f=1, threshold=3 examples from the
// federation query engine design.

func TestFilterMapSuccessOnFirst(t *testing.T) {
	s := NewFilterMap(func(r string) (string, error) {
		if r == "bad" {
			return "", errors.New("bad")
		}
		return "X", nil
	}, 4)

	step := s.Process(0, Ok("good"))
	if step.Kind != StepSuccess || step.Result != "X" {
		t.Fatalf("expected Success(X), got %+v", step)
	}
}

func TestFilterMapFailureAtFPlus1Errors(t *testing.T) {
	s := NewFilterMap(func(r string) (string, error) { return r, nil }, 4)

	step := s.Process(0, Err[string](TransportErr("down")))
	if step.Kind != StepContinue {
		t.Fatalf("expected Continue after 1 error, got %+v", step)
	}

	step = s.Process(1, Err[string](TransportErr("down")))
	if step.Kind != StepFailure {
		t.Fatalf("expected Failure after f+1=2 errors, got %+v", step)
	}
	if len(step.Peers) != 2 {
		t.Fatalf("expected both peers in failure, got %v", step.Peers)
	}
}

func TestFilterMapThresholdSuccess(t *testing.T) {
	s := NewFilterMapThreshold(func(id PeerId, r int) (int, error) { return r * 2, nil }, 4)

	var last QueryStep[map[PeerId]int]
	for i := PeerId(0); i < 3; i++ {
		last = s.Process(i, Ok(int(i)))
	}
	if last.Kind != StepSuccess {
		t.Fatalf("expected success after threshold responses, got %+v", last)
	}
	if len(last.Result) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(last.Result))
	}
	if last.Result[1] != 2 {
		t.Fatalf("expected peer 1's doubled value, got %v", last.Result)
	}
}

func TestThresholdConsensusSuccess(t *testing.T) {
	s := NewThresholdConsensus[string](4)

	if step := s.Process(0, Ok("V")); step.Kind != StepContinue {
		t.Fatalf("expected Continue, got %+v", step)
	}
	if step := s.Process(1, Ok("V")); step.Kind != StepContinue {
		t.Fatalf("expected Continue, got %+v", step)
	}
	step := s.Process(2, Ok("V"))
	if step.Kind != StepSuccess || step.Result != "V" {
		t.Fatalf("expected Success(V) on 3rd identical response, got %+v", step)
	}
}

func TestThresholdConsensusRetryOnSplitVotes(t *testing.T) {
	s := NewThresholdConsensus[string](4)

	s.Process(0, Ok("A"))
	s.Process(1, Ok("B"))
	step := s.Process(2, Ok("C"))
	if step.Kind != StepRetry {
		t.Fatalf("expected Retry on three distinct values, got %+v", step)
	}
	if len(step.Retry) != 3 {
		t.Fatalf("expected all three responders in retry set, got %v", step.Retry)
	}
}

func TestUnionResponsesDedupesAndIsIdempotent(t *testing.T) {
	s := NewUnionResponses[int](4)

	s.Process(0, Ok([]int{1, 2}))
	s.Process(1, Ok([]int{2, 3}))
	step := s.Process(2, Ok([]int{3, 4}))
	if step.Kind != StepSuccess {
		t.Fatalf("expected Success at threshold, got %+v", step)
	}
	want := []int{1, 2, 3, 4}
	if len(step.Result) != len(want) {
		t.Fatalf("expected %v, got %v", want, step.Result)
	}
	for i, v := range want {
		if step.Result[i] != v {
			t.Fatalf("expected %v, got %v", want, step.Result)
		}
	}
}

func TestUnionResponsesSingle(t *testing.T) {
	s := NewUnionResponsesSingle[string](4)

	s.Process(0, Ok("a"))
	s.Process(1, Ok("a"))
	step := s.Process(2, Ok("b"))
	if step.Kind != StepSuccess {
		t.Fatalf("expected success, got %+v", step)
	}
	if len(step.Result) != 2 {
		t.Fatalf("expected deduped union of 2, got %v", step.Result)
	}
}

func TestErrorStrategyDuplicateInsertPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate peer error insertion")
		}
	}()
	es := NewErrorStrategy(2)
	ErrorStep[int](es, 0, TransportErr("x"))
	ErrorStep[int](es, 0, TransportErr("x"))
}

func TestNumPeersBftBound(t *testing.T) {
	cases := []struct {
		n, f, threshold int
	}{
		{4, 1, 3},
		{7, 2, 5},
		{1, 0, 1},
	}
	for _, c := range cases {
		f, threshold := NumPeers(c.n)
		if f != c.f || threshold != c.threshold {
			t.Fatalf("NumPeers(%d) = (%d, %d), want (%d, %d)", c.n, f, threshold, c.f, c.threshold)
		}
	}
}
