package federation

import (
	"testing"
	"time"
)

func summary(core SupportedCoreApiVersions) SupportedApiVersionsSummary {
	return SupportedApiVersionsSummary{Core: core, Modules: map[ModuleInstanceID]SupportedModuleApiVersions{}}
}

// TestVersionDiscoveryMajorityMinMinor is scenario 6 from spec.md §8: client
// supports {(2,3),(3,1)}; peers report {(2,2)}, {(2,1)}, {(3,1)}, {(3,1)} —
// result should be (3,1): most peers agree on major 3, minor is the minimum.
func TestVersionDiscoveryMajorityMinMinor(t *testing.T) {
	cv := ConsensusVersion{0, 0}
	client := summary(SupportedCoreApiVersions{
		CoreConsensus: cv,
		Api:           []ApiVersion{{2, 3}, {3, 1}},
	})

	peerVersions := []SupportedCoreApiVersions{
		{CoreConsensus: cv, Api: []ApiVersion{{2, 2}}},
		{CoreConsensus: cv, Api: []ApiVersion{{2, 1}}},
		{CoreConsensus: cv, Api: []ApiVersion{{3, 1}}},
		{CoreConsensus: cv, Api: []ApiVersion{{3, 1}}},
	}

	peers := make(map[PeerId]SupportedApiVersionsSummary, len(peerVersions))
	for i, v := range peerVersions {
		peers[PeerId(i)] = summary(v)
	}

	set, err := discoverCommonApiVersionsSet(client, peers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Core != (ApiVersion{3, 1}) {
		t.Fatalf("expected (3,1), got %v", set.Core)
	}
}

func TestVersionDiscoveryNoCommonVersionFails(t *testing.T) {
	cv := ConsensusVersion{0, 0}
	client := summary(SupportedCoreApiVersions{CoreConsensus: cv, Api: []ApiVersion{{5, 0}}})
	peers := map[PeerId]SupportedApiVersionsSummary{
		0: summary(SupportedCoreApiVersions{CoreConsensus: cv, Api: []ApiVersion{{1, 0}}}),
	}
	_, err := discoverCommonApiVersionsSet(client, peers)
	if err == nil {
		t.Fatal("expected error for no common core API version")
	}
}

func TestVersionDiscoveryModuleAbsentIsNotAnError(t *testing.T) {
	cv := ConsensusVersion{0, 0}
	client := SupportedApiVersionsSummary{
		Core: SupportedCoreApiVersions{CoreConsensus: cv, Api: []ApiVersion{{1, 0}}},
		Modules: map[ModuleInstanceID]SupportedModuleApiVersions{
			7: {CoreConsensus: cv, ModuleConsensus: cv, Api: []ApiVersion{{9, 0}}},
		},
	}
	peers := map[PeerId]SupportedApiVersionsSummary{
		0: {Core: SupportedCoreApiVersions{CoreConsensus: cv, Api: []ApiVersion{{1, 0}}}, Modules: map[ModuleInstanceID]SupportedModuleApiVersions{}},
	}

	set, err := discoverCommonApiVersionsSet(client, peers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := set.Modules[7]; present {
		t.Fatalf("expected module 7 absent from result, got %v", set.Modules)
	}
}

func TestVersionDiscoveryMonotonicity(t *testing.T) {
	// If all peers include at least client's (M, m), the result's major is M
	// and minor >= m.
	cv := ConsensusVersion{0, 0}
	client := summary(SupportedCoreApiVersions{CoreConsensus: cv, Api: []ApiVersion{{2, 3}}})
	peers := map[PeerId]SupportedApiVersionsSummary{
		0: summary(SupportedCoreApiVersions{CoreConsensus: cv, Api: []ApiVersion{{2, 3}}}),
		1: summary(SupportedCoreApiVersions{CoreConsensus: cv, Api: []ApiVersion{{2, 5}}}),
	}
	set, err := discoverCommonApiVersionsSet(client, peers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Core.Major != 2 || set.Core.Minor < 3 {
		t.Fatalf("expected major 2, minor >= 3, got %v", set.Core)
	}
}

func TestDiscoverApiVersionSetRequestTimeoutTracksDeadline(t *testing.T) {
	deadline := time.Now().Add(5 * time.Second)
	s := NewDiscoverApiVersionSet(3, deadline, summary(SupportedCoreApiVersions{}))
	timeout, ok := s.RequestTimeout()
	if !ok || timeout <= 0 || timeout > 5*time.Second {
		t.Fatalf("unexpected request timeout: %v, %v", timeout, ok)
	}
}
