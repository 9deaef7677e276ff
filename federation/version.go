package federation

import (
	"fmt"
	"time"
)

// ModuleInstanceID identifies one module instance (e.g. "the mint module")
// within a federation.
type ModuleInstanceID uint16

// ConsensusVersion is the major.minor tuple a peer's consensus-critical code
// is running, used to key which API version list applies.
type ConsensusVersion struct {
	Major, Minor uint32
}

// ApiVersion is a peer's (or client's) advertised API major.minor pair. A
// peer supporting major M, minor m is compatible with any client requesting
// the same major and minor <= m.
type ApiVersion struct {
	Major, Minor uint32
}

func (v ApiVersion) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// SupportedCoreApiVersions is a peer's (or client's) advertised set of core
// API versions, keyed by the consensus version they apply under. Api is an
// ordered slice, not a set: the tie-break in version discovery depends on
// iteration order (see discoverCommonCoreApiVersion).
type SupportedCoreApiVersions struct {
	CoreConsensus ConsensusVersion
	Api           []ApiVersion
}

// GetMinorApiVersion returns the minor version this peer supports for the
// given major, if its core consensus version matches coreConsensus.
func (s SupportedCoreApiVersions) GetMinorApiVersion(coreConsensus ConsensusVersion, major uint32) (uint32, bool) {
	if s.CoreConsensus != coreConsensus {
		return 0, false
	}
	for _, v := range s.Api {
		if v.Major == major {
			return v.Minor, true
		}
	}
	return 0, false
}

// SupportedModuleApiVersions is the per-module-instance analogue of
// SupportedCoreApiVersions, additionally keyed by the module's own
// consensus version.
type SupportedModuleApiVersions struct {
	CoreConsensus   ConsensusVersion
	ModuleConsensus ConsensusVersion
	Api             []ApiVersion
}

// GetMinorApiVersion returns the minor version this peer supports for the
// given major, if both the core and module consensus versions match.
func (s SupportedModuleApiVersions) GetMinorApiVersion(coreConsensus, moduleConsensus ConsensusVersion, major uint32) (uint32, bool) {
	if s.CoreConsensus != coreConsensus || s.ModuleConsensus != moduleConsensus {
		return 0, false
	}
	for _, v := range s.Api {
		if v.Major == major {
			return v.Minor, true
		}
	}
	return 0, false
}

// SupportedApiVersionsSummary is what a peer reports to version discovery:
// its core API versions plus the API versions of each module instance it
// runs.
type SupportedApiVersionsSummary struct {
	Core    SupportedCoreApiVersions
	Modules map[ModuleInstanceID]SupportedModuleApiVersions
}

// ApiVersionSet is the reduced result of version discovery: the chosen core
// API version, plus a best-version-per-module-instance map. A module
// instance with no common version across peers is simply absent, not an
// error.
type ApiVersionSet struct {
	Core    ApiVersion
	Modules map[ModuleInstanceID]ApiVersion
}

// DiscoverApiVersionSet composes an AllOrDeadline query over
// SupportedApiVersionsSummary responses, then reduces the per-peer
// summaries into a single ApiVersionSet compatible with clientVersions. It
// is a query strategy like any other in this package, so it ships here
// rather than the mint module, even though version discovery is otherwise
// a cross-cutting concern.
type DiscoverApiVersionSet struct {
	inner          *AllOrDeadline[SupportedApiVersionsSummary]
	clientVersions SupportedApiVersionsSummary
}

// NewDiscoverApiVersionSet builds a version-discovery strategy for numPeers
// peers, failing back to whatever is available once deadline passes.
func NewDiscoverApiVersionSet(numPeers int, deadline time.Time, clientVersions SupportedApiVersionsSummary) *DiscoverApiVersionSet {
	return &DiscoverApiVersionSet{
		inner:          NewAllOrDeadline[SupportedApiVersionsSummary](numPeers, deadline),
		clientVersions: clientVersions,
	}
}

func (s *DiscoverApiVersionSet) RequestTimeout() (time.Duration, bool) {
	return s.inner.RequestTimeout()
}

func (s *DiscoverApiVersionSet) Process(peer PeerId, result PeerResult[SupportedApiVersionsSummary]) QueryStep[ApiVersionSet] {
	step := s.inner.Process(peer, result)
	switch step.Kind {
	case StepSuccess:
		set, err := discoverCommonApiVersionsSet(s.clientVersions, step.Result)
		if err != nil {
			return Failure[ApiVersionSet](err, nil)
		}
		return Success(set)
	case StepRetry:
		return Retry[ApiVersionSet](step.Retry)
	case StepFailure:
		return Failure[ApiVersionSet](step.General, step.Peers)
	default:
		return Continue[ApiVersionSet]()
	}
}

// discoverCommonCoreApiVersion picks, among the client's supported core
// majors (in the order the client lists them — the tie-break for equally
// popular majors is "first major iterated", preserved from the original and
// documented there as deterministic but arbitrary), the major with the
// highest peer support, then takes the minimum compatible minor across
// qualifying peers.
func discoverCommonCoreApiVersion(client SupportedCoreApiVersions, peers map[PeerId]SupportedCoreApiVersions) (ApiVersion, bool) {
	var bestMajor uint32
	var bestMinor uint32
	bestCount := -1
	found := false

	for _, clientVersion := range client.Api {
		count := 0
		for _, peerVersions := range peers {
			if minor, ok := peerVersions.GetMinorApiVersion(client.CoreConsensus, clientVersion.Major); ok {
				if clientVersion.Minor <= minor {
					count++
				}
			}
		}
		if count > bestCount {
			bestCount = count
			bestMajor = clientVersion.Major
			bestMinor = clientVersion.Minor
			found = true
		}
	}
	if !found || bestCount <= 0 {
		return ApiVersion{}, false
	}

	minMinor := bestMinor
	first := true
	for _, peerVersions := range peers {
		minor, ok := peerVersions.GetMinorApiVersion(client.CoreConsensus, bestMajor)
		if !ok || minor < bestMinor {
			continue
		}
		if first || minor < minMinor {
			minMinor = minor
			first = false
		}
	}
	return ApiVersion{Major: bestMajor, Minor: minMinor}, true
}

// discoverCommonModuleApiVersion is the per-module-instance analogue of
// discoverCommonCoreApiVersion.
func discoverCommonModuleApiVersion(client SupportedModuleApiVersions, peers map[PeerId]SupportedModuleApiVersions) (ApiVersion, bool) {
	var bestMajor uint32
	var bestMinor uint32
	bestCount := -1
	found := false

	for _, clientVersion := range client.Api {
		count := 0
		for _, peerVersions := range peers {
			if minor, ok := peerVersions.GetMinorApiVersion(client.CoreConsensus, client.ModuleConsensus, clientVersion.Major); ok {
				if clientVersion.Minor <= minor {
					count++
				}
			}
		}
		if count > bestCount {
			bestCount = count
			bestMajor = clientVersion.Major
			bestMinor = clientVersion.Minor
			found = true
		}
	}
	if !found || bestCount <= 0 {
		return ApiVersion{}, false
	}

	minMinor := bestMinor
	first := true
	for _, peerVersions := range peers {
		minor, ok := peerVersions.GetMinorApiVersion(client.CoreConsensus, client.ModuleConsensus, bestMajor)
		if !ok || minor < bestMinor {
			continue
		}
		if first || minor < minMinor {
			minMinor = minor
			first = false
		}
	}
	return ApiVersion{Major: bestMajor, Minor: minMinor}, true
}

func discoverCommonApiVersionsSet(client SupportedApiVersionsSummary, peers map[PeerId]SupportedApiVersionsSummary) (ApiVersionSet, error) {
	corePeers := make(map[PeerId]SupportedCoreApiVersions, len(peers))
	for id, p := range peers {
		corePeers[id] = p.Core
	}
	core, ok := discoverCommonCoreApiVersion(client.Core, corePeers)
	if !ok {
		return ApiVersionSet{}, fmt.Errorf("could not find a common core API version")
	}

	modules := make(map[ModuleInstanceID]ApiVersion, len(client.Modules))
	for instanceID, clientModuleVersions := range client.Modules {
		modulePeers := make(map[PeerId]SupportedModuleApiVersions)
		for peerID, peerSummary := range peers {
			if v, ok := peerSummary.Modules[instanceID]; ok {
				modulePeers[peerID] = v
			}
		}
		if v, ok := discoverCommonModuleApiVersion(clientModuleVersions, modulePeers); ok {
			modules[instanceID] = v
		}
		// A module instance with no common version is simply omitted; this
		// is not an error (spec.md §4.1.7).
	}

	return ApiVersionSet{Core: core, Modules: modules}, nil
}
