package mint

import (
	"go.dedis.ch/kyber/v3/pairing"
	"go.dedis.ch/kyber/v3/share"
)

// TrustedDealerKeygen samples one degree-f polynomial per denomination
// tier and distributes the resulting shares, per spec.md §4.2.5: for each
// tier, aggregate_pub = g·P(0), secret_share_i = P(i+1), pub_share_i =
// g·secret_share_i. f is the number of peers the federation tolerates as
// faulty; numPeers must be at least 3f+1 for the caller to have a BFT
// quorum at all, but that bound is the federation's concern, not this
// function's.
//
// Grounded on dealer_keygen/eval_polynomial in the original mint server
// and on the Pedersen VSS dealer's use of share.NewPriPoly to sample a
// polynomial and evaluate it at each participant's index.
func TrustedDealerKeygen(suite pairing.Suite, amounts []Amount, numPeers, f int) ([]MintConfigPrivate, MintConfigConsensus, map[Amount]AggregatePub, map[Amount]*share.PubPoly) {
	privates := make([]MintConfigPrivate, numPeers)
	for i := range privates {
		privates[i] = MintConfigPrivate{SecretShares: make(map[Amount]SecretShare)}
	}
	peerPubShares := make(map[PeerId]map[Amount]PubShare, numPeers)
	for i := 0; i < numPeers; i++ {
		peerPubShares[PeerId(i)] = make(map[Amount]PubShare)
	}
	aggregates := make(map[Amount]AggregatePub, len(amounts))
	pubPolys := make(map[Amount]*share.PubPoly, len(amounts))

	for _, amount := range amounts {
		secret := suite.G2().Scalar().Pick(suite.RandomStream())
		poly := share.NewPriPoly(suite.G2(), f+1, secret, suite.RandomStream())
		pubPoly := poly.Commit(suite.G2().Point().Base())
		aggregates[amount] = AggregatePub{Point: pubPoly.Commit()}
		pubPolys[amount] = pubPoly

		for i := 0; i < numPeers; i++ {
			priShare := poly.Eval(i)
			privates[i].SecretShares[amount] = SecretShare{Scalar: priShare.V}

			pubShare := pubPoly.Eval(i)
			peerPubShares[PeerId(i)][amount] = PubShare{Point: pubShare.V}
		}
	}

	consensus := MintConfigConsensus{PeerPubShares: peerPubShares}
	return privates, consensus, aggregates, pubPolys
}

// DistributedKeygenResult is what an external DKG round (one instance per
// denomination tier, driven by the enclosing peer-to-peer layer and out of
// scope here per spec.md §1) is expected to hand back for a single tier:
// this peer's secret share and every peer's public share.
type DistributedKeygenResult struct {
	SecretShare   SecretShare
	PeerPubShares map[PeerId]PubShare
}

// AggregateFromDistributedGen computes a tier's aggregate public key from
// the public shares a completed DKG round produced, by degree-f Lagrange
// interpolation at zero over threshold=f+1 of them — the same reduction
// TrustedDealerKeygen gets for free from pubPoly.Commit(), needed here
// because a DKG round does not hand back a single PubPoly.
func AggregateFromDistributedGen(suite pairing.Suite, result DistributedKeygenResult, threshold int) (AggregatePub, error) {
	pubShares := make([]*share.PubShare, 0, len(result.PeerPubShares))
	for peer, ps := range result.PeerPubShares {
		pubShares = append(pubShares, &share.PubShare{I: int(peer), V: ps.Point})
	}
	commit, err := share.RecoverCommit(suite.G2(), pubShares, threshold, len(pubShares))
	if err != nil {
		return AggregatePub{}, err
	}
	return AggregatePub{Point: commit}, nil
}

// ValidateConfig checks the invariants spec.md §4.2.5 requires of a loaded
// MintConfig before a Mint instance is built from it: every tier this peer
// holds a secret share for must derive the public share it has published
// for itself, a one-millisatoshi denomination tier must exist (the smallest
// unit every fee schedule is expressed in terms of), and each of those
// shares must carry a valid zero-knowledge proof of consistency with its own
// DKG commitment.
func ValidateConfig(suite pairing.Suite, cfg *MintConfig) error {
	if len(cfg.Private.SecretShares) == 0 {
		return &ConfigInconsistencyError{Reason: "no denomination tiers configured"}
	}
	if _, ok := cfg.Private.SecretShares[Amount(1)]; !ok {
		return &ConfigInconsistencyError{Reason: "msat-1 denomination tier missing"}
	}

	ks := &KeySet{
		SecretShares:  cfg.Private.SecretShares,
		PeerPubShares: cfg.Consensus.PeerPubShares,
	}
	if err := VerifyKeySetConsistency(suite, ks, cfg.Local.PeerID); err != nil {
		return err
	}
	return verifyShareConsistencyProofs(suite, cfg)
}
