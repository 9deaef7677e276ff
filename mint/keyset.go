package mint

import (
	"fmt"

	"go.dedis.ch/kyber/v3/pairing"
	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/sign/bls"
	"go.dedis.ch/kyber/v3/sign/tbls"

	"github.com/fedimint-go/mintcore/crypto"
)

// Suite returns the pairing suite every denomination tier's key material is
// defined over. BLS-style blind signatures and their threshold shares live
// on this curve; a single suite is shared by every tier so aggregate keys
// from different tiers are never confusable with one another only because
// they happen to use different groups.
func Suite() pairing.Suite {
	return bn256.NewSuiteG2()
}

// derivePubShare computes the public counterpart of a secret share:
// g2 · secret. This is the "derive_pub" operation spec.md §3 and §4.2.5
// require to hold against the peer's own published PubShare.
func derivePubShare(suite pairing.Suite, secret SecretShare) PubShare {
	return PubShare{Point: suite.G2().Point().Mul(secret.Scalar, nil)}
}

// VerifyKeySetConsistency checks the KeySet invariant from spec.md §3: for
// every tier this peer holds a secret share for, deriving its public share
// must match what this peer has published for itself under PeerPubShares.
func VerifyKeySetConsistency(suite pairing.Suite, ks *KeySet, self PeerId) error {
	for amount, secret := range ks.SecretShares {
		tiers, ok := ks.PeerPubShares[self]
		if !ok {
			return &ConfigInconsistencyError{Reason: "own peer id missing from peer_pub_shares"}
		}
		published, ok := tiers[amount]
		if !ok {
			return &ConfigInconsistencyError{Reason: "own public share missing for a held secret share tier"}
		}
		if !derivePubShare(suite, secret).Point.Equal(published.Point) {
			return &ConfigInconsistencyError{Reason: "derived public share does not match published share"}
		}
	}
	return nil
}

// signShare computes this peer's BLS signature share over a blinded nonce,
// using its secret share for the nonce's denomination tier. tbls prefixes
// two bytes identifying which peer produced the share; signShare strips
// them and returns only the G1 point, so an aggregator must prepend the
// peer index again before feeding the share into recovery.
func signShare(suite pairing.Suite, peerIndex int, secret SecretShare, blindNonce []byte) (BlindSig, error) {
	priShare := &share.PriShare{I: peerIndex, V: secret.Scalar}
	sigBytes, err := tbls.Sign(suite, priShare, blindNonce)
	if err != nil {
		return BlindSig{}, err
	}
	point := suite.G1().Point()
	if err := point.UnmarshalBinary(sigBytes[2:]); err != nil {
		return BlindSig{}, err
	}
	return BlindSig{Point: point}, nil
}

// verifyNoteSignature checks that a note's signature verifies under the
// federation's aggregate public key for its amount — the check spec.md
// §4.2.1 step 2 and §8's "signature verification" invariant both require.
// By the time a note reaches ProcessInput its signature has already been
// aggregated off-core from threshold peer shares (spec.md §3 Lifecycle), so
// this is a plain BLS verification against the aggregate key, not a
// per-share check.
func verifyNoteSignature(suite pairing.Suite, note Note, aggregate AggregatePub) error {
	msg, err := note.Nonce.MarshalBinary()
	if err != nil {
		return &InvalidSignatureError{Amount: note.Amount}
	}
	sigBytes, err := note.Signature.Point.MarshalBinary()
	if err != nil {
		return &InvalidSignatureError{Amount: note.Amount}
	}
	if err := bls.Verify(suite, aggregate.Point, msg, sigBytes); err != nil {
		return &InvalidSignatureError{Amount: note.Amount}
	}
	return nil
}

// dkgCommitmentBase returns the deterministic per-tier seed from which a
// second generator H for tier amount is derived, independent of the tier's
// own G2 base point: callers pick H from suite.XOF(seed).
// ProveShareConsistency/VerifyShareConsistency
// need two independent generators to express "same discrete log under both
// bases"; every peer must derive the same H to agree on a statement.
func dkgCommitmentBase(suite pairing.Suite, amount Amount) []byte {
	seed := []byte(fmt.Sprintf("mintcore/dkg-commitment-base/%d", amount))
	return seed
}

// ProveShareConsistency produces a zero-knowledge proof that this peer's
// secret share for amount is consistent with both its published PubShare
// (the normal G2 base) and an independently-generated DKG commitment point,
// without revealing the secret itself. This is an optional, stronger
// consistency check on top of VerifyKeySetConsistency's direct
// derive_pub(secret) == pub_share comparison, useful during a distributed
// key generation round's complaint-resolution phase (spec.md §4.2.5).
func ProveShareConsistency(suite pairing.Suite, amount Amount, secret SecretShare, pubShare PubShare) ([]byte, error) {
	h := suite.G2().Point().Pick(suite.XOF(dkgCommitmentBase(suite, amount)))
	commitment := suite.G2().Point().Mul(secret.Scalar, h)
	statement := &crypto.DLEQStatement{
		G:          suite.G2().Point().Base(),
		H:          h,
		PubShare:   pubShare.Point,
		Commitment: commitment,
	}
	return crypto.ProveShareConsistency(suite.G2(), &crypto.DLEQWitness{Secret: secret.Scalar}, statement)
}

// VerifyShareConsistency checks a proof produced by ProveShareConsistency
// against a peer's published PubShare and the commitment point that
// accompanies the proof.
func VerifyShareConsistency(suite pairing.Suite, amount Amount, pubShare PubShare, commitment PubShare, proofData []byte) error {
	h := suite.G2().Point().Pick(suite.XOF(dkgCommitmentBase(suite, amount)))
	statement := &crypto.DLEQStatement{
		G:          suite.G2().Point().Base(),
		H:          h,
		PubShare:   pubShare.Point,
		Commitment: commitment.Point,
	}
	return crypto.VerifyShareConsistency(suite.G2(), proofData, statement)
}

// commitShare computes the DKG commitment point secret·H for amount's
// independent generator H, the value ProveShareConsistency/
// VerifyShareConsistency's statement binds a share to.
func commitShare(suite pairing.Suite, amount Amount, secret SecretShare) PubShare {
	h := suite.G2().Point().Pick(suite.XOF(dkgCommitmentBase(suite, amount)))
	return PubShare{Point: suite.G2().Point().Mul(secret.Scalar, h)}
}

// verifyShareConsistencyProofs runs ProveShareConsistency/
// VerifyShareConsistency for every tier cfg holds a secret share for, on top
// of VerifyKeySetConsistency's direct derive_pub comparison. Per spec.md
// §4.2.5 this is the stronger, zero-knowledge check a peer can run at load
// time to catch a published share that is inconsistent with its own DKG
// commitment without ever reconstructing anyone else's secret.
func verifyShareConsistencyProofs(suite pairing.Suite, cfg *MintConfig) error {
	tiers, ok := cfg.Consensus.PeerPubShares[cfg.Local.PeerID]
	if !ok {
		return &ConfigInconsistencyError{Reason: "own peer id missing from peer_pub_shares"}
	}
	for amount, secret := range cfg.Private.SecretShares {
		pubShare, ok := tiers[amount]
		if !ok {
			return &ConfigInconsistencyError{Reason: "own public share missing for a held secret share tier"}
		}
		commitment := commitShare(suite, amount, secret)
		proofData, err := ProveShareConsistency(suite, amount, secret, pubShare)
		if err != nil {
			return fmt.Errorf("mint: failed to prove share consistency for amount %d: %v", amount, err)
		}
		if err := VerifyShareConsistency(suite, amount, pubShare, commitment, proofData); err != nil {
			return &ConfigInconsistencyError{Reason: fmt.Sprintf("share consistency proof failed for amount %d: %v", amount, err)}
		}
	}
	return nil
}

// recoverAggregateSignature reconstructs the full BLS signature from
// threshold signature shares — the off-core counterpart to signShare,
// included here because tests need a way to produce a spendable Note from
// the shares ProcessOutput emits without a separate client package.
func recoverAggregateSignature(suite pairing.Suite, pubPoly *share.PubPoly, msg []byte, shareBytes [][]byte, threshold, numPeers int) ([]byte, error) {
	return tbls.Recover(suite, pubPoly, msg, shareBytes, threshold, numPeers)
}
