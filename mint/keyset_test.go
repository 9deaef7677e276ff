package mint

import "testing"

func TestShareConsistencyProofRoundTrips(t *testing.T) {
	suite := Suite()
	privates, consensus, _, _ := TrustedDealerKeygen(suite, []Amount{2}, 4, 1)

	secret := privates[0].SecretShares[Amount(2)]
	pubShare := consensus.PeerPubShares[PeerId(0)][Amount(2)]

	h := suite.G2().Point().Pick(suite.XOF(dkgCommitmentBase(suite, Amount(2))))
	commitment := PubShare{Point: suite.G2().Point().Mul(secret.Scalar, h)}

	proofData, err := ProveShareConsistency(suite, Amount(2), secret, pubShare)
	if err != nil {
		t.Fatalf("unexpected error proving consistency: %v", err)
	}
	if err := VerifyShareConsistency(suite, Amount(2), pubShare, commitment, proofData); err != nil {
		t.Fatalf("expected proof to verify: %v", err)
	}
}

func TestShareConsistencyProofRejectsWrongPubShare(t *testing.T) {
	suite := Suite()
	privates, consensus, _, _ := TrustedDealerKeygen(suite, []Amount{2, 4}, 4, 1)

	secret := privates[0].SecretShares[Amount(2)]
	pubShare := consensus.PeerPubShares[PeerId(0)][Amount(2)]
	wrongPubShare := consensus.PeerPubShares[PeerId(0)][Amount(4)]

	h := suite.G2().Point().Pick(suite.XOF(dkgCommitmentBase(suite, Amount(2))))
	commitment := PubShare{Point: suite.G2().Point().Mul(secret.Scalar, h)}

	proofData, err := ProveShareConsistency(suite, Amount(2), secret, pubShare)
	if err != nil {
		t.Fatalf("unexpected error proving consistency: %v", err)
	}
	if err := VerifyShareConsistency(suite, Amount(2), wrongPubShare, commitment, proofData); err == nil {
		t.Fatal("expected verification to fail against a mismatched public share")
	}
}
