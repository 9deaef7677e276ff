package txengine

import (
	"crypto/ed25519"
	"testing"

	"github.com/fedimint-go/mintcore/mint"
)

func TestProposalSignAndVerify(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	p := Proposal{ID: "p1", ProposerID: mint.PeerId(0), Tx: Transaction{}}

	if err := p.Sign(priv); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	ok, err := p.VerifySignature(pub)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestProposalVerifyFailsIfTampered(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	p := Proposal{ID: "p1", ProposerID: mint.PeerId(0), Tx: Transaction{}}
	if err := p.Sign(priv); err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	p.ProposerID = mint.PeerId(7)
	ok, err := p.VerifySignature(pub)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if ok {
		t.Fatal("expected tampered proposal to fail verification")
	}
}

func TestVoteSignAndVerify(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	v := Vote{ProposalID: "p1", VoterID: mint.PeerId(1), Value: VoteAccept}
	if err := v.Sign(priv); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	ok, err := v.VerifySignature(pub)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifySignatureRejectsMissingSignature(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	v := Vote{ProposalID: "p1", VoterID: mint.PeerId(1), Value: VoteReject}
	if _, err := v.VerifySignature(pub); err == nil {
		t.Fatal("expected an error for a missing signature")
	}
}
