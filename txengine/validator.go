package txengine

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"time"
)

// serialize returns the JSON marshaled form of the Proposal with the
// Signature field cleared, so the signature never covers itself.
func (p *Proposal) serialize() ([]byte, error) {
	tmp := *p
	tmp.Signature = nil
	return json.Marshal(tmp)
}

// serialize returns the JSON marshaled form of the Vote with the Signature
// field cleared.
func (v *Vote) serialize() ([]byte, error) {
	tmp := *v
	tmp.Signature = nil
	return json.Marshal(tmp)
}

// Sign signs the Proposal with the proposer's Ed25519 private key. It sets
// the current Unix nanosecond timestamp and signs over the serialized
// proposal.
func (p *Proposal) Sign(priv ed25519.PrivateKey) error {
	p.Timestamp = time.Now().UnixNano()
	b, err := p.serialize()
	if err != nil {
		return err
	}
	p.Signature = ed25519.Sign(priv, b)
	return nil
}

// Sign signs the Vote with the voter's Ed25519 private key.
func (v *Vote) Sign(priv ed25519.PrivateKey) error {
	b, err := v.serialize()
	if err != nil {
		return err
	}
	v.Signature = ed25519.Sign(priv, b)
	return nil
}

// VerifySignature verifies the Proposal's signature against pub. Returns an
// error if no signature is present.
func (p *Proposal) VerifySignature(pub ed25519.PublicKey) (bool, error) {
	if len(p.Signature) == 0 {
		return false, errors.New("missing signature")
	}
	b, err := p.serialize()
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, b, p.Signature), nil
}

// VerifySignature verifies the Vote's signature against pub. Returns an
// error if no signature is present.
func (v *Vote) VerifySignature(pub ed25519.PublicKey) (bool, error) {
	if len(v.Signature) == 0 {
		return false, errors.New("missing signature")
	}
	b, err := v.serialize()
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, b, v.Signature), nil
}
