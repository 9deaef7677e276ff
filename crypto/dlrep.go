// Package crypto provides the zero-knowledge proof primitives the mint
// module uses during key-share verification: a peer can prove that a
// published public share is consistent with a DKG commitment without
// revealing the underlying secret scalar.
package crypto

import (
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/proof"
	"go.dedis.ch/kyber/v3/util/random"
)

// DLEQWitness is the secret scalar a peer knows: its share of a
// denomination tier's secret key.
type DLEQWitness struct {
	Secret kyber.Scalar
}

// DLEQStatement is the public claim being proven: that PubShare = G·Secret
// and Commitment = H·Secret for the same Secret, under two independent
// generators G and H. Used to cross-check a peer's published pub_share
// against a second, DKG-produced commitment without either party learning
// the other's secret.
type DLEQStatement struct {
	G          kyber.Point
	H          kyber.Point
	PubShare   kyber.Point
	Commitment kyber.Point
}

// ProveShareConsistency generates a zero-knowledge proof that witness.Secret
// is the discrete log of both statement.PubShare (base G) and
// statement.Commitment (base H). Grounded on the teacher's ProveDLREP,
// generalized from single-letter field names to the key-share domain.
func ProveShareConsistency(suite kyber.Group, witness *DLEQWitness, statement *DLEQStatement) ([]byte, error) {
	prover := proof.Rep(
		[]kyber.Point{statement.G, statement.H},
		[]kyber.Point{statement.PubShare, statement.Commitment},
	)
	secrets := []kyber.Scalar{witness.Secret}

	proofData, err := prover.Prove(suite, random.New(), secrets)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to produce share consistency proof: %v", err)
	}
	return proofData, nil
}

// VerifyShareConsistency checks a proof produced by ProveShareConsistency
// against the public statement, without access to the witness.
func VerifyShareConsistency(suite kyber.Group, proofData []byte, statement *DLEQStatement) error {
	verifier := proof.Rep{
		G: []kyber.Point{statement.G, statement.H},
		H: []kyber.Point{statement.PubShare, statement.Commitment},
	}
	if err := verifier.Verify(suite, proofData); err != nil {
		return fmt.Errorf("crypto: share consistency proof failed to verify: %v", err)
	}
	return nil
}
