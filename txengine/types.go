package txengine

import (
	"encoding/json"

	"github.com/fedimint-go/mintcore/mint"
)

// Transaction bundles the inputs being redeemed and the outputs being
// issued that must be applied atomically: either every input and output
// validates against the mint module, or none of them are applied.
type Transaction struct {
	ID      [32]byte      `json:"id"`
	Inputs  []mint.Input  `json:"inputs"`
	Outputs []mint.Output `json:"outputs"`
}

// Proposal is a signed transaction broadcast by its proposer for
// consensus.
type Proposal struct {
	ID         string      `json:"id"`
	ProposerID mint.PeerId `json:"proposer_id"`
	Tx         Transaction `json:"tx"`
	Timestamp  int64       `json:"ts"`
	Signature  []byte      `json:"sig,omitempty"`
}

// ToString returns the JSON representation of the Proposal.
func (p *Proposal) ToString() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// VoteValue is a peer's verdict on a proposal.
type VoteValue string

const (
	VoteAccept VoteValue = "ACCEPT"
	VoteReject VoteValue = "REJECT"
)

// Vote is one peer's signed verdict on a single proposal.
type Vote struct {
	ProposalID string      `json:"proposal_id"`
	VoterID    mint.PeerId `json:"voter_id"`
	Value      VoteValue   `json:"value"`
	Reason     string      `json:"reason,omitempty"`
	Signature  []byte      `json:"signature,omitempty"`
}

// Certificate is a proposal together with the quorum of votes that decided
// it.
type Certificate struct {
	Proposal *Proposal `json:"proposal"`
	Votes    []Vote    `json:"votes"`
	Reason   string    `json:"reason,omitempty"`
}
