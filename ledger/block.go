package ledger

import "github.com/fedimint-go/mintcore/mint"

// Block is one hash-chained roll-up entry: the batch of audit items
// consumed by Mint.Audit at commit time, the federation's running
// issuance/redemption totals immediately after that roll-up, and the
// quorum metadata of the commit that produced it.
type Block struct {
	Index           int             `json:"index"`
	Timestamp       int64           `json:"timestamp"`
	PrevHash        string          `json:"prev_hash"`
	Hash            string          `json:"hash"`
	Items           []mint.AuditItem `json:"items"`
	IssuanceTotal   uint64          `json:"issuance_total"`
	RedemptionTotal uint64          `json:"redemption_total"`
	Metadata        Metadata        `json:"metadata"`
}

// Metadata carries the consensus provenance of a committed block.
type Metadata struct {
	ProposerID mint.PeerId       `json:"proposer_id"`
	Quorum     int               `json:"quorum"`
	Extra      map[string]string `json:"extra,omitempty"`
}
