package txengine

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fedimint-go/mintcore/ledger"
	"github.com/fedimint-go/mintcore/mint"
	"github.com/fedimint-go/mintcore/store"
)

// Applier is how this package drives a mint module: validate/apply a
// single input or output inside a caller-supplied store.Transaction, and
// roll up the audit entries a commit produced. *mint.Mint satisfies this
// directly.
type Applier interface {
	ProcessInput(ctx context.Context, dbtx store.Transaction, input mint.Input) (mint.InputMeta, error)
	ProcessOutput(ctx context.Context, dbtx store.Transaction, output mint.Output, outPoint mint.OutPoint) (mint.OutputMeta, error)
	Audit(ctx context.Context, dbtx store.Transaction) (mint.AuditReport, error)
}

// Ledger is the interface for recording committed roll-ups. *ledger.Blockchain
// satisfies this directly.
type Ledger interface {
	Append(now int64, items []mint.AuditItem, issuanceTotal, redemptionTotal uint64, proposerID mint.PeerId, quorum int, extra ...map[string]string) error
	GetLatest() (ledger.Block, error)
	Verify() error
}

// NetworkLayer abstracts peer-to-peer communication primitives.
// network.P2P satisfies this directly.
type NetworkLayer interface {
	// Broadcast sends data from a specific peer (identified by root) to
	// all peers. Returns the data received from root, or an error.
	Broadcast(data []byte, root int) ([]byte, error)
	// BroadcastwithTimeout performs a Broadcast with a deadline.
	BroadcastwithTimeout(data []byte, rank int, timeout time.Duration) ([]byte, error)
	// AllToAll sends data from this peer to all peers and receives data
	// from all peers; index i of the result holds peer i's data.
	AllToAll(data []byte) ([][]byte, error)
	// AllToAllwithTimeout performs an AllToAll with a deadline.
	AllToAllwithTimeout(data []byte, timeout time.Duration) ([][]byte, error)
	// GetRank returns this peer's id in the network.
	GetRank() int
	// GetPeerCount returns the number of peers, including this one.
	GetPeerCount() int
	// Close shuts down the network layer.
	Close() error
}

// TransactionNode runs the BFT consensus protocol that turns client
// transactions into committed mint state. Every node in a federation runs
// one of these against its own Mint instance.
type TransactionNode struct {
	pub       ed25519.PublicKey
	priv      ed25519.PrivateKey
	playersPK map[mint.PeerId]ed25519.PublicKey
	quorum    int

	applier Applier
	store   store.Store
	ledger  Ledger
	network NetworkLayer

	proposal *Proposal
	votes    map[mint.PeerId]Vote
}

// NewTransactionNode creates and initializes a transaction node. Quorum is
// computed as (2n+2)/3, rounded down, over the initial peer set.
func NewTransactionNode(
	pub ed25519.PublicKey,
	priv ed25519.PrivateKey,
	peers map[mint.PeerId]ed25519.PublicKey,
	applier Applier,
	st store.Store,
	ldg Ledger,
	network NetworkLayer,
) *TransactionNode {
	return &TransactionNode{
		pub:       pub,
		priv:      priv,
		playersPK: peers,
		quorum:    computeQuorum(len(peers)),
		applier:   applier,
		store:     st,
		ledger:    ldg,
		network:   network,
		votes:     map[mint.PeerId]Vote{},
	}
}

// RemoveNode removes a peer from the consensus group and recalculates the
// quorum. Called when a peer is banned for proposing an invalid
// transaction.
func (node *TransactionNode) RemoveNode(leaver mint.PeerId) {
	delete(node.playersPK, leaver)
	node.quorum = computeQuorum(len(node.playersPK))
}

// UpdatePeers exchanges public keys with every peer via an AllToAll
// operation, synchronizing the peer mapping across the federation.
func (node *TransactionNode) UpdatePeers() error {
	b, err := json.Marshal(node.pub)
	if err != nil {
		return err
	}
	pkBytes, err := node.network.AllToAll(b)
	if err != nil {
		return err
	}
	pk := make(map[mint.PeerId]ed25519.PublicKey, len(pkBytes))
	for i, pki := range pkBytes {
		var p ed25519.PublicKey
		if err := json.Unmarshal(pki, &p); err != nil {
			return fmt.Errorf("failed to unmarshal public key: %v", err)
		}
		pk[mint.PeerId(i)] = p
	}
	node.playersPK = pk
	node.quorum = computeQuorum(len(pk))
	return nil
}

// computeQuorum calculates (2n+2)/3 rounded down, the minimum number of votes
// needed for BFT safety with up to f = floor((n-1)/3) faulty peers.
func computeQuorum(n int) int { return (2*n + 2) / 3 }
