package txengine

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/fedimint-go/mintcore/ledger"
	"github.com/fedimint-go/mintcore/mint"
	"github.com/fedimint-go/mintcore/network"
	"github.com/fedimint-go/mintcore/store"
)

func buildTestApplier(t *testing.T) mint.Mint {
	t.Helper()
	suite := mint.Suite()
	privates, consensus, aggregates, _ := mint.TrustedDealerKeygen(suite, []mint.Amount{1, 2, 4}, 4, 1)
	cfg := &mint.MintConfig{
		Local:     mint.MintConfigLocal{PeerID: 0},
		Private:   privates[0],
		Consensus: consensus,
	}
	if err := mint.ValidateConfig(suite, cfg); err != nil {
		t.Fatalf("unexpected config validation error: %v", err)
	}
	return *mint.NewMint(suite, cfg, aggregates)
}

func TestValidateTransactionLeavesNoTrace(t *testing.T) {
	m := buildTestApplier(t)
	suite := mint.Suite()
	blind := suite.G1().Point().Pick(suite.RandomStream())
	st := store.NewMemStore()
	ctx := context.Background()

	tx := Transaction{Outputs: []mint.Output{{Amount: 2, BlindNonce: blind}}}
	if err := validateTransaction(ctx, &m, st, tx); err != nil {
		t.Fatalf("expected a valid transaction to pass validation, got %v", err)
	}

	_ = st.WithTransaction(ctx, func(dbtx store.Transaction) error {
		count := 0
		dbtx.ScanPrefix(store.AuditItemPrefix, func(k, v []byte) bool {
			count++
			return true
		})
		if count != 0 {
			t.Fatalf("expected a dry-run validation to leave no trace, found %d entries", count)
		}
		return nil
	})
}

func TestValidateTransactionRejectsUnknownTier(t *testing.T) {
	m := buildTestApplier(t)
	suite := mint.Suite()
	blind := suite.G1().Point().Pick(suite.RandomStream())
	st := store.NewMemStore()
	ctx := context.Background()

	tx := Transaction{Outputs: []mint.Output{{Amount: 999, BlindNonce: blind}}}
	if err := validateTransaction(ctx, &m, st, tx); err == nil {
		t.Fatal("expected validation to reject an unknown denomination tier")
	}
}

func TestApplyCommitPersistsOutcomeAndAppendsLedger(t *testing.T) {
	m := buildTestApplier(t)
	suite := mint.Suite()
	blind := suite.G1().Point().Pick(suite.RandomStream())
	st := store.NewMemStore()
	ldg := ledger.NewBlockchain()
	ctx := context.Background()

	node := &TransactionNode{
		applier: &m,
		store:   st,
		ledger:  ldg,
		quorum:  1,
	}

	tx := Transaction{Outputs: []mint.Output{{Amount: 4, BlindNonce: blind}}}
	proposal := &Proposal{ID: "p1", Tx: tx}
	cert := Certificate{Proposal: proposal}

	if err := node.applyCommit(ctx, cert); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	latest, err := ldg.GetLatest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.IssuanceTotal != 4 {
		t.Fatalf("expected issuance total 4, got %d", latest.IssuanceTotal)
	}
	if len(latest.Items) != 1 || latest.Items[0].Kind != mint.AuditIssuance {
		t.Fatalf("expected one issuance audit item, got %+v", latest.Items)
	}

	_ = st.WithTransaction(ctx, func(dbtx store.Transaction) error {
		if _, ok := m.GetOutputOutcome(ctx, dbtx, mint.OutPoint{OutIdx: 0}); !ok {
			t.Fatal("expected the committed output's outcome to persist")
		}
		return nil
	})
}

func TestCheckAndCommitReachesAcceptQuorum(t *testing.T) {
	m := buildTestApplier(t)
	suite := mint.Suite()
	blind := suite.G1().Point().Pick(suite.RandomStream())
	st := store.NewMemStore()
	ldg := ledger.NewBlockchain()
	ctx := context.Background()

	node := &TransactionNode{
		applier:   &m,
		store:     st,
		ledger:    ldg,
		playersPK: map[mint.PeerId]ed25519.PublicKey{0: {}, 1: {}, 2: {}, 3: {}},
		quorum:    computeQuorum(4),
		votes:     map[mint.PeerId]Vote{},
	}

	tx := Transaction{Outputs: []mint.Output{{Amount: 1, BlindNonce: blind}}}
	node.proposal = &Proposal{ID: "p1", Tx: tx}
	node.votes[0] = Vote{ProposalID: "p1", VoterID: 0, Value: VoteAccept}
	node.votes[1] = Vote{ProposalID: "p1", VoterID: 1, Value: VoteAccept}
	node.votes[2] = Vote{ProposalID: "p1", VoterID: 2, Value: VoteAccept}

	if err := node.checkAndCommit(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ldg.GetLatest(); err != nil {
		t.Fatalf("expected the ledger to have grown: %v", err)
	}
}

func TestCheckAndCommitBansOnRejectQuorum(t *testing.T) {
	node := &TransactionNode{
		playersPK: map[mint.PeerId]ed25519.PublicKey{0: {}, 1: {}, 2: {}, 3: {}},
		quorum:    computeQuorum(4),
		votes:     map[mint.PeerId]Vote{},
	}
	node.proposal = &Proposal{ID: "p1", ProposerID: 2, Tx: Transaction{}}
	node.votes[0] = Vote{ProposalID: "p1", VoterID: 0, Value: VoteReject, Reason: "bad-signature"}
	node.votes[1] = Vote{ProposalID: "p1", VoterID: 1, Value: VoteReject, Reason: "bad-signature"}
	node.votes[3] = Vote{ProposalID: "p1", VoterID: 3, Value: VoteReject, Reason: "bad-signature"}

	if err := node.checkAndCommit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, stillPresent := node.playersPK[2]; stillPresent {
		t.Fatal("expected the proposer to be banned from the peer set")
	}
	if node.quorum != computeQuorum(3) {
		t.Fatalf("expected quorum recomputed for 3 peers, got %d", node.quorum)
	}
}

// TestProposeAndCommitOverNetwork exercises the full protocol over real
// network.Peer transport: a proposer broadcasts a transaction, two
// followers validate and vote, and all three converge on a committed
// ledger entry.
func TestProposeAndCommitOverNetwork(t *testing.T) {
	n := 3
	listeners, addresses := network.CreateListeners(n)
	peers := make([]*network.Peer, n)
	for i := 0; i < n; i++ {
		p := network.NewPeer(i, addresses, listeners[i], 10*time.Second)
		peers[i] = &p
	}
	defer func() {
		for i := 0; i < n; i++ {
			_ = peers[i].Close()
		}
	}()

	pubs := make([]ed25519.PublicKey, n)
	privs := make([]ed25519.PrivateKey, n)
	for i := 0; i < n; i++ {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		pubs[i] = pub
		privs[i] = priv
	}
	playersPK := map[mint.PeerId]ed25519.PublicKey{}
	for i := 0; i < n; i++ {
		playersPK[mint.PeerId(i)] = pubs[i]
	}

	suite := mint.Suite()
	privates, consensus, aggregates, _ := mint.TrustedDealerKeygen(suite, []mint.Amount{1, 2, 4}, n, 0)

	nodes := make([]*TransactionNode, n)
	for i := 0; i < n; i++ {
		cfg := &mint.MintConfig{
			Local:     mint.MintConfigLocal{PeerID: mint.PeerId(i)},
			Private:   privates[i],
			Consensus: consensus,
		}
		m := mint.NewMint(suite, cfg, aggregates)
		p2p := network.NewP2P(peers[i])
		nodes[i] = NewTransactionNode(pubs[i], privs[i], playersPK, m, store.NewMemStore(), ledger.NewBlockchain(), p2p)
	}

	blind := suite.G1().Point().Pick(suite.RandomStream())
	tx := Transaction{Outputs: []mint.Output{{Amount: 2, BlindNonce: blind}}}
	proposal, err := MakeProposal(mint.PeerId(0), tx)
	if err != nil {
		t.Fatalf("make proposal: %v", err)
	}
	if err := proposal.Sign(privs[0]); err != nil {
		t.Fatalf("sign proposal: %v", err)
	}

	ready := make(chan struct{}, n-1)
	done := make(chan error, n-1)
	for i := 1; i < n; i++ {
		go func(idx int) {
			ready <- struct{}{}
			done <- nodes[idx].WaitForProposal(context.Background(), 0)
		}(i)
	}
	for i := 1; i < n; i++ {
		<-ready
	}
	time.Sleep(100 * time.Millisecond)

	if err := nodes[0].ProposeTransaction(context.Background(), &proposal); err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	for i := 1; i < n; i++ {
		if err := <-done; err != nil {
			t.Fatalf("follower error: %v", err)
		}
	}

	for i := 0; i < n; i++ {
		latest, err := nodes[i].ledger.GetLatest()
		if err != nil {
			t.Fatalf("node %d: unexpected error: %v", i, err)
		}
		if latest.IssuanceTotal != 2 {
			t.Fatalf("node %d: expected issuance total 2, got %d", i, latest.IssuanceTotal)
		}
	}
}
