package ledger

import (
	"testing"

	"github.com/fedimint-go/mintcore/mint"
)

func TestNewBlockchainHasGenesisBlock(t *testing.T) {
	bc := NewBlockchain()
	latest, err := bc.GetLatest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Index != 0 || latest.PrevHash != "0" {
		t.Fatalf("expected genesis block at index 0 with prev hash \"0\", got %+v", latest)
	}
}

func TestAppendChainsBlocksAndVerifies(t *testing.T) {
	bc := NewBlockchain()

	items1 := []mint.AuditItem{{Kind: mint.AuditIssuance, Amount: 4}}
	if err := bc.Append(1000, items1, 4, 0, mint.PeerId(0), 3); err != nil {
		t.Fatalf("first append failed: %v", err)
	}

	items2 := []mint.AuditItem{{Kind: mint.AuditRedemption, Amount: 2}}
	if err := bc.Append(1001, items2, 4, 2, mint.PeerId(1), 3); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	if err := bc.Verify(); err != nil {
		t.Fatalf("expected chain to verify, got %v", err)
	}

	latest, err := bc.GetLatest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Index != 2 || latest.RedemptionTotal != 2 {
		t.Fatalf("unexpected latest block: %+v", latest)
	}

	genesis, err := bc.GetByIndex(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, err := bc.GetByIndex(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.PrevHash != genesis.Hash {
		t.Fatalf("expected block 1's prev hash to equal the genesis block's hash, got %q vs %q", first.PrevHash, genesis.Hash)
	}
}

func TestVerifyDetectsTamperedBlock(t *testing.T) {
	bc := NewBlockchain()
	items := []mint.AuditItem{{Kind: mint.AuditIssuance, Amount: 8}}
	if err := bc.Append(1000, items, 8, 0, mint.PeerId(0), 3); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	bc.blocks[1].IssuanceTotal = 999 // tamper after the hash was computed

	if err := bc.Verify(); err == nil {
		t.Fatal("expected tampered chain to fail verification")
	}
}

func TestGetByIndexOutOfRange(t *testing.T) {
	bc := NewBlockchain()
	if _, err := bc.GetByIndex(5); err == nil {
		t.Fatal("expected an error for an out-of-range index")
	}
	if _, err := bc.GetByIndex(-1); err == nil {
		t.Fatal("expected an error for a negative index")
	}
}
