package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fedimint-go/mintcore/mint"
)

// Blockchain is an append-only, hash-chained log of committed audit
// roll-ups.
type Blockchain struct {
	mu     sync.RWMutex
	blocks []Block
}

// NewBlockchain creates a blockchain with an initialized genesis block: index
// 0, previous hash "0", and an empty item batch.
func NewBlockchain() *Blockchain {
	bc := &Blockchain{
		blocks: make([]Block, 0),
	}

	genesis := Block{
		Index:    0,
		PrevHash: "0",
		Items:    []mint.AuditItem{},
		Metadata: Metadata{ProposerID: 0, Quorum: 0},
	}
	genesis.Hash = bc.calculateHash(genesis)
	bc.blocks = append(bc.blocks, genesis)

	return bc
}

// Append records a committed roll-up: the batch of audit items the
// transaction engine's commit phase consumed via Mint.Audit, the
// federation's running totals immediately after, and the commit's quorum
// provenance. now is the caller's Unix timestamp for the new block, passed
// in rather than read from the clock so chains stay reproducible in tests.
func (bc *Blockchain) Append(now int64, items []mint.AuditItem, issuanceTotal, redemptionTotal uint64, proposerID mint.PeerId, quorum int, extra ...map[string]string) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	var extraMsg map[string]string
	if len(extra) > 0 {
		extraMsg = extra[0]
	}
	latest := bc.blocks[len(bc.blocks)-1]

	newBlock := Block{
		Index:           latest.Index + 1,
		Timestamp:       now,
		PrevHash:        latest.Hash,
		Items:           items,
		IssuanceTotal:   issuanceTotal,
		RedemptionTotal: redemptionTotal,
		Metadata: Metadata{
			ProposerID: proposerID,
			Quorum:     quorum,
			Extra:      extraMsg,
		},
	}
	newBlock.Hash = bc.calculateHash(newBlock)

	if err := bc.validateBlock(newBlock, latest); err != nil {
		return fmt.Errorf("invalid block: %w", err)
	}

	bc.blocks = append(bc.blocks, newBlock)
	return nil
}

// GetLatest returns the most recently appended block. Returns an error if
// the chain is somehow empty (cannot happen once NewBlockchain has run).
func (bc *Blockchain) GetLatest() (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return Block{}, fmt.Errorf("blockchain is empty")
	}
	return bc.blocks[len(bc.blocks)-1], nil
}

// GetByIndex retrieves a block by its index. Returns an error if the index
// is out of range.
func (bc *Blockchain) GetByIndex(index int) (*Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if index < 0 || index >= len(bc.blocks) {
		return nil, fmt.Errorf("index out of range")
	}
	return &bc.blocks[index], nil
}

// Verify checks the integrity of the entire chain: the genesis block's
// previous hash and, for every subsequent block, index continuity,
// previous-hash linkage, and hash validity.
func (bc *Blockchain) Verify() error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return fmt.Errorf("empty blockchain")
	}
	if bc.blocks[0].PrevHash != "0" {
		return fmt.Errorf("invalid genesis block")
	}

	for i := 1; i < len(bc.blocks); i++ {
		current := bc.blocks[i]
		previous := bc.blocks[i-1]
		if err := bc.validateBlock(current, previous); err != nil {
			return fmt.Errorf("block %d invalid: %w", i, err)
		}
	}
	return nil
}

// validateBlock checks a block against its predecessor: index continuity,
// previous-hash linkage, and hash validity.
func (bc *Blockchain) validateBlock(current, previous Block) error {
	if current.Index != previous.Index+1 {
		return fmt.Errorf("invalid index: expected %d, got %d", previous.Index+1, current.Index)
	}
	if current.PrevHash != previous.Hash {
		return fmt.Errorf("invalid prev hash: expected %s, got %s", previous.Hash, current.PrevHash)
	}
	expectedHash := bc.calculateHash(current)
	if current.Hash != expectedHash {
		return fmt.Errorf("invalid hash: expected %s, got %s", expectedHash, current.Hash)
	}
	return nil
}

// calculateHash computes the SHA256 hash of a block from its index,
// timestamp, previous hash, JSON-marshaled item batch and totals, and
// commit provenance.
func (bc *Blockchain) calculateHash(block Block) string {
	itemsBytes, _ := json.Marshal(block.Items)

	data := fmt.Sprintf("%d%d%s%s%d%d%d%d",
		block.Index,
		block.Timestamp,
		block.PrevHash,
		string(itemsBytes),
		block.IssuanceTotal,
		block.RedemptionTotal,
		block.Metadata.ProposerID,
		block.Metadata.Quorum,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
