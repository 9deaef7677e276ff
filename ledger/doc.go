// Package ledger implements an immutable, hash-chained audit trail for the
// mint's committed roll-ups.
//
// # Core Components
//
// Blockchain: an append-only log of committed audit roll-ups with
// cryptographic hash chaining for tamper detection.
//
// Block: a single roll-up, carrying the batch of mint.AuditItem entries
// consumed by that commit, the running issuance/redemption totals at that
// point, and cryptographic links to the previous block.
//
// # Security Properties
//
// The blockchain provides:
//   - Immutability: once recorded, blocks cannot be modified
//   - Verifiability: anyone can verify the integrity of the entire chain
//   - Auditability: a complete history of every committed roll-up
//   - Tamper detection: any modification breaks the hash chain
//
// # Usage
//
// Create a blockchain, then append a block each time the transaction
// engine commits a batch and runs Mint.Audit over it. Verify can be called
// at any time to ensure the chain remains intact.
package ledger
