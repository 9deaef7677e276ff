// Package txengine implements a Byzantine Fault Tolerant consensus protocol
// for ordering and committing client-submitted e-cash transactions across a
// federation of mint peers. It ensures every honest peer applies the same
// sequence of transactions to its mint module, even in the presence of
// malicious or faulty peers.
//
// # Architecture
//
// The engine sits between the network transport and the mint module,
// validating and committing transactions through a voting mechanism. Each
// transaction must receive a quorum of votes before any peer applies it.
//
// # Core Components
//
// TransactionNode manages the consensus protocol for a single peer,
// handling proposal creation, vote collection, and application to the mint
// module. It coordinates with the mint module (validation/application),
// the ledger (audit roll-up history), and the network layer.
//
// Applier is the interface this package uses to validate and apply a
// transaction's inputs and outputs; *mint.Mint satisfies it directly.
//
// Ledger maintains an immutable, hash-chained record of every committed
// roll-up for auditability.
//
// NetworkLayer abstracts peer-to-peer communication, providing reliable
// broadcast and all-to-all communication with synchronization; network.P2P
// satisfies it directly.
//
// # Protocol Flow
//
// 1. Proposal Phase: the current proposer broadcasts a signed Transaction
//    to all peers with a 30-second timeout.
//
// 2. Validation Phase: each peer independently replays the transaction's
//    inputs and outputs against its own mint module inside a scratch
//    store.Transaction that is always aborted, so a dry-run validation
//    attempt never mutates durable state.
//
// 3. Voting Phase: peers broadcast signed ACCEPT or REJECT votes to all
//    peers using all-to-all communication.
//
// 4. Commitment Phase: once a quorum of ACCEPT votes is reached, the
//    transaction is replayed once more for real — this time the
//    store.Transaction commits — and the resulting audit items are rolled
//    into the ledger. A REJECT quorum instead bans the proposer.
//
// # Byzantine Fault Tolerance
//
// The protocol tolerates up to f Byzantine peers where f < n/3. Quorum is
// computed as (2n+2)/3 rounded down, ensuring any two quorums intersect in at
// least one honest peer.
package txengine
