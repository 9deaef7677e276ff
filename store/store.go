package store

import "context"

// Transaction is an atomic, serializable view over one module's key space.
// All reads and writes made through a Transaction become visible to other
// transactions only on a successful Commit; an aborted or panicking
// transaction leaves no trace and runs no OnCommit hooks.
type Transaction interface {
	// Get returns the value stored at key, or (nil, false) if absent.
	Get(key []byte) ([]byte, bool)
	// Insert sets key to value and returns the previous value, if any. This
	// is the primitive [Mint.ProcessInput] uses to detect double-spends:
	// the previous-value check happens in the same transaction as the
	// write, so there is no time-of-check/time-of-use gap.
	Insert(key, value []byte) (previous []byte, hadPrevious bool)
	// InsertNew is Insert for keys the caller asserts are new; it panics if
	// a value already existed, mirroring the "must be a new insertion"
	// invariants on output outcomes and audit items.
	InsertNew(key, value []byte)
	// Remove deletes key, if present.
	Remove(key []byte)
	// ScanPrefix iterates all keys with the given prefix in ascending byte
	// order, stopping early if fn returns false.
	ScanPrefix(prefix []byte, fn func(key, value []byte) bool)
	// OnCommit registers a callback to run after this transaction commits
	// successfully. Hooks never run if the transaction is aborted. This is
	// the only place metrics observation may happen (spec.md §9): emitting
	// before commit would need compensation on abort.
	OnCommit(fn func())
}

// Store is the durable backing collaborator: it admits one [Transaction] at
// a time (conflicting NonceKey inserts serialize first-writer-wins, spec.md
// §5) and commits or aborts it atomically.
type Store interface {
	// WithTransaction runs fn inside a new transaction. If fn returns a
	// non-nil error the transaction is aborted and none of its writes or
	// OnCommit hooks take effect; WithTransaction returns that error. If fn
	// returns nil, the transaction commits and its OnCommit hooks run
	// before WithTransaction returns.
	WithTransaction(ctx context.Context, fn func(Transaction) error) error
}
