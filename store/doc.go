// Package store defines the typed key-value store contract the mint module
// is built against (spec.md §6): ordered prefix scans, atomic multi-key
// transactions, and post-commit callbacks. It ships one in-memory
// implementation ([MemStore]) suitable for tests and the demo binary; a
// production deployment is expected to swap in a real embedded database
// behind the same [Transaction] interface.
package store
