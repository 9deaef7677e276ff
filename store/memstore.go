package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory [Store]. It serializes transactions behind a
// single mutex for the duration of a transaction — a deliberate
// simplification appropriate for a reference/test store; it satisfies the
// "first-writer-wins" requirement on conflicting NonceKey inserts by
// construction, though a production store only needs to serialize
// conflicting keys; see SPEC_FULL.md §5.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) WithTransaction(ctx context.Context, fn func(Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// memTx buffers writes and only applies them to the backing store on
// commit, so an aborted transaction (fn returning an error, or a panic
// unwinding through WithTransaction) leaves the store untouched.
type memTx struct {
	store    *MemStore
	writes   map[string][]byte // nil value means deletion
	onCommit []func()
}

func (tx *memTx) Get(key []byte) ([]byte, bool) {
	k := string(key)
	if v, staged := tx.writes[k]; staged {
		if v == nil {
			return nil, false
		}
		return v, true
	}
	v, ok := tx.store.data[k]
	return v, ok
}

func (tx *memTx) Insert(key, value []byte) ([]byte, bool) {
	previous, had := tx.Get(key)
	tx.stage(key, value)
	return previous, had
}

func (tx *memTx) InsertNew(key, value []byte) {
	if _, had := tx.Get(key); had {
		panic("store: InsertNew called on a key that already has a value")
	}
	tx.stage(key, value)
}

func (tx *memTx) Remove(key []byte) {
	tx.stage(key, nil)
}

func (tx *memTx) stage(key, value []byte) {
	if tx.writes == nil {
		tx.writes = make(map[string][]byte)
	}
	tx.writes[string(key)] = value
}

func (tx *memTx) ScanPrefix(prefix []byte, fn func(key, value []byte) bool) {
	seen := make(map[string]bool, len(tx.writes))
	keys := make([]string, 0, len(tx.store.data)+len(tx.writes))

	for k := range tx.store.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	for k := range tx.writes {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true

		v, ok := tx.Get([]byte(k))
		if !ok {
			continue
		}
		if !fn([]byte(k), v) {
			return
		}
	}
}

func (tx *memTx) OnCommit(fn func()) {
	tx.onCommit = append(tx.onCommit, fn)
}

// commit applies staged writes to the backing store and runs the
// post-commit hooks, in that order, while the store's mutex is still held
// by the enclosing WithTransaction call.
func (tx *memTx) commit() {
	for k, v := range tx.writes {
		if v == nil {
			delete(tx.store.data, k)
		} else {
			tx.store.data[k] = v
		}
	}
	for _, fn := range tx.onCommit {
		fn()
	}
}
