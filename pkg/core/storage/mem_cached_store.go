package storage

import (
	"sort"
	"sync"
)

// MemCachedStore is a copy-on-write overlay over a backing Store: reads
// fall through to the backing store for keys it hasn't touched, writes
// land only in the overlay, and the overlay is either Persist()ed into the
// backing store or Discard()ed without ever reaching it. Admission and
// reconciliation open one of these per simulation and always Discard() it.
type MemCachedStore struct {
	mtx     sync.Mutex
	ps      Store
	mem     map[string][]byte
	deleted map[string]bool
}

// NewMemCachedStore wraps ps with a fresh, empty overlay.
func NewMemCachedStore(ps Store) *MemCachedStore {
	return &MemCachedStore{
		ps:      ps,
		mem:     make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// Get implements Store, preferring the overlay over the backing store.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	k := string(key)
	if s.deleted[k] {
		return nil, ErrKeyNotFound
	}
	if v, ok := s.mem[k]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	if s.ps == nil {
		return nil, ErrKeyNotFound
	}
	return s.ps.Get(key)
}

// Put stages a write in the overlay only.
func (s *MemCachedStore) Put(key, value []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.mem[string(key)] = cp
	delete(s.deleted, string(key))
	return nil
}

// Delete stages a tombstone in the overlay only.
func (s *MemCachedStore) Delete(key []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.mem, string(key))
	s.deleted[string(key)] = true
	return nil
}

// Seek merges the overlay over the backing store's view of prefix, in key
// order, honoring tombstones.
func (s *MemCachedStore) Seek(prefix []byte, f func(k, v []byte) bool) {
	s.mtx.Lock()
	seen := make(map[string]bool, len(s.mem))
	type kv struct{ k, v []byte }
	var merged []kv
	for k, v := range s.mem {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			merged = append(merged, kv{[]byte(k), v})
			seen[k] = true
		}
	}
	deleted := make(map[string]bool, len(s.deleted))
	for k := range s.deleted {
		deleted[k] = true
	}
	ps := s.ps
	s.mtx.Unlock()

	if ps != nil {
		ps.Seek(prefix, func(k, v []byte) bool {
			if !seen[string(k)] && !deleted[string(k)] {
				merged = append(merged, kv{k, v})
			}
			return true
		})
	}
	sort.Slice(merged, func(i, j int) bool {
		return string(merged[i].k) < string(merged[j].k)
	})
	for _, e := range merged {
		if !f(e.k, e.v) {
			return
		}
	}
}

// Close is a no-op: the overlay owns no resources of its own. Closing the
// backing store is the caller's responsibility.
func (s *MemCachedStore) Close() error {
	return nil
}

// Persist flushes the overlay into the backing store and clears it,
// returning the number of puts and deletes applied. It is never called
// from mempool admission or reconciliation paths; those always Discard.
func (s *MemCachedStore) Persist() (puts, dels int, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for k, v := range s.mem {
		if err = s.ps.Put([]byte(k), v); err != nil {
			return
		}
		puts++
	}
	for k := range s.deleted {
		if err = s.ps.Delete([]byte(k)); err != nil {
			return
		}
		dels++
	}
	s.mem = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	return
}

// Discard drops every staged write without touching the backing store.
// This is the only exit path used by the mempool: the overlay was only
// ever a simulation device.
func (s *MemCachedStore) Discard() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.mem = make(map[string][]byte)
	s.deleted = make(map[string]bool)
}
