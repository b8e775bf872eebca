package civicache

import (
	"slices"
	"sync"
)

// Entry is what a [Store] holds under a key.
//
// A tombstoned entry has no value and reads as [Gone]; it is distinct from a
// missing key ([Unknown]) so observers do not refetch something known to be
// deleted.
type Entry struct {
	Value     any
	Tombstone bool
}

// Listener is called after a key it subscribed to changed.
type Listener func(key Key)

// Store is the observable key-value layer the cache is built on.
//
// It plays the part of the host caching framework: the cache reads and writes
// values through it and, once an operation is complete, asks it to Notify the
// keys that changed. UI bindings (signals, hooks, explicit pub/sub) adapt to
// Subscribe.
//
// Values written by the cache are [Report], [Comment], [Stats], and []string
// (list views). The cache is the only writer; writing through the Store
// directly bypasses the cache's invariants.
type Store interface {
	Get(key Key) (Entry, bool)
	Set(key Key, value any)
	Tombstone(key Key)
	Delete(key Key)
	// Keys returns every stored key (tombstones included) accepted by match,
	// in unspecified order.
	Keys(match func(Key) bool) []Key
	Subscribe(key Key, fn Listener) (unsubscribe func())
	Notify(keys ...Key)
}

// NewMemStore returns an in-memory [Store]. It is safe for concurrent use.
func NewMemStore() Store {
	return &memStore{
		entries: make(map[Key]Entry),
		subs:    make(map[Key]map[uint64]Listener),
	}
}

type memStore struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	subs    map[Key]map[uint64]Listener
	nextSub uint64
}

func (s *memStore) Get(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]

	return e, ok
}

func (s *memStore) Set(key Key, value any) {
	s.mu.Lock()
	s.entries[key] = Entry{Value: value}
	s.mu.Unlock()
}

func (s *memStore) Tombstone(key Key) {
	s.mu.Lock()
	s.entries[key] = Entry{Tombstone: true}
	s.mu.Unlock()
}

func (s *memStore) Delete(key Key) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *memStore) Keys(match func(Key) bool) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []Key

	for k := range s.entries {
		if match == nil || match(k) {
			keys = append(keys, k)
		}
	}

	return keys
}

func (s *memStore) Subscribe(key Key, fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	id := s.nextSub

	if s.subs[key] == nil {
		s.subs[key] = make(map[uint64]Listener)
	}

	s.subs[key][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subs[key], id)

		if len(s.subs[key]) == 0 {
			delete(s.subs, key)
		}
	}
}

// Notify calls listeners key by key, in subscription order, without holding
// the store lock.
func (s *memStore) Notify(keys ...Key) {
	for _, key := range keys {
		s.mu.RLock()

		ids := make([]uint64, 0, len(s.subs[key]))
		for id := range s.subs[key] {
			ids = append(ids, id)
		}

		slices.Sort(ids)

		fns := make([]Listener, 0, len(ids))
		for _, id := range ids {
			fns = append(fns, s.subs[key][id])
		}

		s.mu.RUnlock()

		for _, fn := range fns {
			fn(key)
		}
	}
}
