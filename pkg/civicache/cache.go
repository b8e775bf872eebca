package civicache

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"
	"go.uber.org/zap"
)

// Cache is the normalized entity cache with its list index, stats aggregate,
// and optimistic-write bookkeeping.
//
// Create one with [New]. All methods are safe for concurrent use; each runs
// to completion before the next starts.
type Cache struct {
	mu sync.Mutex

	store     Store
	log       *zap.Logger
	metrics   *metrics
	normalize Normalizer
	clock     Clock

	graceWindow    time.Duration
	pendingTTL     time.Duration
	resolvedStatus string
	tempIDPrefix   string

	lifecycle *statekit.MachineConfig[*pendingEntity]
	pending   map[Key]*pendingEntity
	retiring  map[Key]Timer

	// dirty collects keys written by the running operation; they are
	// notified once the lock is released.
	dirty []Key
}

// New returns an empty cache.
func New(opts Options) (*Cache, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}

	opts = opts.withDefaults()

	machine, err := newLifecycleMachine()
	if err != nil {
		return nil, fmt.Errorf("civicache: building lifecycle machine: %w", err)
	}

	return &Cache{
		store:          opts.Store,
		log:            opts.Logger,
		metrics:        newMetrics(opts.Registerer),
		normalize:      opts.Normalizer,
		clock:          opts.Clock,
		graceWindow:    opts.GraceWindow,
		pendingTTL:     opts.PendingTTL,
		resolvedStatus: opts.ResolvedStatus,
		tempIDPrefix:   opts.TempIDPrefix,
		lifecycle:      machine,
		pending:        make(map[Key]*pendingEntity),
		retiring:       make(map[Key]Timer),
	}, nil
}

// Store returns the underlying store, for subscribing.
func (c *Cache) Store() Store {
	return c.store
}

// Subscribe is shorthand for c.Store().Subscribe.
func (c *Cache) Subscribe(key Key, fn Listener) (unsubscribe func()) {
	return c.store.Subscribe(key, fn)
}

// begin locks the cache for one operation. Every begin is paired with a
// deferred end.
func (c *Cache) begin(op string) {
	c.mu.Lock()
	c.metrics.ops.WithLabelValues(op).Inc()
}

// end unlocks and notifies every key the operation wrote, in write order.
func (c *Cache) end() {
	keys := c.dirty
	c.dirty = nil
	c.mu.Unlock()

	if len(keys) > 0 {
		c.store.Notify(dedupeKeys(keys)...)
	}
}

func (c *Cache) miss(op string, key Key) {
	c.metrics.misses.WithLabelValues(op).Inc()
	c.log.Debug("cache miss", zap.String("op", op), zap.Stringer("key", key))
}

func (c *Cache) set(key Key, value any) {
	c.store.Set(key, value)
	c.dirty = append(c.dirty, key)
}

func (c *Cache) tombstone(key Key) {
	c.store.Tombstone(key)
	c.dirty = append(c.dirty, key)
}

func (c *Cache) drop(key Key) {
	if _, ok := c.store.Get(key); !ok {
		return
	}

	c.store.Delete(key)
	c.dirty = append(c.dirty, key)
}

// touch marks key changed without writing it, so observers re-render.
func (c *Cache) touch(key Key) {
	c.dirty = append(c.dirty, key)
}

// lookup reads a typed value. A value of the wrong type reads as Unknown.
func lookup[T any](s Store, key Key) (T, Presence) {
	var zero T

	e, ok := s.Get(key)
	if !ok {
		return zero, Unknown
	}

	if e.Tombstone {
		return zero, Gone
	}

	v, ok := e.Value.(T)
	if !ok {
		return zero, Unknown
	}

	return v, Present
}

func (c *Cache) report(id string) (Report, Presence) {
	return lookup[Report](c.store, DetailKey(KindReport, id))
}

func (c *Cache) comment(id string) (Comment, Presence) {
	return lookup[Comment](c.store, DetailKey(KindComment, id))
}

func (c *Cache) listIDs(key Key) ([]string, Presence) {
	return lookup[[]string](c.store, key)
}

func dedupeKeys(keys []Key) []Key {
	seen := make(map[Key]struct{}, len(keys))
	out := keys[:0:0]

	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, k)
	}

	return out
}

func sortKeys(keys []Key) {
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Compare(a.String(), b.String())
	})
}
