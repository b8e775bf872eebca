package civicache

import (
	"time"

	"github.com/felixgeelhaar/statekit"
	"go.uber.org/zap"
)

// LifecycleState is the reconciliation state of an optimistic entity.
type LifecycleState string

// Lifecycle states. Confirmed and Failed are final.
const (
	StatePending   LifecycleState = "pending"
	StateConfirmed LifecycleState = "confirmed"
	StateFailed    LifecycleState = "failed"
)

const (
	statePending   = statekit.StateID(StatePending)
	stateConfirmed = statekit.StateID(StateConfirmed)
	stateFailed    = statekit.StateID(StateFailed)
)

const (
	eventConfirm statekit.EventType = "CONFIRM"
	eventFail    statekit.EventType = "FAIL"
)

// pendingEntity tracks one optimistic entity from creation until it settles.
type pendingEntity struct {
	key       Key
	parentID  string
	createdAt time.Time
	reason    string
	interp    *statekit.Interpreter[*pendingEntity]
	expiry    Timer
}

func (p *pendingEntity) state() LifecycleState {
	return LifecycleState(p.interp.State().Value)
}

// newLifecycleMachine builds the pending → confirmed | failed statechart.
func newLifecycleMachine() (*statekit.MachineConfig[*pendingEntity], error) {
	return statekit.NewMachine[*pendingEntity]("optimistic").
		WithInitial(statePending).
		WithContext(&pendingEntity{}).
		WithAction("recordReason", recordReason).
		State(statePending).
			On(eventConfirm).Target(stateConfirmed).Do("recordReason").
			On(eventFail).Target(stateFailed).Do("recordReason").
			Done().
		State(stateConfirmed).
			Final().
			Done().
		State(stateFailed).
			Final().
			Done().
		Build()
}

// recordReason keeps the settle reason carried in the event payload.
func recordReason(ctx **pendingEntity, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}

	if reason, ok := event.Payload.(string); ok {
		(*ctx).reason = reason
	}
}

// track starts the lifecycle of a freshly created optimistic entity.
func (c *Cache) track(key Key, parentID string) {
	if _, ok := c.pending[key]; ok {
		return
	}

	p := &pendingEntity{
		key:       key,
		parentID:  parentID,
		createdAt: c.clock.Now(),
	}

	interp := statekit.NewInterpreter(c.lifecycle)
	interp.UpdateContext(func(ctx **pendingEntity) {
		*ctx = p
	})
	interp.Start()

	p.interp = interp

	if c.pendingTTL > 0 {
		p.expiry = c.clock.AfterFunc(c.pendingTTL, func() { c.expire(key) })
	}

	c.pending[key] = p
	c.metrics.pending.Inc()
}

// settle sends the final event to a pending entity. Failed entities are
// forgotten right away; confirmed ones stay queryable until their old
// detail record is retired.
func (c *Cache) settle(key Key, event statekit.EventType, reason string) {
	p, ok := c.pending[key]
	if !ok || p.interp.Done() {
		return
	}

	p.interp.Send(statekit.Event{Type: event, Payload: reason})

	if p.expiry != nil {
		p.expiry.Stop()
		p.expiry = nil
	}

	c.metrics.pending.Dec()

	if event == eventFail {
		delete(c.pending, key)
		c.metrics.failed.WithLabelValues(reason).Inc()
		c.log.Info("optimistic entity failed", zap.Stringer("key", key), zap.String("reason", reason))
	}
}

// PendingState returns the lifecycle state of an optimistic entity. It
// reports false for entities that were never optimistic, that failed, or
// whose grace window after confirmation has passed.
func (c *Cache) PendingState(kind Kind, id string) (LifecycleState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[DetailKey(kind, id)]
	if !ok {
		return "", false
	}

	return p.state(), true
}

// Pending returns the keys of every entity still awaiting confirmation,
// sorted by [Key.String].
func (c *Cache) Pending() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []Key

	for key, p := range c.pending {
		if p.state() == StatePending {
			keys = append(keys, key)
		}
	}

	sortKeys(keys)

	return keys
}

func (c *Cache) expire(key Key) {
	c.begin("expire_pending")
	defer c.end()

	p, ok := c.pending[key]
	if !ok || p.state() != StatePending {
		return
	}

	c.failPending(key, "expired")
}

// ExpirePending fails every pending entity older than the configured
// PendingTTL and returns how many it failed. It does nothing when expiry is
// disabled.
func (c *Cache) ExpirePending() int {
	c.begin("expire_pending")
	defer c.end()

	if c.pendingTTL <= 0 {
		return 0
	}

	now := c.clock.Now()

	var stale []Key

	for key, p := range c.pending {
		if p.state() == StatePending && !now.Before(p.createdAt.Add(c.pendingTTL)) {
			stale = append(stale, key)
		}
	}

	sortKeys(stale)

	for _, key := range stale {
		c.failPending(key, "expired")
	}

	return len(stale)
}
