package civicache

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewTempID returns a fresh client-side ID for an optimistic entity.
func (c *Cache) NewTempID() string {
	return c.tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was produced by [Cache.NewTempID].
func (c *Cache) IsTempID(id string) bool {
	return strings.HasPrefix(id, c.tempIDPrefix)
}

// CreatePendingReport inserts a report before the server has acknowledged
// it: it gets a temporary ID (unless r.ID is set), is flagged optimistic,
// prepended into matching lists, and counted in stats. It returns the ID.
func (c *Cache) CreatePendingReport(r Report) string {
	c.begin("create_pending_report")
	defer c.end()

	if r.ID == "" {
		r.ID = c.NewTempID()
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = c.clock.Now()
	}

	r.Optimistic = true

	c.createReport(r)
	c.track(DetailKey(KindReport, r.ID), "")

	return r.ID
}

// CreatePendingComment inserts a comment before the server has acknowledged
// it, incrementing the parent's comments_count. It returns the ID.
func (c *Cache) CreatePendingComment(cm Comment) string {
	c.begin("create_pending_comment")
	defer c.end()

	if cm.ID == "" {
		cm.ID = c.NewTempID()
	}

	if cm.CreatedAt.IsZero() {
		cm.CreatedAt = c.clock.Now()
	}

	cm.Optimistic = true

	c.createComment(cm)
	c.track(DetailKey(KindComment, cm.ID), cm.ReportID)

	return cm.ID
}

// ConfirmReport swaps a report's temporary ID for the server-issued one.
func (c *Cache) ConfirmReport(tempID, serverID string) {
	c.SwapID(KindReport, tempID, serverID, "")
}

// ConfirmComment swaps a comment's temporary ID for the server-issued one.
func (c *Cache) ConfirmComment(tempID, serverID string) {
	c.SwapID(KindComment, tempID, serverID, "")
}

// SwapID replaces oldID with newID everywhere it is referenced.
//
// The detail record is copied under newID with the optimistic flag cleared,
// and every list of kind holding oldID gets newID at the same position. The
// record under oldID stays readable for the grace window, so a render pass
// still holding oldID does not see a hole, and is deleted afterwards.
//
// For comments, parentID limits the list rewrite to that report's list; it
// may be empty. Swapping an ID for itself does nothing.
func (c *Cache) SwapID(kind Kind, oldID, newID, parentID string) {
	c.begin("swap_id")
	defer c.end()

	c.swapID(kind, oldID, newID, parentID)
}

func (c *Cache) swapID(kind Kind, oldID, newID, parentID string) {
	if oldID == newID || newID == "" {
		return
	}

	oldKey, newKey := DetailKey(kind, oldID), DetailKey(kind, newID)

	switch kind {
	case KindReport:
		if r, presence := c.report(oldID); presence == Present {
			r.ID = newID
			r.Optimistic = false
			c.set(newKey, r)
		}

	case KindComment:
		if cm, presence := c.comment(oldID); presence == Present {
			cm.ID = newID
			cm.Optimistic = false
			c.set(newKey, cm)
		}

	default:
		c.log.Debug("swap on unsupported kind", zap.String("kind", string(kind)))

		return
	}

	var match func(Key) bool
	if kind == KindComment && parentID != "" {
		match = func(k Key) bool { return k.ID == parentID }
	}

	rewritten := c.replaceInLists(kind, oldID, newID, match)

	c.settle(oldKey, eventConfirm, "confirmed")
	c.metrics.swaps.Inc()
	c.log.Info("swapped temporary id",
		zap.Stringer("old", oldKey),
		zap.Stringer("new", newKey),
		zap.Int("lists", rewritten),
	)

	c.retire(oldKey)
}

// retire schedules deletion of a swapped-out detail record after the grace
// window.
func (c *Cache) retire(key Key) {
	if t, ok := c.retiring[key]; ok {
		t.Stop()
		delete(c.retiring, key)
	}

	if c.graceWindow <= 0 {
		c.finishRetire(key)

		return
	}

	c.retiring[key] = c.clock.AfterFunc(c.graceWindow, func() {
		c.begin("retire")
		defer c.end()

		delete(c.retiring, key)
		c.finishRetire(key)
	})
}

func (c *Cache) finishRetire(key Key) {
	delete(c.pending, key)

	if e, ok := c.store.Get(key); ok && !e.Tombstone {
		c.drop(key)
	}
}

// FailPending rolls back an optimistic entity whose request failed: the
// detail record and every list reference are removed at once, and the
// counters its creation bumped are decremented again. It does nothing for
// entities that are not pending: confirmed ones, already failed ones, and
// records that were never optimistic.
func (c *Cache) FailPending(kind Kind, id string) {
	c.begin("fail_pending")
	defer c.end()

	c.failPending(DetailKey(kind, id), "failed")
}

// failPending rolls back key only while it is still pending. Confirmed
// entities and records that were never optimistic are left alone.
func (c *Cache) failPending(key Key, reason string) {
	if p, ok := c.pending[key]; !ok || p.state() != StatePending {
		c.log.Debug("fail on entity not pending", zap.Stringer("key", key), zap.String("reason", reason))

		return
	}

	switch key.Kind {
	case KindReport:
		if r, presence := c.report(key.ID); presence == Present {
			c.applyStatsDelta("fail_pending", c.reportStatsDelta(r, -1))
		}

	case KindComment:
		cm, _ := c.comment(key.ID)

		parentID := cm.ReportID
		if p, ok := c.pending[key]; ok && p.parentID != "" {
			parentID = p.parentID
		}

		if c.commentCounted(parentID, key.ID) {
			c.applyCommentDelta("fail_pending", parentID, -1)
		}

	default:
		return
	}

	c.settle(key, eventFail, reason)
	c.forgetEntity(key.Kind, key.ID)
}

// Close stops every expiry and grace-window timer. Records awaiting
// retirement stay in the cache.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, t := range c.retiring {
		t.Stop()
		delete(c.retiring, key)
	}

	for _, p := range c.pending {
		if p.expiry != nil {
			p.expiry.Stop()
			p.expiry = nil
		}
	}
}
