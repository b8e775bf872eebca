package civicache

import "slices"

// SetReportList (re)populates a report list from a fetch: every report is
// stored, then the list is replaced by their IDs in order, duplicates
// dropped. It returns the list's key.
func (c *Cache) SetReportList(query string, filter Filter, reports []Report) Key {
	c.begin("set_report_list")
	defer c.end()

	key := ReportListKey(query, filter)
	ids := make([]string, 0, len(reports))

	for _, r := range reports {
		c.putReport(r)
		ids = append(ids, r.ID)
	}

	c.set(key, uniqueIDs(ids))

	return key
}

// SetCommentList (re)populates the comment list of a report from a fetch.
// Comments without a ReportID are attributed to reportID.
func (c *Cache) SetCommentList(reportID string, comments []Comment) Key {
	c.begin("set_comment_list")
	defer c.end()

	key := CommentListKey(reportID)
	ids := make([]string, 0, len(comments))

	for _, cm := range comments {
		if cm.ReportID == "" {
			cm.ReportID = reportID
		}

		c.putComment(cm)
		ids = append(ids, cm.ID)
	}

	c.set(key, uniqueIDs(ids))

	return key
}

// ReportList returns the IDs of a report list.
func (c *Cache) ReportList(query string, filter Filter) ([]string, Presence) {
	return c.List(ReportListKey(query, filter))
}

// CommentList returns the IDs of a report's comment list.
func (c *Cache) CommentList(reportID string) ([]string, Presence) {
	return c.List(CommentListKey(reportID))
}

// List returns a copy of the IDs stored under a list key.
func (c *Cache) List(key Key) ([]string, Presence) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, presence := c.listIDs(key)

	return slices.Clone(ids), presence
}

// EvictList drops a list view. The host framework calls this once the last
// observer of the list is gone.
func (c *Cache) EvictList(key Key) {
	c.begin("evict_list")
	defer c.end()

	if !key.List {
		return
	}

	c.drop(key)
}

// TrackedLists returns the keys of every live list of kind, sorted by
// [Key.String].
func (c *Cache) TrackedLists(kind Kind) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.trackedLists(kind)
}

func (c *Cache) trackedLists(kind Kind) []Key {
	keys := c.store.Keys(func(k Key) bool {
		return k.List && k.Kind == kind
	})

	keys = slices.DeleteFunc(keys, func(k Key) bool {
		_, presence := c.listIDs(k)

		return presence != Present
	})

	sortKeys(keys)

	return keys
}

// insert adds id to the front or back of the list unless it is already
// there. It reports whether the list changed.
func (c *Cache) insert(key Key, id string, front bool) bool {
	ids, presence := c.listIDs(key)
	if presence != Present || slices.Contains(ids, id) {
		return false
	}

	next := make([]string, 0, len(ids)+1)

	if front {
		next = append(next, id)
		next = append(next, ids...)
	} else {
		next = append(next, ids...)
		next = append(next, id)
	}

	c.set(key, next)

	return true
}

// excise removes id from every list of kind.
func (c *Cache) excise(kind Kind, id string) {
	for _, key := range c.trackedLists(kind) {
		c.removeFromList(key, id)
	}
}

func (c *Cache) removeFromList(key Key, id string) bool {
	ids, _ := c.listIDs(key)
	if !slices.Contains(ids, id) {
		return false
	}

	c.set(key, slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return s == id }))

	return true
}

// replaceInLists substitutes newID for oldID in place in every list of kind
// accepted by match (nil accepts all). If a list already holds newID the
// old entry is dropped instead, so no ID appears twice.
func (c *Cache) replaceInLists(kind Kind, oldID, newID string, match func(Key) bool) int {
	changed := 0

	for _, key := range c.trackedLists(kind) {
		if match != nil && !match(key) {
			continue
		}

		ids, _ := c.listIDs(key)

		idx := slices.Index(ids, oldID)
		if idx < 0 {
			continue
		}

		next := slices.Clone(ids)

		if slices.Contains(ids, newID) {
			next = slices.Delete(next, idx, idx+1)
		} else {
			next[idx] = newID
		}

		c.set(key, next)
		changed++
	}

	return changed
}

// touchListsContaining nudges observers of every list of kind holding id.
// Membership does not change.
func (c *Cache) touchListsContaining(kind Kind, id string) {
	for _, key := range c.trackedLists(kind) {
		ids, _ := c.listIDs(key)
		if slices.Contains(ids, id) {
			c.touch(key)
		}
	}
}

// reindexReport re-evaluates r's membership in every tracked report list
// after a filter-relevant field changed: lists that stopped matching lose
// it, lists that started matching get it prepended.
func (c *Cache) reindexReport(r Report) {
	for _, key := range c.trackedLists(KindReport) {
		ids, _ := c.listIDs(key)
		has := slices.Contains(ids, r.ID)
		match := Matches(r, key.Filter)

		switch {
		case has && !match:
			c.removeFromList(key, r.ID)
		case !has && match:
			c.insert(key, r.ID, true)
		}
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
