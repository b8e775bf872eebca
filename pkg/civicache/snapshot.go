package civicache

import "slices"

// Snapshot is a point-in-time copy of everything cached, for debugging and
// tests. It is not meant to be loaded back.
type Snapshot struct {
	Reports    []Report       `json:"reports"`
	Comments   []Comment      `json:"comments"`
	Lists      []ListSnapshot `json:"lists"`
	Tombstones []string       `json:"tombstones,omitempty"`
	Stats      *Stats         `json:"stats,omitempty"`
	Pending    []string       `json:"pending,omitempty"`
}

// ListSnapshot is one list view in a [Snapshot].
type ListSnapshot struct {
	Key string   `json:"key"`
	IDs []string `json:"ids"`
}

// Snapshot copies the current cache state, ordered by key.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Reports:  []Report{},
		Comments: []Comment{},
		Lists:    []ListSnapshot{},
	}

	keys := c.store.Keys(nil)
	sortKeys(keys)

	for _, key := range keys {
		e, _ := c.store.Get(key)
		if e.Tombstone {
			snap.Tombstones = append(snap.Tombstones, key.String())

			continue
		}

		switch v := e.Value.(type) {
		case Report:
			snap.Reports = append(snap.Reports, v)
		case Comment:
			snap.Comments = append(snap.Comments, v)
		case []string:
			snap.Lists = append(snap.Lists, ListSnapshot{Key: key.String(), IDs: slices.Clone(v)})
		case Stats:
			s := v.clone()
			snap.Stats = &s
		}
	}

	for key, p := range c.pending {
		if p.state() == StatePending {
			snap.Pending = append(snap.Pending, key.String())
		}
	}

	slices.Sort(snap.Pending)

	return snap
}
