package civicache

import (
	"time"

	"go.uber.org/zap"
)

// ReportPatch is a partial report update. Nil fields are left unchanged.
type ReportPatch struct {
	AuthorID      *string    `json:"author_id,omitempty"`
	AuthorName    *string    `json:"author_name,omitempty"`
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Category      *string    `json:"category,omitempty"`
	Status        *string    `json:"status,omitempty"`
	Zone          *string    `json:"zone,omitempty"`
	Lat           *float64   `json:"lat,omitempty"`
	Lng           *float64   `json:"lng,omitempty"`
	UpvotesCount  *int       `json:"upvotes_count,omitempty"`
	CommentsCount *int       `json:"comments_count,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Apply merges p into r.
func (p ReportPatch) Apply(r Report) Report {
	setIf(&r.AuthorID, p.AuthorID)
	setIf(&r.AuthorName, p.AuthorName)
	setIf(&r.Title, p.Title)
	setIf(&r.Description, p.Description)
	setIf(&r.Category, p.Category)
	setIf(&r.Status, p.Status)
	setIf(&r.Zone, p.Zone)
	setIf(&r.Lat, p.Lat)
	setIf(&r.Lng, p.Lng)
	setIf(&r.UpvotesCount, p.UpvotesCount)
	setIf(&r.CommentsCount, p.CommentsCount)
	setIf(&r.CreatedAt, p.CreatedAt)

	return r
}

// CommentPatch is a partial comment update. Nil fields are left unchanged.
type CommentPatch struct {
	AuthorID     *string    `json:"author_id,omitempty"`
	AuthorName   *string    `json:"author_name,omitempty"`
	Body         *string    `json:"body,omitempty"`
	UpvotesCount *int       `json:"upvotes_count,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// Apply merges p into c.
func (p CommentPatch) Apply(c Comment) Comment {
	setIf(&c.AuthorID, p.AuthorID)
	setIf(&c.AuthorName, p.AuthorName)
	setIf(&c.Body, p.Body)
	setIf(&c.UpvotesCount, p.UpvotesCount)
	setIf(&c.CreatedAt, p.CreatedAt)

	return c
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// StoreReport upserts r (normalized) and returns its ID. Lists are not
// touched.
func (c *Cache) StoreReport(r Report) string {
	c.begin("store_report")
	defer c.end()

	c.putReport(r)

	return r.ID
}

// StoreComment upserts cm (normalized) and returns its ID. Lists are not
// touched.
func (c *Cache) StoreComment(cm Comment) string {
	c.begin("store_comment")
	defer c.end()

	c.putComment(cm)

	return cm.ID
}

func (c *Cache) putReport(r Report) {
	r.UpvotesCount = max(r.UpvotesCount, 0)
	r.CommentsCount = max(r.CommentsCount, 0)
	c.set(DetailKey(KindReport, r.ID), c.normalize.NormalizeReport(r))
}

func (c *Cache) putComment(cm Comment) {
	cm.UpvotesCount = max(cm.UpvotesCount, 0)
	c.set(DetailKey(KindComment, cm.ID), c.normalize.NormalizeComment(cm))
}

// Report returns the cached report and what the cache knows about it.
func (c *Cache) Report(id string) (Report, Presence) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.report(id)
}

// Comment returns the cached comment and what the cache knows about it.
func (c *Cache) Comment(id string) (Comment, Presence) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.comment(id)
}

// PatchReport merges p into the cached report. If the report is not cached
// the patch is skipped.
//
// A status change runs the resolved-boundary stats rule, and a change of any
// field a list filters on re-evaluates list membership.
func (c *Cache) PatchReport(id string, p ReportPatch) {
	c.begin("patch_report")
	defer c.end()

	c.updateReport("patch_report", id, p.Apply)
}

// UpdateReport is [Cache.PatchReport] with a function of the old value.
// The function must not change the ID; it is restored if it does.
func (c *Cache) UpdateReport(id string, fn func(Report) Report) {
	c.begin("update_report")
	defer c.end()

	c.updateReport("update_report", id, fn)
}

// SetReportStatus is shorthand for patching only the status.
func (c *Cache) SetReportStatus(id, status string) {
	c.begin("set_report_status")
	defer c.end()

	c.updateReport("set_report_status", id, ReportPatch{Status: &status}.Apply)
}

func (c *Cache) updateReport(op, id string, fn func(Report) Report) bool {
	key := DetailKey(KindReport, id)

	old, presence := c.report(id)
	if presence != Present {
		c.miss(op, key)

		return false
	}

	next := fn(old)
	next.ID = id
	next.UpvotesCount = max(next.UpvotesCount, 0)
	next.CommentsCount = max(next.CommentsCount, 0)

	if reportNeedsNormalize(old, next) {
		next = c.normalize.NormalizeReport(next)
	}

	c.set(key, next)

	if filterFieldsChanged(old, next) {
		c.reindexReport(next)
	}

	if old.Status != next.Status {
		c.applyStatusTransition(old.Status, next.Status)
	}

	return true
}

// PatchComment merges p into the cached comment. If the comment is not
// cached the patch is skipped.
func (c *Cache) PatchComment(id string, p CommentPatch) {
	c.begin("patch_comment")
	defer c.end()

	c.updateComment("patch_comment", id, p.Apply)
}

// UpdateComment is [Cache.PatchComment] with a function of the old value.
// ID and ReportID are restored if the function changes them.
func (c *Cache) UpdateComment(id string, fn func(Comment) Comment) {
	c.begin("update_comment")
	defer c.end()

	c.updateComment("update_comment", id, fn)
}

func (c *Cache) updateComment(op, id string, fn func(Comment) Comment) bool {
	key := DetailKey(KindComment, id)

	old, presence := c.comment(id)
	if presence != Present {
		c.miss(op, key)

		return false
	}

	next := fn(old)
	next.ID = id
	next.ReportID = old.ReportID
	next.UpvotesCount = max(next.UpvotesCount, 0)

	if commentNeedsNormalize(old, next) {
		next = c.normalize.NormalizeComment(next)
	}

	c.set(key, next)

	return true
}

// ApplyDelta adds delta to a counter field of a cached entity, flooring at
// zero. Reports accept [FieldUpvotes] and [FieldComments]; comments accept
// [FieldUpvotes]. Anything else, or an uncached entity, is skipped.
func (c *Cache) ApplyDelta(kind Kind, id, field string, delta int) {
	c.begin("apply_delta")
	defer c.end()

	c.applyDelta("apply_delta", kind, id, field, delta)
}

func (c *Cache) applyDelta(op string, kind Kind, id, field string, delta int) bool {
	key := DetailKey(kind, id)

	switch kind {
	case KindReport:
		r, presence := c.report(id)
		if presence != Present {
			c.miss(op, key)

			return false
		}

		v, ok := r.counter(field)
		if !ok {
			c.log.Debug("unknown counter", zap.String("op", op), zap.Stringer("key", key), zap.String("field", field))

			return false
		}

		c.set(key, r.withCounter(field, clampAdd(v, delta)))

	case KindComment:
		cm, presence := c.comment(id)
		if presence != Present {
			c.miss(op, key)

			return false
		}

		v, ok := cm.counter(field)
		if !ok {
			c.log.Debug("unknown counter", zap.String("op", op), zap.Stringer("key", key), zap.String("field", field))

			return false
		}

		c.set(key, cm.withCounter(field, clampAdd(v, delta)))

	default:
		c.log.Debug("delta on unsupported kind", zap.String("op", op), zap.String("kind", string(kind)))

		return false
	}

	return true
}

// RemoveReport tombstones the report and removes it from every report list.
// Stats are not adjusted; see [Cache.ReportDeleted].
func (c *Cache) RemoveReport(id string) {
	c.begin("remove_report")
	defer c.end()

	c.removeEntity(KindReport, id)
}

// RemoveComment tombstones the comment and removes it from every comment
// list. The parent's comments_count is not adjusted; see
// [Cache.DeleteComment].
func (c *Cache) RemoveComment(id string) {
	c.begin("remove_comment")
	defer c.end()

	c.removeEntity(KindComment, id)
}

// removeEntity tombstones the detail record and excises id from every list
// of kind. It reports whether the record was live before.
func (c *Cache) removeEntity(kind Kind, id string) bool {
	key := DetailKey(kind, id)

	e, ok := c.store.Get(key)
	wasLive := ok && !e.Tombstone

	if !ok || wasLive {
		c.tombstone(key)
	}

	c.excise(kind, id)

	return wasLive
}

// forgetEntity removes the detail record outright (no tombstone) and excises
// id from every list of kind.
func (c *Cache) forgetEntity(kind Kind, id string) {
	c.drop(DetailKey(kind, id))
	c.excise(kind, id)
}

// HydrateReports projects list IDs into reports, skipping IDs that are not
// live in the cache.
func (c *Cache) HydrateReports(ids []string) []Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Report, 0, len(ids))

	for _, id := range ids {
		if r, presence := c.report(id); presence == Present {
			out = append(out, r)
		}
	}

	return out
}

// HydrateComments projects list IDs into comments, skipping IDs that are not
// live in the cache.
func (c *Cache) HydrateComments(ids []string) []Comment {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Comment, 0, len(ids))

	for _, id := range ids {
		if cm, presence := c.comment(id); presence == Present {
			out = append(out, cm)
		}
	}

	return out
}

func filterFieldsChanged(a, b Report) bool {
	return a.Category != b.Category ||
		a.Status != b.Status ||
		a.Zone != b.Zone ||
		a.Lat != b.Lat ||
		a.Lng != b.Lng ||
		a.Title != b.Title ||
		a.Description != b.Description
}
