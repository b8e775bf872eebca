package civicache

import (
	"slices"

	"go.uber.org/zap"
)

// SetStats replaces the stats aggregate with a freshly fetched one.
func (c *Cache) SetStats(s Stats) {
	c.begin("set_stats")
	defer c.end()

	c.set(StatsKey(), s.clone())
}

// Stats returns a copy of the stats aggregate.
func (c *Cache) Stats() (Stats, Presence) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, presence := lookup[Stats](c.store, StatsKey())

	return s.clone(), presence
}

// ApplyStatsDelta adjusts the stats aggregate, flooring every counter at
// zero. Skipped if stats were never fetched.
func (c *Cache) ApplyStatsDelta(d StatsDelta) {
	c.begin("apply_stats_delta")
	defer c.end()

	c.applyStatsDelta("apply_stats_delta", d)
}

func (c *Cache) applyStatsDelta(op string, d StatsDelta) bool {
	s, presence := lookup[Stats](c.store, StatsKey())
	if presence != Present {
		c.miss(op, StatsKey())

		return false
	}

	c.set(StatsKey(), s.apply(d))

	return true
}

// IsResolved reports whether status counts as resolved.
func (c *Cache) IsResolved(status string) bool {
	return status == c.resolvedStatus
}

// applyStatusTransition moves resolved_reports by one only when the
// transition crosses the resolved boundary.
func (c *Cache) applyStatusTransition(from, to string) {
	wasResolved, isResolved := c.IsResolved(from), c.IsResolved(to)

	switch {
	case !wasResolved && isResolved:
		c.applyStatsDelta("status_transition", StatsDelta{ResolvedReports: 1})
	case wasResolved && !isResolved:
		c.applyStatsDelta("status_transition", StatsDelta{ResolvedReports: -1})
	}
}

func (c *Cache) reportStatsDelta(r Report, sign int) StatsDelta {
	d := StatsDelta{
		TotalReports:  sign,
		Category:      r.Category,
		CategoryDelta: sign,
	}

	if c.IsResolved(r.Status) {
		d.ResolvedReports = sign
	}

	return d
}

// ReportCreated prepends a newly created report into matching lists and
// counts it in the stats aggregate.
func (c *Cache) ReportCreated(r Report) {
	c.begin("report_created")
	defer c.end()

	c.createReport(r)
}

func (c *Cache) createReport(r Report) {
	c.addReport(r, true)
	c.applyStatsDelta("report_created", c.reportStatsDelta(r, 1))
}

// ReportDeleted tombstones a report, removes it from every list, and
// uncounts it from the stats aggregate. Repeated calls uncount once.
func (c *Cache) ReportDeleted(id string) {
	c.begin("report_deleted")
	defer c.end()

	c.deleteReport(id)
}

func (c *Cache) deleteReport(id string) {
	r, presence := c.report(id)

	c.settle(DetailKey(KindReport, id), eventFail, "removed")

	if c.removeEntity(KindReport, id) && presence == Present {
		c.applyStatsDelta("report_deleted", c.reportStatsDelta(r, -1))
	}
}

// UserRegistered counts a new user.
func (c *Cache) UserRegistered() {
	c.begin("user_registered")
	defer c.end()

	c.applyStatsDelta("user_registered", StatsDelta{TotalUsers: 1})
}

// AddComment increments the parent report's comments_count, then appends
// the comment to its report's comment list.
func (c *Cache) AddComment(cm Comment) {
	c.begin("add_comment")
	defer c.end()

	c.createComment(cm)
}

// createComment counts cm against its parent unless it is already live, so
// a repeated add of the same comment counts once.
func (c *Cache) createComment(cm Comment) {
	if !c.commentCounted(cm.ReportID, cm.ID) {
		c.applyCommentDelta("add_comment", cm.ReportID, 1)
	}

	c.addComment(cm, false)
}

// commentCounted reports whether the comment is cached or listed under
// reportID, i.e. already included in the parent's comments_count.
func (c *Cache) commentCounted(reportID, commentID string) bool {
	if _, presence := c.comment(commentID); presence == Present {
		return true
	}

	ids, p := c.listIDs(CommentListKey(reportID))

	return p == Present && slices.Contains(ids, commentID)
}

// DeleteComment decrements the parent's comments_count and removes the
// comment. The decrement fires only while the comment is still cached or
// listed, so repeated calls decrement once. The parent named by the cached
// comment wins over reportID, which is only needed for comments that are
// listed but not cached.
func (c *Cache) DeleteComment(reportID, commentID string) {
	c.begin("delete_comment")
	defer c.end()

	c.deleteComment(reportID, commentID)
}

func (c *Cache) deleteComment(reportID, commentID string) {
	cm, presence := c.comment(commentID)
	if presence == Present && cm.ReportID != "" && cm.ReportID != reportID {
		if reportID != "" {
			c.log.Debug("comment parent mismatch",
				zap.String("comment", commentID),
				zap.String("given", reportID),
				zap.String("cached", cm.ReportID),
			)
		}

		reportID = cm.ReportID
	}

	if c.commentCounted(reportID, commentID) {
		c.applyCommentDelta("delete_comment", reportID, -1)
	}

	c.settle(DetailKey(KindComment, commentID), eventFail, "removed")
	c.removeEntity(KindComment, commentID)
}
