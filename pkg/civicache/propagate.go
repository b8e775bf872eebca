package civicache

// PrependReport stores r and puts its ID first in every tracked report list
// whose filter it matches. Lists are never created here.
func (c *Cache) PrependReport(r Report) {
	c.begin("prepend_report")
	defer c.end()

	c.addReport(r, true)
}

// AppendReport is [Cache.PrependReport] inserting at the end.
func (c *Cache) AppendReport(r Report) {
	c.begin("append_report")
	defer c.end()

	c.addReport(r, false)
}

func (c *Cache) addReport(r Report, front bool) {
	c.putReport(r)

	stored, _ := c.report(r.ID)

	for _, key := range c.trackedLists(KindReport) {
		if Matches(stored, key.Filter) {
			c.insert(key, r.ID, front)
		}
	}
}

// PrependComment stores cm and puts its ID first in the tracked comment list
// of its report, if that list exists.
func (c *Cache) PrependComment(cm Comment) {
	c.begin("prepend_comment")
	defer c.end()

	c.addComment(cm, true)
}

// AppendComment is [Cache.PrependComment] inserting at the end.
func (c *Cache) AppendComment(cm Comment) {
	c.begin("append_comment")
	defer c.end()

	c.addComment(cm, false)
}

func (c *Cache) addComment(cm Comment, front bool) {
	c.putComment(cm)

	for _, key := range c.trackedLists(KindComment) {
		if matchesComment(cm, key) {
			c.insert(key, cm.ID, front)
		}
	}
}

// ApplyLikeDelta adjusts upvotes_count of a report or comment.
func (c *Cache) ApplyLikeDelta(kind Kind, id string, delta int) {
	c.begin("apply_like_delta")
	defer c.end()

	c.applyDelta("apply_like_delta", kind, id, FieldUpvotes, delta)
}

// ApplyCommentDelta adjusts a report's comments_count and nudges every
// report list holding the report so observers re-render. List membership
// does not depend on the count.
func (c *Cache) ApplyCommentDelta(reportID string, delta int) {
	c.begin("apply_comment_delta")
	defer c.end()

	c.applyCommentDelta("apply_comment_delta", reportID, delta)
}

func (c *Cache) applyCommentDelta(op, reportID string, delta int) bool {
	if !c.applyDelta(op, KindReport, reportID, FieldComments, delta) {
		return false
	}

	c.touchListsContaining(KindReport, reportID)

	return true
}
