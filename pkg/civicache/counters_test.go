package civicache_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/civicache/pkg/civicache"
)

func mustStats(t *testing.T, c *testCache) civicache.Stats {
	t.Helper()

	s, presence := c.Stats()
	if presence != civicache.Present {
		t.Fatalf("stats presence = %s, want present", presence)
	}

	return s
}

func Test_SetReportStatus_Moves_Resolved_Count_Only_When_Crossing_Boundary(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	c.SetStats(civicache.Stats{TotalReports: 10, ResolvedReports: 3})
	c.StoreReport(newReport("r-1", 0, 0))

	c.SetReportStatus("r-1", civicache.StatusInProgress)
	assert.Equal(t, 3, mustStats(t, c).ResolvedReports, "pendiente -> en_progreso")

	c.SetReportStatus("r-1", civicache.StatusResolved)
	assert.Equal(t, 4, mustStats(t, c).ResolvedReports, "en_progreso -> resuelto")

	c.SetReportStatus("r-1", civicache.StatusResolved)
	assert.Equal(t, 4, mustStats(t, c).ResolvedReports, "resuelto -> resuelto")

	c.SetReportStatus("r-1", civicache.StatusInProgress)
	assert.Equal(t, 3, mustStats(t, c).ResolvedReports, "resuelto -> en_progreso")

	assert.Equal(t, 10, mustStats(t, c).TotalReports)
}

func Test_SetReportStatus_Uses_Configured_Resolved_Status(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, func(o *civicache.Options) { o.ResolvedStatus = civicache.StatusArchived })
	c.SetStats(civicache.Stats{ResolvedReports: 1})
	c.StoreReport(newReport("r-1", 0, 0))

	c.SetReportStatus("r-1", civicache.StatusResolved)
	assert.Equal(t, 1, mustStats(t, c).ResolvedReports)

	c.SetReportStatus("r-1", civicache.StatusArchived)
	assert.Equal(t, 2, mustStats(t, c).ResolvedReports)
	assert.True(t, c.IsResolved(civicache.StatusArchived))
}

func Test_ApplyStatsDelta_Is_Skipped_When_Stats_Never_Fetched(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	c.UserRegistered()
	c.ApplyStatsDelta(civicache.StatsDelta{TotalReports: 1})

	_, presence := c.Stats()
	assert.Equal(t, civicache.Unknown, presence)
	assert.Equal(t, 2, c.logs.FilterMessage("cache miss").Len())
}

func Test_ApplyStatsDelta_Floors_Counters_At_Zero(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	c.SetStats(civicache.Stats{TotalReports: 1, ByCategory: map[string]int{"baches": 1}})

	c.ApplyStatsDelta(civicache.StatsDelta{TotalReports: -3, ResolvedReports: -1, Category: "baches", CategoryDelta: -2})
	c.UserRegistered()

	want := civicache.Stats{TotalUsers: 1, ByCategory: map[string]int{"baches": 0}}
	if diff := cmp.Diff(want, mustStats(t, c)); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
}

func Test_Stats_Returns_Copy_When_Caller_Mutates_Categories(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	in := civicache.Stats{ByCategory: map[string]int{"baches": 2}}
	c.SetStats(in)

	in.ByCategory["baches"] = 99
	got := mustStats(t, c)
	got.ByCategory["baches"] = 42

	assert.Equal(t, 2, mustStats(t, c).ByCategory["baches"])
}

func Test_ReportCreated_And_ReportDeleted_Are_Symmetric(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	c.SetStats(civicache.Stats{TotalReports: 5, ResolvedReports: 2, ByCategory: map[string]int{"baches": 3}})
	all := c.SetReportList("all", civicache.Filter{Discriminator: "all"}, []civicache.Report{newReport("r-1", 0, 0)})

	r := newReport("r-2", 0, 0)
	r.Status = civicache.StatusResolved
	c.ReportCreated(r)

	s := mustStats(t, c)
	assert.Equal(t, 6, s.TotalReports)
	assert.Equal(t, 3, s.ResolvedReports)
	assert.Equal(t, 4, s.ByCategory["baches"])
	assert.Equal(t, []string{"r-2", "r-1"}, mustList(t, c, all))

	c.ReportDeleted("r-2")
	c.ReportDeleted("r-2")

	s = mustStats(t, c)
	assert.Equal(t, 5, s.TotalReports)
	assert.Equal(t, 2, s.ResolvedReports)
	assert.Equal(t, 3, s.ByCategory["baches"])
	assert.Equal(t, []string{"r-1"}, mustList(t, c, all))

	_, presence := c.Report("r-2")
	assert.Equal(t, civicache.Gone, presence)
}

func Test_AddComment_And_DeleteComment_Keep_Count_Symmetric(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	r := newReport("r-42", 0, 0)
	r.CommentsCount = 5
	c.StoreReport(r)
	c.SetCommentList("r-42", []civicache.Comment{{ID: "c-1"}})

	c.AddComment(civicache.Comment{ID: "c-2", ReportID: "r-42", Body: "yo también"})

	assert.Equal(t, 6, mustReport(t, c, "r-42").CommentsCount)
	ids, _ := c.CommentList("r-42")
	assert.Equal(t, []string{"c-1", "c-2"}, ids)

	c.DeleteComment("r-42", "c-2")
	c.DeleteComment("r-42", "c-2")

	assert.Equal(t, 5, mustReport(t, c, "r-42").CommentsCount)
	ids, _ = c.CommentList("r-42")
	assert.Equal(t, []string{"c-1"}, ids)

	_, presence := c.Comment("c-2")
	assert.Equal(t, civicache.Gone, presence)
}

func Test_DeleteComment_Resolves_Parent_When_ReportID_Is_Empty(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	r := newReport("r-1", 0, 0)
	r.CommentsCount = 1
	c.StoreReport(r)
	c.StoreComment(civicache.Comment{ID: "c-1", ReportID: "r-1"})

	c.DeleteComment("", "c-1")

	assert.Zero(t, mustReport(t, c, "r-1").CommentsCount)
}

func Test_AddComment_Still_Stores_Comment_When_Parent_Not_Cached(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	c.SetCommentList("r-9", nil)

	c.AddComment(civicache.Comment{ID: "c-1", ReportID: "r-9"})

	ids, _ := c.CommentList("r-9")
	require.Equal(t, []string{"c-1"}, ids)
	assert.Equal(t, 1, c.logs.FilterMessage("cache miss").Len())
}

func Test_AddComment_Counts_Once_When_Same_Comment_Added_Twice(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	c.StoreReport(newReport("r-1", 0, 0))
	c.SetCommentList("r-1", nil)

	cm := civicache.Comment{ID: "c-1", ReportID: "r-1", Body: "Ya lo vi"}
	c.AddComment(cm)
	c.AddComment(cm)

	ids, _ := c.CommentList("r-1")
	assert.Equal(t, []string{"c-1"}, ids)
	assert.Equal(t, 1, mustReport(t, c, "r-1").CommentsCount)

	c.DeleteComment("r-1", "c-1")

	assert.Zero(t, mustReport(t, c, "r-1").CommentsCount)
}

func Test_DeleteComment_Uses_Cached_Parent_When_ReportID_Disagrees(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	for _, id := range []string{"r-1", "r-2"} {
		r := newReport(id, 0, 0)
		r.CommentsCount = 3
		c.StoreReport(r)
	}

	c.StoreComment(civicache.Comment{ID: "c-1", ReportID: "r-1"})

	c.DeleteComment("r-2", "c-1")

	assert.Equal(t, 2, mustReport(t, c, "r-1").CommentsCount)
	assert.Equal(t, 3, mustReport(t, c, "r-2").CommentsCount)
	assert.Equal(t, 1, c.logs.FilterMessage("comment parent mismatch").Len())
}
