package replay_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/civicache/internal/replay"
	"github.com/calvinalkan/civicache/internal/vclock"
	"github.com/calvinalkan/civicache/pkg/civicache"
)

func newPlayer(t *testing.T) (*replay.Player, *civicache.Cache) {
	t.Helper()

	clock := vclock.NewClock()

	c, err := civicache.New(civicache.Options{Clock: clock, GraceWindow: time.Second})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return replay.NewPlayer(c, clock, nil), c
}

func run(t *testing.T, p *replay.Player, script string) error {
	t.Helper()

	events, err := replay.Decode(strings.NewReader(script))
	require.NoError(t, err)

	return p.Run(context.Background(), events)
}

func Test_Decode_Skips_Blank_And_Comment_Lines(t *testing.T) {
	t.Parallel()

	events, err := replay.Decode(strings.NewReader(`
# fetch
{"op":"user_registered"}

{"op":"advance","by":"1s"}
`))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "user_registered", events[0].Op)
	assert.Equal(t, 3, events[0].Line)
	assert.Equal(t, 5, events[1].Line)
}

func Test_Decode_Returns_ErrInvalidScript_With_Line_When_Line_Is_Malformed(t *testing.T) {
	t.Parallel()

	for _, script := range []string{
		"{\"op\":\"user_registered\"}\n{not json}",
		"{\"op\":\"user_registered\"}\n{\"id\":\"r-1\"}",
		"{\"op\":\"user_registered\"}\n{\"op\":\"like\",\"bogus\":1}",
	} {
		_, err := replay.Decode(strings.NewReader(script))
		require.ErrorIs(t, err, replay.ErrInvalidScript)
		assert.Contains(t, err.Error(), "line 2")
	}
}

func Test_Run_Reproduces_Create_Then_Confirm_When_Script_Advances_Past_Grace(t *testing.T) {
	t.Parallel()

	p, c := newPlayer(t)

	err := run(t, p, `
{"op":"store_report","report":{"id":"r-42","title":"Bache","comments_count":0}}
{"op":"set_comment_list","report_id":"r-42","comments":[]}
{"op":"create_pending_comment","bind":"draft","comment":{"id":"tmp-1","report_id":"r-42","body":"sigue igual"}}
{"op":"confirm","kind":"comment","id":"$draft","server_id":"c-900","report_id":"r-42"}
`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"draft": "tmp-1"}, p.Bindings())

	ids, _ := c.CommentList("r-42")
	assert.Equal(t, []string{"c-900"}, ids)

	_, presence := c.Comment("tmp-1")
	assert.Equal(t, civicache.Present, presence)

	require.NoError(t, run(t, p, `{"op":"advance","by":"1s"}`))

	_, presence = c.Comment("tmp-1")
	assert.Equal(t, civicache.Unknown, presence)

	r, _ := c.Report("r-42")
	assert.Equal(t, 1, r.CommentsCount)
}

func Test_Run_Applies_List_Filters_And_Stats_Events(t *testing.T) {
	t.Parallel()

	p, c := newPlayer(t)

	err := run(t, p, `
{"op":"set_stats","stats":{"total_reports":3,"resolved_reports":1,"total_users":2}}
{"op":"set_report_list","query":"map","filter":"20,0,20,0","reports":[]}
{"op":"set_report_list","query":"map","filter":"5,0,5,0"}
{"op":"report_created","report":{"id":"r-1","lat":10,"lng":10,"status":"pendiente"}}
{"op":"set_status","id":"r-1","status":"resuelto"}
{"op":"patch_report","id":"r-1","patch":{"title":"Arreglado"}}
{"op":"like","id":"r-1","delta":2}
{"op":"user_registered"}
`)
	require.NoError(t, err)

	wide, _ := c.ReportList("map", civicache.Filter{Discriminator: "20,0,20,0"})
	narrow, _ := c.ReportList("map", civicache.Filter{Discriminator: "5,0,5,0"})
	assert.Equal(t, []string{"r-1"}, wide)
	assert.Empty(t, narrow)

	s, _ := c.Stats()
	assert.Equal(t, 4, s.TotalReports)
	assert.Equal(t, 2, s.ResolvedReports)
	assert.Equal(t, 3, s.TotalUsers)

	r, _ := c.Report("r-1")
	assert.Equal(t, "Arreglado", r.Title)
	assert.Equal(t, 2, r.UpvotesCount)
}

func Test_Run_Rolls_Back_When_Script_Fails_Pending_Report(t *testing.T) {
	t.Parallel()

	p, c := newPlayer(t)

	err := run(t, p, `
{"op":"set_report_list","query":"all","filter":"all"}
{"op":"create_pending_report","bind":"r","report":{"title":"Luminaria"}}
{"op":"fail","kind":"report","id":"$r"}
`)
	require.NoError(t, err)

	ids, _ := c.ReportList("all", civicache.Filter{Discriminator: "all"})
	assert.Empty(t, ids)
	assert.True(t, c.IsTempID(p.Bindings()["r"]))
}

func Test_Apply_Returns_Error_When_Event_Is_Unusable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   replay.Event
		want error
	}{
		{name: "unknown op", ev: replay.Event{Op: "explode"}, want: replay.ErrUnknownOp},
		{name: "missing id", ev: replay.Event{Op: "like"}, want: replay.ErrMissingField},
		{name: "missing payload", ev: replay.Event{Op: "store_report"}, want: replay.ErrMissingField},
		{name: "unknown binding", ev: replay.Event{Op: "fail", ID: "$nope"}, want: replay.ErrUnknownBinding},
		{name: "bad payload", ev: replay.Event{Op: "store_report", Report: []byte(`[1]`)}, want: civicache.ErrInvalidPayload},
		{name: "bad filter", ev: replay.Event{Op: "set_report_list", Filter: "near=1,2"}, want: civicache.ErrInvalidFilter},
		{name: "bad duration", ev: replay.Event{Op: "advance", By: "later"}, want: replay.ErrInvalidScript},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, _ := newPlayer(t)
			require.ErrorIs(t, p.Apply(tt.ev), tt.want)
		})
	}
}

func Test_Apply_Returns_ErrNoClock_When_Player_Has_No_Clock(t *testing.T) {
	t.Parallel()

	c, err := civicache.New(civicache.Options{})
	require.NoError(t, err)

	p := replay.NewPlayer(c, nil, nil)
	require.ErrorIs(t, p.Apply(replay.Event{Op: "advance", By: "1s"}), replay.ErrNoClock)
}

func Test_Run_Stops_When_Context_Is_Cancelled(t *testing.T) {
	t.Parallel()

	p, c := newPlayer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, []replay.Event{{Op: "set_stats", Stats: []byte(`{}`)}})
	require.ErrorIs(t, err, context.Canceled)

	_, presence := c.Stats()
	assert.Equal(t, civicache.Unknown, presence)
}

func Test_Ops_Lists_Sorted_Op_Names(t *testing.T) {
	t.Parallel()

	ops := replay.Ops()
	assert.Contains(t, ops, "confirm")
	assert.Contains(t, ops, "advance")
	assert.IsNonDecreasing(t, ops)
}
