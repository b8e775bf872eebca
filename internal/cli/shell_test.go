package cli_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/civicache/internal/cli"
)

func Test_Shell_Applies_Events_And_Commands_When_Input_Piped(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	input := strings.Join([]string{
		`{"op":"set_comment_list","report_id":"r-42","comments":[]}`,
		`{"op":"store_report","report":{"id":"r-42","title":"Bache","comments_count":0}}`,
		`{"op":"create_pending_comment","bind":"draft","comment":{"id":"tmp-1","report_id":"r-42","body":"Sigue igual"}}`,
		"pending",
		`{"op":"confirm","kind":"comment","id":"$draft","server_id":"c-900","report_id":"r-42"}`,
		"# comments are skipped",
		"lists",
		"advance 1s",
		"comment tmp-1",
		"report r-42",
		"stats",
		"exit",
		"lists",
	}, "\n")

	stdout, stderr, code := c.RunWithInput(input, "shell")

	require.Equal(t, 0, code, "stderr: %s", stderr)
	cli.AssertContains(t, stdout, "comment:tmp-1 pending")
	cli.AssertContains(t, stdout, "comments:r-42 [c-900]")
	cli.AssertContains(t, stdout, "now 2024-01-01T00:00:01Z")
	cli.AssertContains(t, stdout, "comment:tmp-1 unknown")
	cli.AssertContains(t, stdout, `"comments_count": 1`)
	cli.AssertContains(t, stdout, "stats unknown")

	// nothing after exit runs
	require.Equal(t, 1, strings.Count(stdout, "comments:r-42 ["))
}

func Test_Shell_Reports_Errors_Without_Exiting_When_Line_Invalid(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	input := strings.Join([]string{
		"bogus",
		`{"op":"teleport"}`,
		`{"op":"advance","by":"soon"}`,
		"advance",
		"report",
		`{"op":"store_report","report":{"id":"r-1","title":"Poste"}}`,
		"report r-1",
	}, "\n")

	stdout, stderr, code := c.RunWithInput(input, "shell")

	require.Equal(t, 0, code, "stderr: %s", stderr)
	cli.AssertContains(t, stdout, "unknown command: bogus")
	cli.AssertContains(t, stdout, "error: unknown op")
	cli.AssertContains(t, stdout, "error: advance: invalid script")
	cli.AssertContains(t, stdout, "error: usage: advance <duration>")
	cli.AssertContains(t, stdout, "error: usage: report <id>")
	cli.AssertContains(t, stdout, `"title": "Poste"`)
}

func Test_Shell_Lists_Ops_And_Help_When_Asked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout := c.MustRun("shell")
	require.Empty(t, stdout)

	stdout, _, code := c.RunWithInput("help\nops\nlists\npending\nexpire\n", "shell")

	require.Equal(t, 0, code)
	cli.AssertContains(t, stdout, "advance <duration>")
	cli.AssertContains(t, stdout, "create_pending_comment")
	cli.AssertContains(t, stdout, "(no lists)")
	cli.AssertContains(t, stdout, "(none pending)")
	cli.AssertContains(t, stdout, "expired 0")
}

func Test_Shell_Fails_When_Args_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("shell", "extra")

	cli.AssertContains(t, stderr, "too many arguments")
}
