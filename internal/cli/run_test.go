package cli_test

import (
	"testing"

	"github.com/calvinalkan/civicache/internal/cli"
)

func Test_Usage_Printed_When_No_Command_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun()

	cli.AssertContains(t, stdout, "Usage: civicache")
	cli.AssertContains(t, stdout, "Commands:")

	for _, name := range []string{"replay", "dump", "shell", "match", "print-config"} {
		cli.AssertContains(t, stdout, name)
	}
}

func Test_Invalid_Global_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("--invalid-flag", "replay")

	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "--invalid-flag")
	cli.AssertContains(t, stderr, "Global flags:")
	cli.AssertContains(t, stderr, "--cwd")
	cli.AssertContains(t, stderr, "--config")
	cli.AssertContains(t, stderr, "--log-level")
}

func Test_Unknown_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("frobnicate")

	cli.AssertContains(t, stderr, "unknown command: frobnicate")
	cli.AssertContains(t, stderr, "Commands:")
}

func Test_Command_Help_When_Help_Flag_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("replay", "--help")

	cli.AssertContains(t, stdout, "Usage: civicache replay [flags] <script>")
	cli.AssertContains(t, stdout, "--json")
	cli.AssertContains(t, stdout, "--metrics")
}

func Test_Invalid_Command_Flag_Prints_Help_To_Stderr_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("match", "--nope")

	cli.AssertContains(t, stderr, "unknown flag: --nope")
	cli.AssertContains(t, stderr, "Usage: civicache match")
}

func Test_Invalid_Config_Fails_Before_Command_Runs(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".civicache.json", `{"log_level": "loud"}`)

	stderr := c.MustFail("print-config")
	cli.AssertContains(t, stderr, "invalid log level")
}
